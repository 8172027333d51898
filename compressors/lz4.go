package compressors

import (
	"bytes"
	"fmt"
	"io"

	"github.com/INLOpen/nexusolap/core"
	"github.com/pierrec/lz4/v4"
)

// LZ4Compressor implements core.Compressor using the lz4 frame format.
type LZ4Compressor struct{}

var _ core.Compressor = (*LZ4Compressor)(nil)

func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress error: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close error: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress error: %w", err)
	}
	return out, nil
}

func (c *LZ4Compressor) Type() core.CompressionType { return core.CompressionLZ4 }
