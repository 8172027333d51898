package compressors

import (
	"fmt"

	"github.com/INLOpen/nexusolap/core"
	"github.com/klauspost/compress/zstd"
)

// ZSTDCompressor implements core.Compressor using klauspost's zstd port.
// The encoder and decoder are created once and reused; EncodeAll/DecodeAll
// are safe for concurrent use.
type ZSTDCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ core.Compressor = (*ZSTDCompressor)(nil)

func NewZSTDCompressor() (*ZSTDCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZSTDCompressor{enc: enc, dec: dec}, nil
}

func (c *ZSTDCompressor) Compress(data []byte) ([]byte, error) {
	return c.enc.EncodeAll(data, nil), nil
}

func (c *ZSTDCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress error: %w", err)
	}
	return out, nil
}

func (c *ZSTDCompressor) Type() core.CompressionType { return core.CompressionZSTD }
