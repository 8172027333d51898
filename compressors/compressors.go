package compressors

import (
	"fmt"

	"github.com/INLOpen/nexusolap/core"
)

// NewCompressor returns the codec for a persisted compression kind.
func NewCompressor(ct core.CompressionType) (core.Compressor, error) {
	switch ct {
	case core.CompressionNone:
		return &NoneCompressor{}, nil
	case core.CompressionSnappy:
		return &SnappyCompressor{}, nil
	case core.CompressionLZ4:
		return &LZ4Compressor{}, nil
	case core.CompressionZSTD:
		return NewZSTDCompressor()
	default:
		return nil, fmt.Errorf("%w: unsupported compression type %d", core.ErrInvalidArgument, ct)
	}
}

// NoneCompressor passes data through unchanged.
type NoneCompressor struct{}

var _ core.Compressor = (*NoneCompressor)(nil)

func (c *NoneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (c *NoneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (c *NoneCompressor) Type() core.CompressionType             { return core.CompressionNone }
