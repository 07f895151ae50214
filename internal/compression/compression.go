// Package compression provides per-block compression for table files.
//
// Each data block is stored with a 1-byte compression type indicator in its
// trailer followed by the checksum. Decompression failures are reported to
// the caller as-is; the table layer wraps them into the error taxonomy.
package compression

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a compression algorithm.
// These values are embedded in the on-disk format and MUST NOT change.
type Type uint8

const (
	// NoCompression stores the block bytes verbatim.
	NoCompression Type = 0

	// SnappyCompression uses Google Snappy.
	SnappyCompression Type = 1

	// LZ4Compression uses the LZ4 block format, prefixed with the 4-byte
	// little-endian uncompressed length.
	LZ4Compression Type = 2

	// ZstdCompression uses Zstandard.
	ZstdCompression Type = 3
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case NoCompression:
		return "NoCompression"
	case SnappyCompression:
		return "Snappy"
	case LZ4Compression:
		return "LZ4"
	case ZstdCompression:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// IsSupported reports whether the compression type is supported.
func (t Type) IsSupported() bool {
	switch t {
	case NoCompression, SnappyCompression, LZ4Compression, ZstdCompression:
		return true
	default:
		return false
	}
}

// ErrIncompressible is returned by Compress when the LZ4 codec reports the
// input as incompressible. The other codecs return their output even when
// it is not smaller. Callers fall back to storing the block uncompressed.
var ErrIncompressible = errors.New("compression: data is incompressible")

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// Compress compresses data using the specified compression type.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return data, nil

	case SnappyCompression:
		return snappy.Encode(nil, data), nil

	case LZ4Compression:
		buf := make([]byte, lz4.CompressBlockBound(len(data))+4)
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf[4:])
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 && len(data) > 0 {
			return nil, ErrIncompressible
		}
		// The block API needs the original length to decompress; store it
		// as a 4-byte little-endian prefix.
		buf[0] = byte(len(data))
		buf[1] = byte(len(data) >> 8)
		buf[2] = byte(len(data) >> 16)
		buf[3] = byte(len(data) >> 24)
		return buf[:4+n], nil

	case ZstdCompression:
		return zstdEncoder.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("compression type %s not supported", t)
	}
}

// Decompress decompresses data using the specified compression type.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return data, nil

	case SnappyCompression:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snappy decompress: %w", err)
		}
		return out, nil

	case LZ4Compression:
		if len(data) < 4 {
			return nil, fmt.Errorf("lz4 decompress: truncated length prefix")
		}
		size := int(data[0]) | int(data[1])<<8 | int(data[2])<<16 | int(data[3])<<24
		if size < 0 || size > 1<<30 {
			return nil, fmt.Errorf("lz4 decompress: bad length prefix")
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data[4:], out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out[:n], nil

	case ZstdCompression:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("compression type %s not supported", t)
	}
}
