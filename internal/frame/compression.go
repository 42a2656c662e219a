package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm applied to a frame body.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	// DecodeAll must never grow past the buffer sized from the checked raw size.
	dec, _ := zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true), zstd.WithDecoderConcurrency(1))
	return dec
}

// compress returns the compressed body prefixed by its uvarint raw size.
// If compression does not shrink the body by at least 10%, it returns the
// body unchanged with CompressionNone.
func compress(body []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(body) == 0 {
		return body, CompressionNone, nil
	}

	var packed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(body)))
		n, err := lz4.CompressBlock(body, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(body, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, 0, fmt.Errorf("frame: unknown %s", c)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(body))*0.9 {
		return body, CompressionNone, nil
	}

	out := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(packed)), uint64(len(body)))
	return append(out, packed...), c, nil
}

// decompress reverses compress.
func decompress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	rawSize, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, ErrTruncated
	}
	data = data[n:]
	if limit := maxRawSize(len(data), c); rawSize > limit {
		return nil, fmt.Errorf("%w: %d bytes from %d compressed (%s allows %d)", ErrBodyTooLarge, rawSize, len(data), c, limit)
	}
	result := make([]byte, rawSize)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, err
		}
		if uint64(n) != rawSize {
			return nil, errors.New("frame: decompressed size mismatch")
		}
		return result, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(data, result[:0])
		if err != nil {
			return nil, err
		}
		if uint64(len(decoded)) != rawSize {
			return nil, errors.New("frame: decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("frame: unknown %s", c)
	}
}

const (
	// maxBodySize bounds the allocation made for a decompressed body.
	maxBodySize = 1 << 36

	// An LZ4 sequence expands to at most 255 bytes per input byte; a ZSTD
	// RLE block turns 4 bytes into 128 KiB.
	lz4MaxRatio  = 255
	zstdMaxRatio = 1 << 15
	ratioSlack   = 64
)

// maxRawSize is the largest body that compressedLen bytes of c can hold.
func maxRawSize(compressedLen int, c Compression) uint64 {
	ratio := uint64(lz4MaxRatio)
	if c == CompressionZSTD {
		ratio = zstdMaxRatio
	}
	return min(uint64(compressedLen)*ratio+ratioSlack, maxBodySize)
}
