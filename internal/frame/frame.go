package frame

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Seal wraps body into a frame. The compression actually applied is
// reported in the returned header; it falls back to CompressionNone when
// compression does not pay off.
func Seal(body []byte, codecName string, c Compression) ([]byte, Header, error) {
	if len(codecName) > 255 {
		return nil, Header{}, fmt.Errorf("frame: codec name too long (%d bytes)", len(codecName))
	}

	packed, applied, err := compress(body, c)
	if err != nil {
		return nil, Header{}, err
	}

	out := make([]byte, 0, headerFixedSize+len(codecName)+len(packed)+trailerSize)
	out = binary.LittleEndian.AppendUint32(out, Magic)
	out = binary.LittleEndian.AppendUint16(out, Version)
	out = append(out, byte(applied), byte(len(codecName)))
	out = append(out, codecName...)
	out = append(out, packed...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out))

	return out, Header{Version: Version, Compression: applied, Codec: codecName}, nil
}

// Open validates a frame and returns its header and decompressed body.
func Open(data []byte) (Header, []byte, error) {
	if len(data) < headerFixedSize+trailerSize {
		return Header{}, nil, ErrTruncated
	}

	if magic := binary.LittleEndian.Uint32(data[0:]); magic != Magic {
		return Header{}, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
	}

	h := Header{
		Version:     binary.LittleEndian.Uint16(data[4:]),
		Compression: Compression(data[6]),
	}
	if h.Version != Version {
		return Header{}, nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}

	nameLen := int(data[7])
	if len(data) < headerFixedSize+nameLen+trailerSize {
		return Header{}, nil, ErrTruncated
	}

	payloadEnd := len(data) - trailerSize
	expected := binary.LittleEndian.Uint32(data[payloadEnd:])
	if actual := crc32.ChecksumIEEE(data[:payloadEnd]); actual != expected {
		return Header{}, nil, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}

	h.Codec = string(data[headerFixedSize : headerFixedSize+nameLen])

	body, err := decompress(data[headerFixedSize+nameLen:payloadEnd], h.Compression)
	if err != nil {
		return Header{}, nil, err
	}
	return h, body, nil
}
