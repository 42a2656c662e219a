// Package frame implements the self-describing binary envelope used to
// encode arenas.
//
// Layout (little-endian):
//
//	magic    uint32  "ARN1"
//	version  uint16
//	compress uint8   Compression of the body
//	nameLen  uint8
//	name     [nameLen]byte  value codec name
//	body     tagged fields, possibly compressed
//	crc      uint32  CRC32 (IEEE) of every preceding byte
//
// A body is a sequence of fields: tag uint8, uvarint length, payload.
package frame

import (
	"errors"
	"fmt"
)

const (
	// Magic identifies an encoded arena (ASCII: "ARN1").
	Magic = 0x41524E31
	// Version is the current format version.
	Version = 1

	headerFixedSize = 4 + 2 + 1 + 1
	trailerSize     = 4
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrTruncated      = errors.New("truncated input")
	ErrBodyTooLarge   = errors.New("declared body size exceeds limit")
)

// Header describes a frame.
type Header struct {
	Version     uint16
	Compression Compression
	Codec       string
}

// ChecksumMismatchError is returned when the trailing checksum does not match.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// FieldError reports a malformed, unknown, duplicate or missing field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}
