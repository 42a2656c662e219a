// Package shortid implements 10-byte identifiers derived from random UUIDs.
//
// An ID keeps the first 10 bytes of a version 4 UUID and is written as 20
// lowercase hex characters. It is unique enough for identifiers inside a
// running system, not as a global identifier.
package shortid

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Size is the number of bytes in an ID.
const Size = 10

// Length is the length of the text form of an ID.
const Length = 2 * Size

const hexDigits = "0123456789abcdef"

// ID is a short identifier. The zero value is the empty ID.
type ID [Size]byte

// New returns an ID taken from a fresh random UUID.
func New() ID {
	return FromUUID(uuid.New())
}

// FromUUID keeps the first Size bytes of u.
func FromUUID(u uuid.UUID) ID {
	var id ID
	copy(id[:], u[:Size])
	return id
}

// FromUint64 stores v big-endian in the first 8 bytes.
func FromUint64(v uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[:8], v)
	return id
}

// ParseError describes malformed ID text.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "invalid format: " + e.Message
}

// Parse decodes the 20 character lowercase hex form of an ID.
func Parse(s string) (ID, error) {
	var id ID
	if len(s) != Length {
		return id, &ParseError{Message: fmt.Sprintf("invalid ID length, expected: %d, found: %d", Length, len(s))}
	}
	for i := range Size {
		hi, lo := s[2*i], s[2*i+1]
		h1, ok1 := fromHex(hi)
		h2, ok2 := fromHex(lo)
		if !ok1 || !ok2 {
			return ID{}, &ParseError{Message: fmt.Sprintf("invalid ID character found: expect '0'-'9' or 'a'-'f', found: %c and %c", hi, lo)}
		}
		id[i] = h1<<4 | h2
	}
	return id, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// IsZero reports whether id is the empty ID.
func (id ID) IsZero() bool { return id == ID{} }

// Bytes returns a copy of the raw bytes.
func (id ID) Bytes() []byte { return id[:] }

func (id ID) String() string {
	return string(id.appendText(make([]byte, 0, Length)))
}

func (id ID) appendText(dst []byte) []byte {
	for _, b := range id {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return dst
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return id.appendText(make([]byte, 0, Length)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
