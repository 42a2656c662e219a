package frame

import (
	"encoding/binary"
	"fmt"
)

// Field names a tagged body field.
type Field struct {
	Tag  uint8
	Name string
}

// Writer builds a body or a nested payload.
type Writer struct {
	buf []byte
}

// Uvarint appends a bare uvarint.
func (w *Writer) Uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// Blob appends a length-prefixed byte string.
func (w *Writer) Blob(b []byte) {
	w.buf = binary.AppendUvarint(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// Field appends a tagged field holding payload.
func (w *Writer) Field(f Field, payload []byte) {
	w.buf = append(w.buf, f.Tag)
	w.Blob(payload)
}

// UvarintField appends a tagged field holding a single uvarint.
func (w *Writer) UvarintField(f Field, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.Field(f, tmp[:n])
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Reader consumes a payload written by Writer.
type Reader struct {
	field string
	buf   []byte
	off   int
}

// NewReader returns a Reader over payload; errors name field.
func NewReader(field string, payload []byte) *Reader {
	return &Reader{field: field, buf: payload}
}

// Uvarint reads a bare uvarint.
func (r *Reader) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, &FieldError{Field: r.field, Reason: fmt.Sprintf("malformed varint at offset %d", r.off)}
	}
	r.off += n
	return v, nil
}

// Int reads a uvarint that must fit a non-negative int.
func (r *Reader) Int() (int, error) {
	v, err := r.Uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(maxInt) {
		return 0, &FieldError{Field: r.field, Reason: fmt.Sprintf("value %d overflows int", v)}
	}
	return int(v), nil
}

// Blob reads a length-prefixed byte string. The result aliases the payload.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.Int()
	if err != nil {
		return nil, err
	}
	if n > len(r.buf)-r.off {
		return nil, &FieldError{Field: r.field, Reason: fmt.Sprintf("blob of %d bytes exceeds remaining %d", n, len(r.buf)-r.off)}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Done returns an error if unread bytes remain.
func (r *Reader) Done() error {
	if r.off != len(r.buf) {
		return &FieldError{Field: r.field, Reason: fmt.Sprintf("%d trailing bytes", len(r.buf)-r.off)}
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)

// Fields holds the payloads of a parsed body keyed by tag.
type Fields map[uint8][]byte

// Parse splits body into fields. Every field in schema must appear exactly
// once; tags outside schema are rejected.
func Parse(body []byte, schema []Field) (Fields, error) {
	names := make(map[uint8]string, len(schema))
	for _, f := range schema {
		names[f.Tag] = f.Name
	}

	fields := make(Fields, len(schema))
	r := NewReader("body", body)
	for r.off < len(r.buf) {
		tag := r.buf[r.off]
		r.off++

		name, known := names[tag]
		if !known {
			return nil, &FieldError{Field: fmt.Sprintf("tag %d", tag), Reason: "unknown field"}
		}
		if _, dup := fields[tag]; dup {
			return nil, &FieldError{Field: name, Reason: "duplicate field"}
		}

		r.field = name
		payload, err := r.Blob()
		if err != nil {
			return nil, err
		}
		fields[tag] = payload
	}

	for _, f := range schema {
		if _, ok := fields[f.Tag]; !ok {
			return nil, &FieldError{Field: f.Name, Reason: "missing field"}
		}
	}
	return fields, nil
}

// Uvarint decodes a field written with UvarintField.
func (fs Fields) Uvarint(f Field) (uint64, error) {
	r := NewReader(f.Name, fs[f.Tag])
	v, err := r.Uvarint()
	if err != nil {
		return 0, err
	}
	return v, r.Done()
}

// Int decodes a UvarintField that must fit a non-negative int.
func (fs Fields) Int(f Field) (int, error) {
	r := NewReader(f.Name, fs[f.Tag])
	v, err := r.Int()
	if err != nil {
		return 0, err
	}
	return v, r.Done()
}

// Reader returns a Reader over the payload of f.
func (fs Fields) Reader(f Field) *Reader {
	return NewReader(f.Name, fs[f.Tag])
}
