// Package sequence implements a bounded arithmetic sequence of uint32
// values whose position can be persisted as JSON.
package sequence

import (
	"bytes"
	"iter"
	"math"

	gojson "github.com/goccy/go-json"
)

// Sequencer yields Offset, Offset+Step, ... while the value is <= Max.
// A Step of 0 repeats Offset forever.
type Sequencer struct {
	offset uint32
	step   uint32
	max    uint32

	// overflowed is set once offset can no longer advance.
	overflowed bool
}

// New creates a Sequencer.
func New(offset, step, max uint32) *Sequencer {
	return &Sequencer{offset: offset, step: step, max: max}
}

// Next returns the next value, or false once the sequence is exhausted.
func (s *Sequencer) Next() (uint32, bool) {
	if s.overflowed || s.offset > s.max {
		return 0, false
	}
	cur := s.offset
	if s.step > math.MaxUint32-s.offset {
		s.overflowed = true
	} else {
		s.offset += s.step
	}
	return cur, true
}

// Current returns the value Next yields next.
func (s *Sequencer) Current() uint32 { return s.offset }

// Free returns Max - Current, or 0 if Current is past Max.
func (s *Sequencer) Free() uint32 {
	if s.offset > s.max {
		return 0
	}
	return s.max - s.offset
}

// Last drains the sequence and returns its final value.
func (s *Sequencer) Last() (uint32, bool) {
	var last uint32
	found := false
	for v, ok := s.Next(); ok; v, ok = s.Next() {
		last, found = v, true
	}
	return last, found
}

// All returns the remaining values. Ranging over it advances s.
func (s *Sequencer) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for v, ok := s.Next(); ok; v, ok = s.Next() {
			if !yield(v) {
				return
			}
		}
	}
}

type state struct {
	Offset uint32 `json:"offset"`
	Step   uint32 `json:"step"`
	Max    uint32 `json:"max"`
}

// MarshalJSON implements json.Marshaler.
func (s *Sequencer) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(state{Offset: s.offset, Step: s.step, Max: s.max})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown fields are rejected.
func (s *Sequencer) UnmarshalJSON(data []byte) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var st state
	if err := dec.Decode(&st); err != nil {
		return err
	}
	*s = Sequencer{offset: st.Offset, step: st.Step, max: st.Max}
	return nil
}
