// Package codec encodes the values stored in arena chunks.
//
// Encoded arenas record the codec name in their header, so a codec change is
// a breaking change for previously encoded bytes unless the old codec stays
// registered under its name.
package codec

import (
	"fmt"
	"sync"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Appender is implemented by codecs that can encode into a caller-owned
// buffer. Arenas encode chunks through it when available.
type Appender interface {
	Append(dst []byte, v any) ([]byte, error)
}

// AppendMarshal encodes v with c and appends the result to dst, using
// Appender when c implements it.
func AppendMarshal(c Codec, dst []byte, v any) ([]byte, error) {
	if a, ok := c.(Appender); ok {
		return a.Append(dst, v)
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

// Register makes c available to ByName. Registering a name twice replaces
// the previous codec.
func Register(c Codec) {
	if c == nil || c.Name() == "" {
		panic("codec: Register requires a named codec")
	}
	registryMu.Lock()
	registry[c.Name()] = c
	registryMu.Unlock()
}

// ByName returns a codec by the name stored in an encoded arena header.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	}
	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	return c, ok
}

// MustMarshal is a helper for tests and examples.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
