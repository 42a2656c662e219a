// Package container implements container data structures.
package container

// Mark is a recorded boundary into a Chunked: every value in the chunks
// before Chunk plus the first Len values of Chunk.
//
// Values are only ever appended past the last chunk's length, so the prefix
// a Mark describes never changes once recorded.
type Mark struct {
	Chunk int
	Len   int
}

// Chunked is an append-only sequence of fixed-capacity chunks.
//
// A chunk is never resized or moved. When the last chunk is full a new chunk
// with twice its capacity is appended, so addresses handed out by Append stay
// valid for the lifetime of the Chunked. Not safe for concurrent use.
type Chunked[T any] struct {
	chunks [][]T
	items  int
}

// NewChunked creates a Chunked holding one empty chunk of the given capacity.
// The capacity must be positive.
func NewChunked[T any](capacity int) *Chunked[T] {
	if capacity <= 0 {
		panic("container: chunk capacity must be positive")
	}
	return &Chunked[T]{
		chunks: [][]T{make([]T, 0, capacity)},
	}
}

// FromChunks wraps already populated chunks.
// The caller guarantees len <= cap for every chunk, every chunk but the last
// is full, and every capacity is positive.
func FromChunks[T any](chunks [][]T) *Chunked[T] {
	c := &Chunked[T]{chunks: chunks}
	for _, ch := range chunks {
		c.items += len(ch)
	}
	return c
}

// Full reports whether the last chunk has no spare capacity, i.e. whether
// the next Append creates a new chunk.
func (c *Chunked[T]) Full() bool {
	last := c.chunks[len(c.chunks)-1]
	return len(last) == cap(last)
}

// NextCapacity returns the capacity Append would give a new chunk.
func (c *Chunked[T]) NextCapacity() int {
	return cap(c.chunks[len(c.chunks)-1]) * 2
}

// Append stores v and returns its address. grew is true if a new chunk was
// created to hold it.
func (c *Chunked[T]) Append(v T) (chunk, slot int, grew bool) {
	last := len(c.chunks) - 1
	if len(c.chunks[last]) < cap(c.chunks[last]) {
		c.chunks[last] = append(c.chunks[last], v)
		c.items++
		return last, len(c.chunks[last]) - 1, false
	}

	next := make([]T, 1, cap(c.chunks[last])*2)
	next[0] = v
	c.chunks = append(c.chunks, next)
	c.items++
	return last + 1, 0, true
}

// At returns a pointer to the value at (chunk, slot), or false if either
// index is out of bounds. The pointer must not be retained.
func (c *Chunked[T]) At(chunk, slot int) (*T, bool) {
	if chunk < 0 || chunk >= len(c.chunks) {
		return nil, false
	}
	ch := c.chunks[chunk]
	if slot < 0 || slot >= len(ch) {
		return nil, false
	}
	return &ch[slot], true
}

// Len returns the total number of stored values.
func (c *Chunked[T]) Len() int { return c.items }

// NumChunks returns the number of chunks.
func (c *Chunked[T]) NumChunks() int { return len(c.chunks) }

// Chunk returns the populated prefix of chunk i. The slice aliases arena
// storage and must be treated as read-only.
func (c *Chunked[T]) Chunk(i int) []T { return c.chunks[i] }

// Capacity returns the fixed capacity of chunk i.
func (c *Chunked[T]) Capacity(i int) int { return cap(c.chunks[i]) }

// Reserved returns the sum of all chunk capacities.
func (c *Chunked[T]) Reserved() int {
	n := 0
	for _, ch := range c.chunks {
		n += cap(ch)
	}
	return n
}

// Mark records the current end of the sequence.
func (c *Chunked[T]) Mark() Mark {
	last := len(c.chunks) - 1
	return Mark{Chunk: last, Len: len(c.chunks[last])}
}

// Covers reports whether m describes a prefix of the current contents.
func (c *Chunked[T]) Covers(m Mark) bool {
	if m.Chunk < 0 || m.Chunk >= len(c.chunks) || m.Len < 0 {
		return false
	}
	return m.Len <= len(c.chunks[m.Chunk])
}

// Count returns the number of values covered by m.
func (c *Chunked[T]) Count(m Mark) int {
	n := m.Len
	for _, ch := range c.chunks[:m.Chunk] {
		n += len(ch)
	}
	return n
}

// Cursor is a forward position bounded by a Mark.
type Cursor struct {
	chunk int
	slot  int
	end   Mark
}

// Cursor returns a cursor positioned before the first value covered by end.
func (c *Chunked[T]) Cursor(end Mark) Cursor {
	return Cursor{end: end}
}

// Step advances cur and returns the address and value it moved over.
// ok is false once the cursor has passed its bound.
func (c *Chunked[T]) Step(cur *Cursor) (chunk, slot int, v T, ok bool) {
	for cur.chunk <= cur.end.Chunk && cur.chunk < len(c.chunks) {
		limit := len(c.chunks[cur.chunk])
		if cur.chunk == cur.end.Chunk {
			limit = cur.end.Len
		}
		if cur.slot < limit {
			chunk, slot = cur.chunk, cur.slot
			cur.slot++
			return chunk, slot, c.chunks[chunk][slot], true
		}
		cur.chunk++
		cur.slot = 0
	}
	return 0, 0, v, false
}

// AppendTo appends every value covered by m to dst in insertion order.
func (c *Chunked[T]) AppendTo(dst []T, m Mark) []T {
	for _, ch := range c.chunks[:m.Chunk] {
		dst = append(dst, ch...)
	}
	return append(dst, c.chunks[m.Chunk][:m.Len]...)
}
