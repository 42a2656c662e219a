package arenakit

import (
	"iter"

	"github.com/hupe1980/arenakit/internal/container"
)

// DefaultBatchSize is the batch size of an iterator created with a
// non-positive hint.
const DefaultBatchSize = 512

// Iterator walks the values that existed when it was created, in
// allocation order. Values allocated during the walk are not visited.
//
// Each step takes a shared borrow for its own duration only, so the caller
// may allocate between steps.
//
//	it := a.Iter(0)
//	for it.Next() {
//		fmt.Println(it.Handle(), it.Value())
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator[T any] struct {
	arena *Arena[T]
	cur   container.Cursor
	gen   uint64
	batch int

	value  T
	handle Handle
	err    error
	done   bool
}

// Iter returns an iterator over the arena. batchSize is the window
// NextBatch fills; it does not change the order or the per-item
// traversal of Next.
func (a *Arena[T]) Iter(batchSize int) *Iterator[T] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if !a.access.TryShared() {
		return &Iterator[T]{arena: a, batch: batchSize, err: ErrBorrowConflict, done: true}
	}
	defer a.access.ReleaseShared()

	return a.iterTo(a.store.Mark(), a.generation, batchSize)
}

func (a *Arena[T]) iterTo(end container.Mark, gen uint64, batchSize int) *Iterator[T] {
	return &Iterator[T]{
		arena: a,
		cur:   a.store.Cursor(end),
		gen:   gen,
		batch: batchSize,
	}
}

// Next advances to the next value. It returns false when the walk is done
// or failed; Err tells the two apart.
func (it *Iterator[T]) Next() bool {
	if !it.begin() {
		return false
	}
	defer it.arena.access.ReleaseShared()

	return it.step()
}

// NextBatch returns up to BatchSize next values under a single borrow, or
// nil when the walk is done or failed.
func (it *Iterator[T]) NextBatch() []T {
	if !it.begin() {
		return nil
	}
	defer it.arena.access.ReleaseShared()

	var out []T
	for len(out) < it.batch && it.step() {
		if out == nil {
			out = make([]T, 0, it.batch)
		}
		out = append(out, it.value)
	}
	return out
}

// begin takes the shared borrow for one step, recording any failure.
func (it *Iterator[T]) begin() bool {
	if it.done {
		return false
	}
	if !it.arena.access.TryShared() {
		it.fail(ErrBorrowConflict)
		return false
	}
	if it.arena.generation != it.gen {
		it.arena.access.ReleaseShared()
		it.fail(ErrStaleIterator)
		return false
	}
	return true
}

func (it *Iterator[T]) step() bool {
	chunk, slot, v, ok := it.arena.store.Step(&it.cur)
	if !ok {
		it.done = true
		return false
	}
	it.value = v
	it.handle = Handle{Chunk: chunk, Slot: slot, Generation: it.gen}
	return true
}

func (it *Iterator[T]) fail(err error) {
	it.err = err
	it.done = true
	var zero T
	it.value = zero
}

// Value returns the value Next moved to.
func (it *Iterator[T]) Value() T { return it.value }

// Handle returns the handle of the value Next moved to.
func (it *Iterator[T]) Handle() Handle { return it.handle }

// Err returns the error that stopped the walk, if any.
func (it *Iterator[T]) Err() error { return it.err }

// BatchSize returns the window NextBatch fills.
func (it *Iterator[T]) BatchSize() int { return it.batch }

// All returns a sequence of every handle and value, in allocation order.
// The sequence ends early on a borrow conflict or a reset; use Iter to
// observe why.
func (a *Arena[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		it := a.Iter(0)
		for it.Next() {
			if !yield(it.Handle(), it.Value()) {
				return
			}
		}
	}
}

// Values returns a sequence of every value, in allocation order.
func (a *Arena[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		it := a.Iter(0)
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}
