package arenakit

import (
	"iter"

	"github.com/hupe1980/arenakit/internal/container"
)

// Snapshot records the current end of the arena and returns its id.
// Ids are assigned sequentially from 0 and stay valid until Reset.
func (a *Arena[T]) Snapshot() SnapshotID {
	if !a.access.TryExclusive() {
		panic(ErrBorrowConflict)
	}
	defer a.access.ReleaseExclusive()

	a.marks = append(a.marks, a.store.Mark())
	a.opts.metricsCollector.RecordSnapshot()
	return SnapshotID(len(a.marks) - 1)
}

// GetSnapshot returns a copy of every value that existed when snapshot id
// was taken, in allocation order. The result is the same however many
// values were allocated since, although values changed through Update or
// Set are returned as they are now.
//
// It panics with a *SnapshotRangeError if id was never issued, or was
// issued before the last Reset.
func (a *Arena[T]) GetSnapshot(id SnapshotID) []T {
	if !a.access.TryShared() {
		panic(ErrBorrowConflict)
	}
	defer a.access.ReleaseShared()

	m := a.mark(id)
	return a.store.AppendTo(make([]T, 0, a.store.Count(m)), m)
}

// SnapshotSeq is the lazy form of GetSnapshot. Like an Iterator it checks
// the borrow on every step and stops early if the arena is reset.
//
// It panics like GetSnapshot for unknown ids.
func (a *Arena[T]) SnapshotSeq(id SnapshotID) iter.Seq[T] {
	if !a.access.TryShared() {
		panic(ErrBorrowConflict)
	}
	defer a.access.ReleaseShared()

	m := a.mark(id)
	gen := a.generation
	return func(yield func(T) bool) {
		it := a.iterTo(m, gen, DefaultBatchSize)
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// SnapshotLen returns the number of values covered by snapshot id.
func (a *Arena[T]) SnapshotLen(id SnapshotID) int {
	if !a.access.TryShared() {
		panic(ErrBorrowConflict)
	}
	defer a.access.ReleaseShared()

	return a.store.Count(a.mark(id))
}

// SnapshotCount returns the number of snapshots recorded since the last Reset.
func (a *Arena[T]) SnapshotCount() int { return len(a.marks) }

func (a *Arena[T]) mark(id SnapshotID) container.Mark {
	if id < 0 || int(id) >= len(a.marks) {
		panic(&SnapshotRangeError{ID: id, Count: len(a.marks)})
	}
	return a.marks[id]
}
