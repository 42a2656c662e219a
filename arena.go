package arenakit

import (
	"context"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/arenakit/internal/borrow"
	"github.com/hupe1980/arenakit/internal/container"
	"github.com/hupe1980/arenakit/internal/quota"
)

// Arena is a typed, append-only store of values held in chunks of doubling
// capacity.
//
// Arena is not safe for concurrent use. Overlapping accesses are detected
// rather than serialized: a read that overlaps a write, or two overlapping
// writes, fail with ErrBorrowConflict.
type Arena[T any] struct {
	store  *container.Chunked[T]
	quota  *quota.Guard
	access borrow.Guard

	// marks is append-only between resets; a mark's index is its SnapshotID.
	marks []container.Mark

	elemSize   int64
	generation uint64

	// chunkBytes is the memory currently held from opts.resources.
	chunkBytes int64

	opts options
}

// New creates an arena whose first chunk holds initialCapacity values.
// maxItems and maxMemoryBytes bound the arena for its whole lifetime.
func New[T any](initialCapacity, maxItems, maxMemoryBytes int, opts ...Option) (*Arena[T], error) {
	if initialCapacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, initialCapacity)
	}
	if maxItems < 0 || maxMemoryBytes < 0 {
		return nil, fmt.Errorf("%w: max items %d, max memory %d", ErrInvalidQuota, maxItems, maxMemoryBytes)
	}

	a := &Arena[T]{
		quota:    quota.New(quota.Limits{MaxItems: int64(maxItems), MaxBytes: int64(maxMemoryBytes)}),
		elemSize: elementSize[T](),
		opts:     applyOptions(opts),
	}
	if err := a.acquireChunk(initialCapacity); err != nil {
		return nil, err
	}
	a.store = container.NewChunked[T](initialCapacity)

	return a, nil
}

func elementSize[T any]() int64 {
	var zero T
	return int64(unsafe.Sizeof(zero))
}

// acquireChunk charges a chunk of capacity values to the shared controller.
func (a *Arena[T]) acquireChunk(capacity int) error {
	bytes := int64(capacity) * a.elemSize
	if !a.opts.resources.TryAcquireMemory(bytes) {
		return fmt.Errorf("%w: chunk of %d values (%s)", ErrMemoryLimitExceeded, capacity, humanize.IBytes(uint64(bytes)))
	}
	a.chunkBytes += bytes
	return nil
}

// Alloc stores v and returns its handle.
//
// It fails with a *QuotaExceededError when the arena already holds its
// maximum number of items, or when v would push the memory in use past the
// byte quota. A rejected allocation leaves the arena unchanged.
func (a *Arena[T]) Alloc(v T) (Handle, error) {
	if !a.access.TryExclusive() {
		a.opts.metricsCollector.RecordAlloc(ErrBorrowConflict)
		return Handle{}, ErrBorrowConflict
	}
	defer a.access.ReleaseExclusive()

	h, err := a.alloc(v)
	a.opts.metricsCollector.RecordAlloc(err)
	return h, err
}

func (a *Arena[T]) alloc(v T) (Handle, error) {
	if !a.quota.TryReserve(1, a.elemSize) {
		usage, limits := a.quota.Usage(), a.quota.Limits()
		err := &QuotaExceededError{
			CurrentItems: usage.Items,
			MaxItems:     limits.MaxItems,
			CurrentBytes: usage.Bytes,
			MaxBytes:     limits.MaxBytes,
		}
		a.opts.logger.LogQuotaRejected(context.Background(), err)
		return Handle{}, err
	}

	if a.store.Full() {
		if err := a.acquireChunk(a.store.NextCapacity()); err != nil {
			a.quota.Release(1, a.elemSize)
			return Handle{}, err
		}
	}

	chunk, slot, grew := a.store.Append(v)
	if grew {
		capacity := a.store.Capacity(chunk)
		a.opts.metricsCollector.RecordChunkGrowth(capacity)
		a.opts.logger.LogChunkGrowth(context.Background(), chunk, capacity, a.store.Len())
	}

	return Handle{Chunk: chunk, Slot: slot, Generation: a.generation}, nil
}

// MustAlloc is like Alloc but panics on error.
func (a *Arena[T]) MustAlloc(v T) Handle {
	h, err := a.Alloc(v)
	if err != nil {
		panic(err)
	}
	return h
}

// Get returns the value addressed by h.
func (a *Arena[T]) Get(h Handle) (T, error) {
	var zero T
	if !a.access.TryShared() {
		return zero, ErrBorrowConflict
	}
	defer a.access.ReleaseShared()

	p, err := a.resolve(h)
	if err != nil {
		return zero, err
	}
	return *p, nil
}

// Update calls fn with a pointer to the value addressed by h.
// The pointer is only valid during the call and must not escape it. The
// arena is exclusively borrowed while fn runs, so fn must not call back
// into it.
func (a *Arena[T]) Update(h Handle, fn func(*T)) error {
	if !a.access.TryExclusive() {
		return ErrBorrowConflict
	}
	defer a.access.ReleaseExclusive()

	p, err := a.resolve(h)
	if err != nil {
		return err
	}
	fn(p)
	return nil
}

// Set replaces the value addressed by h.
func (a *Arena[T]) Set(h Handle, v T) error {
	return a.Update(h, func(p *T) { *p = v })
}

func (a *Arena[T]) resolve(h Handle) (*T, error) {
	if h.Generation != a.generation {
		return nil, &HandleNotFoundError{Handle: h, Stale: h.Generation < a.generation}
	}
	p, ok := a.store.At(h.Chunk, h.Slot)
	if !ok {
		return nil, &HandleNotFoundError{Handle: h}
	}
	return p, nil
}

// Reset drops every value, chunk and snapshot mark, and restarts the
// arena with one empty chunk of capacity 1. Handles, snapshot ids and
// iterators from before the reset no longer resolve.
func (a *Arena[T]) Reset() {
	if !a.access.TryExclusive() {
		panic(ErrBorrowConflict)
	}
	defer a.access.ReleaseExclusive()

	dropped, droppedSnapshots := a.store.Len(), len(a.marks)
	a.clear()

	if err := a.acquireChunk(1); err != nil {
		a.opts.logger.WarnContext(context.Background(), "reset chunk not charged to resource controller", "error", err)
	}
	a.store = container.NewChunked[T](1)

	a.opts.metricsCollector.RecordReset()
	a.opts.logger.LogReset(context.Background(), dropped, droppedSnapshots, a.generation)
}

// clear returns every reservation and invalidates outstanding handles.
func (a *Arena[T]) clear() {
	a.opts.resources.ReleaseMemory(a.chunkBytes)
	a.chunkBytes = 0
	a.quota.Reset()
	a.marks = nil
	a.generation++
}

// TotalChunks returns the number of chunks.
func (a *Arena[T]) TotalChunks() int { return a.store.NumChunks() }

// TotalItems returns the number of stored values.
func (a *Arena[T]) TotalItems() int { return a.store.Len() }

// TotalMemoryUsage returns the accounted memory: stored values × ElementSize.
// It is not a measurement of heap usage.
func (a *Arena[T]) TotalMemoryUsage() int { return int(a.quota.Usage().Bytes) }

// MaxItems returns the item quota.
func (a *Arena[T]) MaxItems() int { return int(a.quota.Limits().MaxItems) }

// MaxMemoryBytes returns the byte quota.
func (a *Arena[T]) MaxMemoryBytes() int { return int(a.quota.Limits().MaxBytes) }

// ElementSize returns the accounted size of one value in bytes.
func (a *Arena[T]) ElementSize() int { return int(a.elemSize) }

// Generation returns the number of resets the arena has gone through,
// including resets recorded before an encode.
func (a *Arena[T]) Generation() uint64 { return a.generation }

// Stats is a point-in-time view of an arena.
type Stats struct {
	Chunks          int
	Items           int
	MemoryBytes     int
	ReservedSlots   int
	Snapshots       int
	Generation      uint64
	MaxItems        int
	MaxMemoryBytes  int
	ElementSize     int
	BorrowConflicts uint64
}

// Stats returns the arena's counters.
func (a *Arena[T]) Stats() Stats {
	return Stats{
		Chunks:          a.TotalChunks(),
		Items:           a.TotalItems(),
		MemoryBytes:     a.TotalMemoryUsage(),
		ReservedSlots:   a.store.Reserved(),
		Snapshots:       len(a.marks),
		Generation:      a.generation,
		MaxItems:        a.MaxItems(),
		MaxMemoryBytes:  a.MaxMemoryBytes(),
		ElementSize:     a.ElementSize(),
		BorrowConflicts: a.access.Conflicts(),
	}
}

func (a *Arena[T]) String() string {
	s := a.Stats()
	return fmt.Sprintf("Arena[%s]{chunks: %d, items: %d/%d, memory: %s/%s, snapshots: %d}",
		reflect.TypeFor[T](), s.Chunks, s.Items, s.MaxItems,
		humanize.IBytes(uint64(s.MemoryBytes)), humanize.IBytes(uint64(s.MaxMemoryBytes)), s.Snapshots)
}
