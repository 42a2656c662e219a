package arenakit

import "github.com/hupe1980/arenakit/internal/container"

// Close returns the arena's chunk memory to its resource controller and
// drops its contents. The arena stays usable afterwards as an empty arena
// with a single uncharged chunk of capacity 1.
//
// Close is only needed when the arena shares a resource.Controller; without
// one it is equivalent to Reset.
func (a *Arena[T]) Close() error {
	if a == nil {
		return nil
	}
	if !a.access.TryExclusive() {
		return ErrBorrowConflict
	}
	defer a.access.ReleaseExclusive()

	a.clear()
	a.store = container.NewChunked[T](1)
	return nil
}
