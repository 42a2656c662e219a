// Package quota implements the item-count and byte-budget limits of an arena.
//
// Both limits are weighted semaphores sized to the quota. A reservation
// succeeds only if both semaphores accept it; otherwise nothing is held.
// Reservations never block, callers decide what to do on rejection.
package quota

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limits holds the immutable quotas of an arena.
type Limits struct {
	MaxItems int64
	MaxBytes int64
}

// Usage is the amount currently reserved against Limits.
type Usage struct {
	Items int64
	Bytes int64
}

// Guard enforces Limits.
type Guard struct {
	limits Limits

	items *semaphore.Weighted
	bytes *semaphore.Weighted

	usedItems atomic.Int64
	usedBytes atomic.Int64
}

// New creates a Guard. Negative limits are treated as zero.
func New(limits Limits) *Guard {
	limits.MaxItems = max(limits.MaxItems, 0)
	limits.MaxBytes = max(limits.MaxBytes, 0)

	return &Guard{
		limits: limits,
		items:  semaphore.NewWeighted(limits.MaxItems),
		bytes:  semaphore.NewWeighted(limits.MaxBytes),
	}
}

// TryReserve reserves items and bytes together.
// It returns false, holding nothing, if either limit would be exceeded.
func (g *Guard) TryReserve(items, bytes int64) bool {
	if !g.items.TryAcquire(items) {
		return false
	}
	if !g.bytes.TryAcquire(bytes) {
		g.items.Release(items)
		return false
	}
	g.usedItems.Add(items)
	g.usedBytes.Add(bytes)
	return true
}

// Release returns a reservation made with TryReserve.
func (g *Guard) Release(items, bytes int64) {
	g.items.Release(items)
	g.bytes.Release(bytes)
	g.usedItems.Add(-items)
	g.usedBytes.Add(-bytes)
}

// Reset releases everything currently reserved.
func (g *Guard) Reset() {
	g.Release(g.usedItems.Load(), g.usedBytes.Load())
}

// Usage returns the current reservation.
func (g *Guard) Usage() Usage {
	return Usage{
		Items: g.usedItems.Load(),
		Bytes: g.usedBytes.Load(),
	}
}

// Limits returns the configured limits.
func (g *Guard) Limits() Limits {
	return g.limits
}
