// Package borrow implements a fail-fast shared/exclusive access check.
//
// It is not a lock: callers never wait. A conflicting acquire returns false
// immediately so the caller can surface the conflict instead of racing on
// the guarded state.
package borrow

import "sync/atomic"

const exclusive = -1

// Guard tracks whether its owner is idle, read by one or more callers,
// or written by exactly one caller.
//
// State encoding:
//   - 0: idle
//   - n > 0: n shared borrows
//   - -1: one exclusive borrow
type Guard struct {
	state     atomic.Int64
	conflicts atomic.Uint64
}

// TryShared acquires a shared borrow. It fails if an exclusive borrow is held.
func (g *Guard) TryShared() bool {
	for {
		cur := g.state.Load()
		if cur == exclusive {
			g.conflicts.Add(1)
			return false
		}
		if g.state.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// ReleaseShared releases a shared borrow acquired with TryShared.
func (g *Guard) ReleaseShared() {
	if g.state.Add(-1) < 0 {
		panic("borrow: ReleaseShared without matching TryShared")
	}
}

// TryExclusive acquires the exclusive borrow. It fails if any borrow is held.
func (g *Guard) TryExclusive() bool {
	if g.state.CompareAndSwap(0, exclusive) {
		return true
	}
	g.conflicts.Add(1)
	return false
}

// ReleaseExclusive releases the exclusive borrow acquired with TryExclusive.
func (g *Guard) ReleaseExclusive() {
	if !g.state.CompareAndSwap(exclusive, 0) {
		panic("borrow: ReleaseExclusive without matching TryExclusive")
	}
}

// Readers returns the number of shared borrows currently held.
func (g *Guard) Readers() int {
	if cur := g.state.Load(); cur > 0 {
		return int(cur)
	}
	return 0
}

// Writing reports whether the exclusive borrow is held.
func (g *Guard) Writing() bool {
	return g.state.Load() == exclusive
}

// Conflicts returns the number of rejected acquire attempts.
func (g *Guard) Conflicts() uint64 {
	return g.conflicts.Load()
}
