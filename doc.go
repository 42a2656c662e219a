// Package arenakit provides a typed, chunked memory arena for Go.
//
// An Arena hands out stable handles to the values it stores. Values live in
// chunks whose capacity doubles as the arena grows; a chunk is never resized
// or moved, so a handle keeps resolving to the same value however many
// values are allocated after it.
//
// # Quick Start
//
//	a, _ := arenakit.New[string](4, 1_000, 1<<20)
//	h, _ := a.Alloc("thor")
//	v, _ := a.Get(h)
//	_ = a.Update(h, func(s *string) { *s += "!" })
//
// # Quotas
//
// Every arena is bounded by an item quota and a byte quota fixed at
// construction. Memory is accounted as stored values × ElementSize, not
// measured. A rejected Alloc returns a *QuotaExceededError and leaves the
// arena unchanged:
//
//	if _, err := a.Alloc(v); errors.Is(err, arenakit.ErrQuotaExceeded) {
//	    // reset, or stop producing
//	}
//
// Arenas can additionally share a resource.Controller, which bounds the
// chunk memory of all of them together.
//
// # Snapshots
//
// Snapshot records the current end of the arena. GetSnapshot later returns
// exactly the values that existed at that moment, regardless of what was
// allocated since:
//
//	id := a.Snapshot()
//	a.Alloc("loki")
//	before := a.GetSnapshot(id) // does not contain "loki"
//
// Reset clears all snapshots. Asking for an id that is unknown, including an
// id issued before a Reset, is a programming error and panics.
//
// # Iteration
//
// Iter, All and Values walk the values in allocation order. A walk covers
// the values that existed when it started:
//
//	for h, v := range a.All() {
//	    fmt.Println(h, v)
//	}
//
// # Access Checking
//
// An Arena is not safe for concurrent use, but overlapping accesses are
// detected rather than silently racing. Writes (Alloc, Set, Update,
// Snapshot, Reset) need exclusive access; reads (Get, GetSnapshot, each
// iterator step, Encode) share access. A conflicting call fails fast with
// ErrBorrowConflict instead of blocking. The most common case is calling
// back into the arena from an Update callback.
//
// # Encoding
//
// Encode captures the whole arena in a checksummed frame that Decode turns
// back into an equal arena, including snapshots and outstanding handles:
//
//	data, _ := a.Encode()
//	b, err := arenakit.Decode[string](data)
//
// Chunk values are encoded with a codec.Codec (go-json by default) and the
// frame can be compressed with LZ4 or ZSTD (see WithCompression).
package arenakit
