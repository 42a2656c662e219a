package arenakit

import "fmt"

// Handle addresses a stored value by chunk and slot.
//
// A handle stays valid as the arena grows. Generation ties it to the arena
// state it was issued under: after Reset, older handles no longer resolve.
type Handle struct {
	Chunk      int    `json:"chunk"`
	Slot       int    `json:"slot"`
	Generation uint64 `json:"generation"`
}

func (h Handle) String() string {
	return fmt.Sprintf("(%d,%d)@%d", h.Chunk, h.Slot, h.Generation)
}

// SnapshotID identifies a recorded snapshot mark. Ids are assigned
// sequentially from 0.
type SnapshotID int
