package arenakit

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotFound is returned when a handle does not address a stored value.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is matched by every *QuotaExceededError.
	ErrQuotaExceeded = errors.New("arena capacity exceeded")

	// ErrInvalidCapacity is returned when the initial chunk capacity is not positive.
	ErrInvalidCapacity = errors.New("initial chunk capacity must be positive")

	// ErrInvalidQuota is returned when a quota is negative.
	ErrInvalidQuota = errors.New("quota must not be negative")

	// ErrBorrowConflict is returned (or panicked with) when an access overlaps
	// a conflicting access to the same arena.
	ErrBorrowConflict = errors.New("arena already borrowed")

	// ErrStaleIterator is reported by an iterator whose arena was reset.
	ErrStaleIterator = errors.New("arena was reset during iteration")

	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("decode arena")

	// ErrMemoryLimitExceeded is returned when a shared resource controller
	// refuses the memory for a new chunk.
	ErrMemoryLimitExceeded = errors.New("shared memory limit exceeded")
)

// QuotaExceededError reports a rejected allocation with the current and
// limit values of both quotas.
type QuotaExceededError struct {
	CurrentItems int64
	MaxItems     int64
	CurrentBytes int64
	MaxBytes     int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("arena capacity exceeded, %d/%d items, %s/%s",
		e.CurrentItems, e.MaxItems,
		humanize.IBytes(uint64(e.CurrentBytes)), humanize.IBytes(uint64(e.MaxBytes)))
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// HandleNotFoundError reports a handle that does not resolve.
type HandleNotFoundError struct {
	Handle Handle
	// Stale is true when the handle was issued before the last Reset.
	Stale bool
}

func (e *HandleNotFoundError) Error() string {
	if e.Stale {
		return fmt.Sprintf("handle %s not found: issued before reset", e.Handle)
	}
	return fmt.Sprintf("handle %s not found", e.Handle)
}

func (e *HandleNotFoundError) Is(target error) bool { return target == ErrNotFound }

// SnapshotRangeError is the panic value of GetSnapshot for an unknown id.
type SnapshotRangeError struct {
	ID    SnapshotID
	Count int
}

func (e *SnapshotRangeError) Error() string {
	return fmt.Sprintf("snapshot %d out of range [0, %d)", e.ID, e.Count)
}

// DecodeError reports malformed encoded input. Field names the offending
// field; it is empty for envelope faults such as a bad checksum.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DecodeError struct {
	Field  string
	Reason string
	cause  error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode arena: %s", e.Reason)
	}
	return fmt.Sprintf("decode arena: field %q: %s", e.Field, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.cause }
