package arenakit

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting arena metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
//
// Methods are called synchronously on the arena's call path and must be
// cheap. RecordAlloc is called once per allocation attempt.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation attempt.
	// err is nil if the value was stored.
	RecordAlloc(err error)

	// RecordChunkGrowth is called when a new chunk of the given capacity is
	// appended.
	RecordChunkGrowth(capacity int)

	// RecordSnapshot is called after a snapshot mark is recorded.
	RecordSnapshot()

	// RecordReset is called after each reset.
	RecordReset()

	// RecordEncode is called after each encode. bytes is the frame size.
	RecordEncode(bytes int, duration time.Duration, err error)

	// RecordDecode is called after each decode. bytes is the input size.
	RecordDecode(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(error)                      {}
func (NoopMetricsCollector) RecordChunkGrowth(int)                  {}
func (NoopMetricsCollector) RecordSnapshot()                        {}
func (NoopMetricsCollector) RecordReset()                           {}
func (NoopMetricsCollector) RecordEncode(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDecode(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount       atomic.Int64
	AllocRejected    atomic.Int64
	ChunkGrowths     atomic.Int64
	ChunkSlotsAdded  atomic.Int64
	SnapshotCount    atomic.Int64
	ResetCount       atomic.Int64
	EncodeCount      atomic.Int64
	EncodeErrors     atomic.Int64
	EncodeBytes      atomic.Int64
	EncodeTotalNanos atomic.Int64
	DecodeCount      atomic.Int64
	DecodeErrors     atomic.Int64
	DecodeBytes      atomic.Int64
	DecodeTotalNanos atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(err error) {
	b.AllocCount.Add(1)
	if err != nil {
		b.AllocRejected.Add(1)
	}
}

// RecordChunkGrowth implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkGrowth(capacity int) {
	b.ChunkGrowths.Add(1)
	b.ChunkSlotsAdded.Add(int64(capacity))
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot() { b.SnapshotCount.Add(1) }

// RecordReset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReset() { b.ResetCount.Add(1) }

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(bytes int, duration time.Duration, err error) {
	b.EncodeCount.Add(1)
	b.EncodeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EncodeErrors.Add(1)
		return
	}
	b.EncodeBytes.Add(int64(bytes))
}

// RecordDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecode(bytes int, duration time.Duration, err error) {
	b.DecodeCount.Add(1)
	b.DecodeTotalNanos.Add(duration.Nanoseconds())
	b.DecodeBytes.Add(int64(bytes))
	if err != nil {
		b.DecodeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:      b.AllocCount.Load(),
		AllocRejected:   b.AllocRejected.Load(),
		ChunkGrowths:    b.ChunkGrowths.Load(),
		ChunkSlotsAdded: b.ChunkSlotsAdded.Load(),
		SnapshotCount:   b.SnapshotCount.Load(),
		ResetCount:      b.ResetCount.Load(),
		EncodeCount:     b.EncodeCount.Load(),
		EncodeErrors:    b.EncodeErrors.Load(),
		EncodeBytes:     b.EncodeBytes.Load(),
		EncodeAvgNanos:  avgNanos(b.EncodeTotalNanos.Load(), b.EncodeCount.Load()),
		DecodeCount:     b.DecodeCount.Load(),
		DecodeErrors:    b.DecodeErrors.Load(),
		DecodeBytes:     b.DecodeBytes.Load(),
		DecodeAvgNanos:  avgNanos(b.DecodeTotalNanos.Load(), b.DecodeCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount      int64
	AllocRejected   int64
	ChunkGrowths    int64
	ChunkSlotsAdded int64
	SnapshotCount   int64
	ResetCount      int64
	EncodeCount     int64
	EncodeErrors    int64
	EncodeBytes     int64
	EncodeAvgNanos  int64
	DecodeCount     int64
	DecodeErrors    int64
	DecodeBytes     int64
	DecodeAvgNanos  int64
}
