package arenakit

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/arenakit/resource"
)

const gib = 1 << 30

func TestNew(t *testing.T) {
	t.Run("ZeroCapacity", func(t *testing.T) {
		_, err := New[int](0, 10, 1024)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("NegativeCapacity", func(t *testing.T) {
		_, err := New[int](-1, 10, 1024)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("NegativeQuota", func(t *testing.T) {
		_, err := New[int](4, -1, 1024)
		assert.ErrorIs(t, err, ErrInvalidQuota)

		_, err = New[int](4, 10, -1)
		assert.ErrorIs(t, err, ErrInvalidQuota)
	})

	t.Run("Empty", func(t *testing.T) {
		a, err := New[int64](4, 10, 1024)
		require.NoError(t, err)

		assert.Equal(t, 1, a.TotalChunks())
		assert.Zero(t, a.TotalItems())
		assert.Zero(t, a.TotalMemoryUsage())
		assert.Equal(t, 10, a.MaxItems())
		assert.Equal(t, 1024, a.MaxMemoryBytes())
		assert.Equal(t, 8, a.ElementSize())
	})
}

func TestArena_AllocGet(t *testing.T) {
	a, err := New[string](2, 100, gib)
	require.NoError(t, err)

	h1, err := a.Alloc("thor")
	require.NoError(t, err)
	h2 := a.MustAlloc("loki")

	assert.Equal(t, Handle{Chunk: 0, Slot: 0}, h1)
	assert.Equal(t, Handle{Chunk: 0, Slot: 1}, h2)

	v, err := a.Get(h1)
	require.NoError(t, err)
	assert.Equal(t, "thor", v)

	t.Run("NotFound", func(t *testing.T) {
		for _, h := range []Handle{
			{Chunk: 0, Slot: 2},
			{Chunk: 1, Slot: 0},
			{Chunk: -1, Slot: 0},
			{Chunk: 0, Slot: -1},
		} {
			_, err := a.Get(h)
			assert.ErrorIs(t, err, ErrNotFound, h.String())

			var nf *HandleNotFoundError
			require.True(t, errors.As(err, &nf))
			assert.False(t, nf.Stale)
		}
	})
}

func TestArena_Growth(t *testing.T) {
	tests := []struct {
		initial int
		n       int
		chunks  int
	}{
		{initial: 1, n: 0, chunks: 1},
		{initial: 1, n: 1, chunks: 1},
		{initial: 1, n: 2, chunks: 2},
		{initial: 1, n: 3, chunks: 2},
		{initial: 1, n: 4, chunks: 3},
		{initial: 4, n: 4, chunks: 1},
		{initial: 4, n: 5, chunks: 2},
		{initial: 4, n: 12, chunks: 2},
		{initial: 4, n: 13, chunks: 3},
		{initial: 3, n: 100, chunks: 6},
	}

	for _, tt := range tests {
		a, err := New[int](tt.initial, 1_000, gib)
		require.NoError(t, err)

		for i := range tt.n {
			a.MustAlloc(i)
		}

		assert.Equal(t, tt.n, a.TotalItems(), "initial=%d n=%d", tt.initial, tt.n)
		assert.Equal(t, tt.chunks, a.TotalChunks(), "initial=%d n=%d", tt.initial, tt.n)
		assert.Equal(t, tt.n*a.ElementSize(), a.TotalMemoryUsage())

		for c := range a.TotalChunks() {
			assert.Equal(t, tt.initial<<c, a.store.Capacity(c))
		}
	}
}

func TestArena_HandleStability(t *testing.T) {
	a, err := New[int](1, 10_000, gib)
	require.NoError(t, err)

	first := a.MustAlloc(42)
	for i := range 5_000 {
		a.MustAlloc(i)
	}

	v, err := a.Get(first)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	require.NoError(t, a.Set(first, 7))
	for i := range 5_000 {
		a.MustAlloc(i)
	}

	v, err = a.Get(first)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestArena_UpdateStrings(t *testing.T) {
	a, err := New[string](2, 100, gib)
	require.NoError(t, err)

	names := []string{"peter", "tony", "bruce", "natasha", "clint"}
	handles := make([]Handle, len(names))
	for i, n := range names {
		handles[i] = a.MustAlloc(n)
	}

	for _, h := range handles {
		require.NoError(t, a.Update(h, func(s *string) {
			*s = strings.ToUpper(*s) + "!"
		}))
	}

	got := slices.Collect(a.Values())
	assert.Equal(t, []string{"PETER!", "TONY!", "BRUCE!", "NATASHA!", "CLINT!"}, got)

	err = a.Update(Handle{Chunk: 9}, func(*string) { t.Fatal("called for missing handle") })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArena_Quota(t *testing.T) {
	t.Run("Items", func(t *testing.T) {
		a, err := New[int64](4, 3, 1024)
		require.NoError(t, err)

		for i := range 3 {
			a.MustAlloc(int64(i))
		}
		before := a.Stats()

		_, err = a.Alloc(99)
		require.ErrorIs(t, err, ErrQuotaExceeded)

		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, QuotaExceededError{CurrentItems: 3, MaxItems: 3, CurrentBytes: 24, MaxBytes: 1024}, *qe)
		assert.Contains(t, err.Error(), "3/3 items")

		assert.Equal(t, before, a.Stats())
		assert.Equal(t, []int64{0, 1, 2}, slices.Collect(a.Values()))
	})

	t.Run("BytesInclusive", func(t *testing.T) {
		a, err := New[int64](4, 100, 16)
		require.NoError(t, err)

		a.MustAlloc(1)
		a.MustAlloc(2)
		assert.Equal(t, 16, a.TotalMemoryUsage())

		_, err = a.Alloc(3)
		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, int64(16), qe.CurrentBytes)
		assert.Equal(t, int64(16), qe.MaxBytes)
		assert.Equal(t, 2, a.TotalItems())
	})

	t.Run("RejectedGrowthLeavesChunks", func(t *testing.T) {
		a, err := New[int64](2, 2, 1024)
		require.NoError(t, err)

		a.MustAlloc(1)
		a.MustAlloc(2)
		_, err = a.Alloc(3)
		require.ErrorIs(t, err, ErrQuotaExceeded)
		assert.Equal(t, 1, a.TotalChunks())
	})

	t.Run("ZeroQuota", func(t *testing.T) {
		a, err := New[int64](4, 0, 0)
		require.NoError(t, err)

		_, err = a.Alloc(1)
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("ZeroSizedValues", func(t *testing.T) {
		a, err := New[struct{}](1, 3, 0)
		require.NoError(t, err)

		for range 3 {
			a.MustAlloc(struct{}{})
		}
		assert.Zero(t, a.TotalMemoryUsage())

		_, err = a.Alloc(struct{}{})
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})
}

func TestArena_Reset(t *testing.T) {
	a, err := New[int](4, 10, 1024)
	require.NoError(t, err)

	old := a.MustAlloc(1)
	for i := range 9 {
		a.MustAlloc(i)
	}
	a.Snapshot()
	require.Greater(t, a.TotalChunks(), 1)

	a.Reset()

	assert.Equal(t, 1, a.TotalChunks())
	assert.Zero(t, a.TotalItems())
	assert.Zero(t, a.TotalMemoryUsage())
	assert.Zero(t, a.SnapshotCount())
	assert.Equal(t, uint64(1), a.Generation())
	assert.Equal(t, 1, a.store.Capacity(0))

	_, err = a.Get(old)
	var nf *HandleNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.True(t, nf.Stale)

	// The quota is available again.
	for i := range 10 {
		h := a.MustAlloc(i)
		assert.Equal(t, uint64(1), h.Generation)
	}
	_, err = a.Alloc(10)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestArena_BorrowConflicts(t *testing.T) {
	a, err := New[int](4, 100, gib)
	require.NoError(t, err)
	h := a.MustAlloc(1)
	a.Snapshot()

	err = a.Update(h, func(v *int) {
		_, err := a.Alloc(2)
		assert.ErrorIs(t, err, ErrBorrowConflict)

		_, err = a.Get(h)
		assert.ErrorIs(t, err, ErrBorrowConflict)

		assert.ErrorIs(t, a.Set(h, 3), ErrBorrowConflict)

		_, err = a.Encode()
		assert.ErrorIs(t, err, ErrBorrowConflict)

		it := a.Iter(0)
		assert.False(t, it.Next())
		assert.ErrorIs(t, it.Err(), ErrBorrowConflict)

		assert.PanicsWithValue(t, ErrBorrowConflict, func() { a.Snapshot() })
		assert.PanicsWithValue(t, ErrBorrowConflict, func() { a.GetSnapshot(0) })
		assert.PanicsWithValue(t, ErrBorrowConflict, func() { a.SnapshotLen(0) })
		assert.PanicsWithValue(t, ErrBorrowConflict, func() { a.SnapshotSeq(0) })
		assert.PanicsWithValue(t, ErrBorrowConflict, func() { a.Reset() })
		assert.ErrorIs(t, a.Close(), ErrBorrowConflict)

		*v = 10
	})
	require.NoError(t, err)

	// The arena is usable again once the callback returns.
	v, err := a.Get(h)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, a.TotalItems())
	assert.NotZero(t, a.Stats().BorrowConflicts)
}

func TestArena_SharedResourceController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})

	a, err := New[int64](4, 100, gib, WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, int64(32), rc.MemoryUsage())

	for i := range 4 {
		a.MustAlloc(int64(i))
	}

	// The next chunk holds 8 values (64 bytes) and does not fit.
	_, err = a.Alloc(4)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, 4, a.TotalItems())
	assert.Equal(t, 32, a.TotalMemoryUsage())
	assert.Equal(t, int64(32), rc.MemoryUsage())

	t.Run("SecondArenaShares", func(t *testing.T) {
		_, err := New[int64](8, 100, gib, WithResourceController(rc))
		assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	})

	a.Reset()
	assert.Equal(t, int64(8), rc.MemoryUsage())

	require.NoError(t, a.Close())
	assert.Zero(t, rc.MemoryUsage())
	assert.Zero(t, a.TotalItems())
}

func TestArena_Observability(t *testing.T) {
	var logs bytes.Buffer
	metrics := &BasicMetricsCollector{}

	a, err := New[int](1, 3, gib,
		WithLogger(NewLogger(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)

	for i := range 4 {
		_, _ = a.Alloc(i)
	}
	a.Snapshot()
	a.Reset()

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.AllocCount)
	assert.Equal(t, int64(1), stats.AllocRejected)
	assert.Equal(t, int64(1), stats.ChunkGrowths) // 1 -> 2
	assert.Equal(t, int64(2), stats.ChunkSlotsAdded)
	assert.Equal(t, int64(1), stats.SnapshotCount)
	assert.Equal(t, int64(1), stats.ResetCount)

	out := logs.String()
	assert.Contains(t, out, `"msg":"chunk allocated"`)
	assert.Contains(t, out, `"msg":"allocation rejected"`)
	assert.Contains(t, out, `"msg":"arena reset"`)
}

func TestArena_String(t *testing.T) {
	a, err := New[int64](4, 10, 1024)
	require.NoError(t, err)
	a.MustAlloc(1)
	a.Snapshot()

	assert.Equal(t, "Arena[int64]{chunks: 1, items: 1/10, memory: 8 B/1.0 KiB, snapshots: 1}", a.String())
}

func BenchmarkArena_Alloc(b *testing.B) {
	a, err := New[int](64, 1<<62, 1<<62)
	require.NoError(b, err)

	b.ReportAllocs()
	for b.Loop() {
		a.MustAlloc(1)
	}
}

func BenchmarkArena_Iterate(b *testing.B) {
	a, err := New[int](64, 1<<62, 1<<62)
	require.NoError(b, err)
	for i := range 100_000 {
		a.MustAlloc(i)
	}

	for b.Loop() {
		sum := 0
		for v := range a.Values() {
			sum += v
		}
		_ = sum
	}
}
