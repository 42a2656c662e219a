package arenakit

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_MillionAllocations(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a million values")
	}

	a, err := New[int](4, 1_000_300, gib)
	require.NoError(t, err)

	a.MustAlloc(42)
	a.MustAlloc(100)
	assert.Equal(t, SnapshotID(0), a.Snapshot())

	a.MustAlloc(200)
	assert.Equal(t, SnapshotID(1), a.Snapshot())

	for i := range 100 {
		a.MustAlloc(i)
	}
	assert.Equal(t, SnapshotID(2), a.Snapshot())
	assert.Equal(t, 103, a.TotalItems())

	want2 := append([]int{42, 100, 200}, seq(0, 100)...)
	check := func() {
		t.Helper()
		assert.Equal(t, []int{42, 100}, a.GetSnapshot(0))
		assert.Equal(t, []int{42, 100, 200}, a.GetSnapshot(1))
		if diff := cmp.Diff(want2, a.GetSnapshot(2)); diff != "" {
			t.Errorf("snapshot 2 mismatch (-want +got):\n%s", diff)
		}
	}
	check()

	for i := range 1_000_000 {
		_, err := a.Alloc(i)
		require.NoError(t, err)
	}

	assert.Equal(t, 18, a.TotalChunks())
	assert.Equal(t, 1_000_103, a.TotalItems())
	assert.Equal(t, 1_000_103*a.ElementSize(), a.TotalMemoryUsage())
	check()
}

func TestArena_SnapshotReadStability(t *testing.T) {
	a, err := New[int](3, 10_000, gib)
	require.NoError(t, err)

	var ids []SnapshotID
	var wants [][]int
	var all []int
	for round := range 20 {
		for i := range round * 7 {
			v := round*1000 + i
			a.MustAlloc(v)
			all = append(all, v)
		}
		ids = append(ids, a.Snapshot())
		wants = append(wants, slices.Clone(all))
	}

	for i, id := range ids {
		assert.Equal(t, SnapshotID(i), id)
		assert.Equal(t, len(wants[i]), a.SnapshotLen(id))
		if diff := cmp.Diff(wants[i], a.GetSnapshot(id), cmpEmpty); diff != "" {
			t.Errorf("snapshot %d mismatch (-want +got):\n%s", id, diff)
		}
		if diff := cmp.Diff(wants[i], slices.Collect(a.SnapshotSeq(id)), cmpEmpty); diff != "" {
			t.Errorf("snapshot seq %d mismatch (-want +got):\n%s", id, diff)
		}
	}
	assert.Equal(t, 20, a.SnapshotCount())
}

func TestArena_SnapshotOfFullChunk(t *testing.T) {
	a, err := New[int](2, 100, gib)
	require.NoError(t, err)

	a.MustAlloc(1)
	a.MustAlloc(2)
	id := a.Snapshot() // chunk 0 is full, no chunk 1 yet

	a.MustAlloc(3)
	assert.Equal(t, []int{1, 2}, a.GetSnapshot(id))
}

func TestArena_SnapshotSeesUpdates(t *testing.T) {
	a, err := New[int](2, 100, gib)
	require.NoError(t, err)

	h := a.MustAlloc(1)
	id := a.Snapshot()
	require.NoError(t, a.Set(h, 5))

	assert.Equal(t, []int{5}, a.GetSnapshot(id))
}

func TestArena_SnapshotRange(t *testing.T) {
	a, err := New[int](2, 100, gib)
	require.NoError(t, err)
	a.MustAlloc(1)
	a.Snapshot()

	for _, id := range []SnapshotID{-1, 1, 100} {
		err := recoverSnapshotPanic(func() { a.GetSnapshot(id) })
		var re *SnapshotRangeError
		require.True(t, errors.As(err, &re), "id %d", id)
		assert.Equal(t, id, re.ID)
		assert.Equal(t, 1, re.Count)
	}

	t.Run("AfterReset", func(t *testing.T) {
		a.Reset()
		err := recoverSnapshotPanic(func() { a.GetSnapshot(0) })
		var re *SnapshotRangeError
		require.True(t, errors.As(err, &re))
		assert.Zero(t, re.Count)

		assert.Panics(t, func() { a.SnapshotSeq(0) })
		assert.Panics(t, func() { a.SnapshotLen(0) })

		// A range panic releases the shared borrow.
		_, err = a.Alloc(1)
		assert.NoError(t, err)
	})
}

func TestArena_SnapshotSeqStopsOnReset(t *testing.T) {
	a, err := New[int](2, 100, gib)
	require.NoError(t, err)
	for i := range 10 {
		a.MustAlloc(i)
	}
	id := a.Snapshot()

	var got []int
	for v := range a.SnapshotSeq(id) {
		got = append(got, v)
		if v == 3 {
			a.Reset()
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

var cmpEmpty = cmp.Comparer(func(a, b []int) bool { return slices.Equal(a, b) })

func recoverSnapshotPanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
