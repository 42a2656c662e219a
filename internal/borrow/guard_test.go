package borrow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_SharedExcludesWriter(t *testing.T) {
	var g Guard

	require.True(t, g.TryShared())
	require.True(t, g.TryShared())
	assert.Equal(t, 2, g.Readers())

	assert.False(t, g.TryExclusive(), "writer must not enter while readers are active")
	assert.Equal(t, uint64(1), g.Conflicts())

	g.ReleaseShared()
	g.ReleaseShared()
	assert.Equal(t, 0, g.Readers())

	require.True(t, g.TryExclusive())
	assert.True(t, g.Writing())
	g.ReleaseExclusive()
	assert.False(t, g.Writing())
}

func TestGuard_WriterExcludesEveryone(t *testing.T) {
	var g Guard

	require.True(t, g.TryExclusive())
	assert.False(t, g.TryShared())
	assert.False(t, g.TryExclusive())
	assert.Equal(t, uint64(2), g.Conflicts())

	g.ReleaseExclusive()
	assert.True(t, g.TryShared())
	g.ReleaseShared()
}

func TestGuard_UnbalancedReleasePanics(t *testing.T) {
	t.Run("shared", func(t *testing.T) {
		var g Guard
		assert.Panics(t, func() { g.ReleaseShared() })
	})

	t.Run("exclusive", func(t *testing.T) {
		var g Guard
		assert.Panics(t, func() { g.ReleaseExclusive() })
	})
}

func TestGuard_ConcurrentReaders(t *testing.T) {
	var g Guard
	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				if g.TryShared() {
					g.ReleaseShared()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, g.Readers())
	assert.True(t, g.TryExclusive())
}
