package scope

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionRegistry_RoundsShardsUp(t *testing.T) {
	assert.Len(t, NewSessionRegistry(0).shards, 1)
	assert.Len(t, NewSessionRegistry(5).shards, 8)
	assert.Len(t, NewSessionRegistry(16).shards, 16)
}

func TestSessionRegistry_AddIfAbsent(t *testing.T) {
	r := NewSessionRegistry(4)
	first := NewSessionContext(nil)
	second := NewSessionContext(nil)

	actual, added := r.AddIfAbsent("s1", first)
	assert.True(t, added)
	assert.Same(t, first, actual)

	actual, added = r.AddIfAbsent("s1", second)
	assert.False(t, added)
	assert.Same(t, first, actual)
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_RemoveIfOnlyMatchingContext(t *testing.T) {
	r := NewSessionRegistry(4)
	registered := NewSessionContext(nil)
	r.AddIfAbsent("s1", registered)

	assert.False(t, r.RemoveIf("s1", NewSessionContext(nil)))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.RemoveIf("s1", registered))
	assert.Zero(t, r.Len())

	_, ok := r.Remove("s1")
	assert.False(t, ok)
}

func TestSessionRegistry_UpdateID(t *testing.T) {
	r := NewSessionRegistry(8)
	ctx := NewSessionContext(nil)
	ctx.SetSessionID("old")
	r.AddIfAbsent("old", ctx)

	assert.False(t, r.UpdateID("missing", "new"))
	require.True(t, r.UpdateID("old", "new"))

	_, ok := r.Get("old")
	assert.False(t, ok)
	got, ok := r.Get("new")
	require.True(t, ok)
	assert.Same(t, ctx, got)
	assert.Equal(t, "new", ctx.SessionID())

	// 目标标识上已有的登记被覆盖
	other := NewSessionContext(nil)
	r.AddIfAbsent("other", other)
	require.True(t, r.UpdateID("other", "new"))
	got, _ = r.Get("new")
	assert.Same(t, other, got)
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_ConcurrentRemapBothDirections(t *testing.T) {
	r := NewSessionRegistry(2)
	for i := 0; i < 64; i++ {
		r.AddIfAbsent(fmt.Sprintf("a%d", i), NewSessionContext(nil))
	}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.UpdateID(fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			r.UpdateID(fmt.Sprintf("b%d", i), fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 64, r.Len())
}

func TestSessionRegistry_SnapshotAndClear(t *testing.T) {
	r := NewSessionRegistry(4)
	for i := 0; i < 10; i++ {
		r.AddIfAbsent(fmt.Sprintf("s%d", i), NewSessionContext(nil))
	}
	snap := r.Snapshot()
	assert.Len(t, snap, 10)

	r.Clear()
	assert.Zero(t, r.Len())
	assert.Len(t, snap, 10)
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[uint32]uint32{0: 1, 1: 1, 2: 2, 3: 4, 17: 32, 64: 64}
	for in, want := range cases {
		assert.Equal(t, want, nextPowerOfTwo(in), "input %d", in)
	}
}
