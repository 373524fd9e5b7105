package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagectx/internal/domain"
)

func count(t *testing.T, c *MemoryStore) int {
	t.Helper()
	n, err := c.Count()
	require.NoError(t, err)
	return n
}

func TestMemoryStore_GetPut(t *testing.T) {
	c := NewMemoryStore(4, 0)

	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("a", domain.Vector{1, 2}))
	v, ok, err := c.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Vector{1, 2}, v)

	require.NoError(t, c.Put("a", domain.Vector{3}))
	v, _, _ = c.Get("a")
	assert.Equal(t, domain.Vector{3}, v)
	assert.Equal(t, 1, count(t, c))
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryStore(2, 0)

	require.NoError(t, c.Put("a", domain.Vector{1}))
	require.NoError(t, c.Put("b", domain.Vector{2}))

	// Touch a so b becomes the oldest.
	_, ok, _ := c.Get("a")
	require.True(t, ok)

	require.NoError(t, c.Put("c", domain.Vector{3}))

	_, ok, _ = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok, _ = c.Get("a")
	assert.True(t, ok)
	_, ok, _ = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, count(t, c))
}

func TestMemoryStore_TTL(t *testing.T) {
	c := NewMemoryStore(4, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put("a", domain.Vector{1}))

	now = now.Add(30 * time.Second)
	_, ok, _ := c.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, count(t, c))
}

func TestMemoryStore_PutAfterExpiry(t *testing.T) {
	c := NewMemoryStore(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put("a", domain.Vector{1}))
	now = now.Add(2 * time.Minute)
	_, ok, _ := c.Get("a")
	require.False(t, ok)

	require.NoError(t, c.Put("a", domain.Vector{2}))
	require.NoError(t, c.Put("b", domain.Vector{3}))
	v, ok, _ := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, domain.Vector{2}, v)
	assert.Equal(t, []string{"b", "a"}, c.order)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	c := NewMemoryStore(8, 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			assert.NoError(t, c.Put(key, domain.Vector{float32(i)}))
			_, _, err := c.Get(key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n := count(t, c)
	assert.LessOrEqual(t, n, 8)
	assert.Len(t, c.order, n)
}

func TestMemoryStore_DefaultSize(t *testing.T) {
	c := NewMemoryStore(0, 0)
	assert.Equal(t, 1024, c.maxSize)
}
