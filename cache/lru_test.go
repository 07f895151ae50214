package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evictions records deleter invocations in order.
type evictions struct {
	keys []string
}

func (e *evictions) deleter() Deleter[int] {
	return func(key string, value int) {
		e.keys = append(e.keys, key)
	}
}

func insertAndRelease(c Cache[int], key string, value int, d Deleter[int]) {
	h := c.Insert(key, value, 1, d)
	c.Release(h)
}

func TestLookupMiss(t *testing.T) {
	c := NewLRUCache[int](10)
	assert.Nil(t, c.Lookup("absent"))
}

func TestInsertLookup(t *testing.T) {
	c := NewLRUCache[int](10)

	h := c.Insert("a", 1, 1, nil)
	assert.Equal(t, 1, h.Value())
	c.Release(h)

	h = c.Lookup("a")
	require.NotNil(t, h)
	assert.Equal(t, 1, h.Value())
	c.Release(h)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(1), c.TotalCharge())
}

func TestEvictionLRUOrder(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](3)

	for i := 1; i <= 5; i++ {
		insertAndRelease(c, fmt.Sprintf("k%d", i), i, ev.deleter())
	}

	// Exactly N - C entries evicted, oldest first.
	assert.Equal(t, []string{"k1", "k2"}, ev.keys)
	assert.Equal(t, 3, c.Len())
	assert.Nil(t, c.Lookup("k1"))
	assert.Nil(t, c.Lookup("k2"))
	for i := 3; i <= 5; i++ {
		h := c.Lookup(fmt.Sprintf("k%d", i))
		require.NotNil(t, h, "k%d", i)
		c.Release(h)
	}
}

func TestLookupPromotesToMRU(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](2)

	insertAndRelease(c, "a", 1, ev.deleter())
	insertAndRelease(c, "b", 2, ev.deleter())

	// Touch "a" so "b" becomes the eviction victim.
	h := c.Lookup("a")
	require.NotNil(t, h)
	c.Release(h)

	insertAndRelease(c, "c", 3, ev.deleter())
	assert.Equal(t, []string{"b"}, ev.keys)
}

func TestPinnedEntriesSurviveEviction(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](1)

	hA := c.Insert("a", 1, 1, ev.deleter())
	insertAndRelease(c, "b", 2, ev.deleter())

	// "a" is pinned: capacity is exceeded but it must not be dropped.
	assert.Empty(t, ev.keys)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, hA.Value())

	// Once released, the next insert can reclaim it.
	c.Release(hA)
	insertAndRelease(c, "c", 3, ev.deleter())
	assert.Contains(t, ev.keys, "a")
	assert.LessOrEqual(t, c.TotalCharge(), uint64(1))
}

func TestEraseUnpinned(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](10)

	insertAndRelease(c, "a", 1, ev.deleter())
	c.Erase("a")

	assert.Equal(t, []string{"a"}, ev.keys)
	assert.Nil(t, c.Lookup("a"))
	assert.Equal(t, 0, c.Len())

	// Erasing an absent key is a no-op.
	c.Erase("a")
	assert.Equal(t, []string{"a"}, ev.keys)
}

func TestErasePinnedDefersDeleter(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](10)

	h := c.Insert("a", 1, 1, ev.deleter())
	c.Erase("a")

	// Unreachable immediately, but the pinned value survives.
	assert.Nil(t, c.Lookup("a"))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, ev.keys)
	assert.Equal(t, 1, h.Value())

	// Dropped exactly once, on the final release.
	c.Release(h)
	assert.Equal(t, []string{"a"}, ev.keys)
}

func TestEraseWithMultiplePins(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](10)

	h1 := c.Insert("a", 1, 1, ev.deleter())
	h2 := c.Lookup("a")
	require.NotNil(t, h2)

	c.Erase("a")
	c.Release(h1)
	assert.Empty(t, ev.keys)
	c.Release(h2)
	assert.Equal(t, []string{"a"}, ev.keys)
}

func TestInsertDisplacesExisting(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](10)

	h1 := c.Insert("a", 1, 1, ev.deleter())
	h2 := c.Insert("a", 2, 1, ev.deleter())

	// Lookups observe the new value.
	h3 := c.Lookup("a")
	require.NotNil(t, h3)
	assert.Equal(t, 2, h3.Value())

	// The displaced value lives until its handle is released.
	assert.Empty(t, ev.keys)
	assert.Equal(t, 1, h1.Value())
	c.Release(h1)
	assert.Equal(t, []string{"a"}, ev.keys)

	c.Release(h2)
	c.Release(h3)
	assert.Equal(t, []string{"a"}, ev.keys)
	assert.Equal(t, 1, c.Len())
}

func TestChargeAccounting(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](100)

	insertAndRelease(c, "small", 1, ev.deleter())
	h := c.Insert("big", 2, 90, ev.deleter())
	c.Release(h)
	assert.Equal(t, uint64(91), c.TotalCharge())

	// A large insert evicts both.
	h = c.Insert("huge", 3, 100, ev.deleter())
	assert.Equal(t, []string{"small", "big"}, ev.keys)
	assert.Equal(t, uint64(100), c.TotalCharge())
	c.Release(h)
}

func TestClose(t *testing.T) {
	ev := &evictions{}
	c := NewLRUCache[int](10)

	insertAndRelease(c, "a", 1, ev.deleter())
	pinned := c.Insert("b", 2, 1, ev.deleter())

	c.Close()
	assert.Equal(t, []string{"a"}, ev.keys)
	assert.Equal(t, 0, c.Len())

	// The pinned entry is dropped on its final release.
	c.Release(pinned)
	assert.ElementsMatch(t, []string{"a", "b"}, ev.keys)
}

func TestShardedCacheBasics(t *testing.T) {
	c := NewShardedCache[int](1024, 16)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%03d", i)
		h := c.Insert(key, i, 1, nil)
		c.Release(h)
	}
	assert.Equal(t, 100, c.Len())
	assert.Equal(t, uint64(100), c.TotalCharge())

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%03d", i)
		h := c.Lookup(key)
		require.NotNil(t, h, key)
		assert.Equal(t, i, h.Value())
		c.Release(h)
	}

	c.Erase("key-007")
	assert.Nil(t, c.Lookup("key-007"))
	assert.Equal(t, 99, c.Len())

	c.Close()
	assert.Equal(t, 0, c.Len())
}

func TestShardedCacheConcurrent(t *testing.T) {
	c := NewShardedCache[int](256, 8)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("g%d-i%d", g, i%50)
				if h := c.Lookup(key); h != nil {
					c.Release(h)
					continue
				}
				h := c.Insert(key, i, 1, nil)
				c.Release(h)
				if i%7 == 0 {
					c.Erase(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.TotalCharge(), uint64(256))
}
