// Package cache provides a bounded, reference-counted LRU cache with
// pinning, and a sharded variant for contended workloads.
//
// An entry is a value plus two counters: residency (is it in the index?)
// and pin count (how many live handles?). The value is dropped, and its
// deleter run, only when both reach zero. Pinned entries survive both
// eviction pressure and Erase; an erased pinned entry merely becomes
// unreachable.
package cache

import (
	"container/list"
	"sync"

	"github.com/awfeequdng/wickdb/internal/checksum"
)

// Deleter is invoked exactly once when an entry's value is dropped.
type Deleter[V any] func(key string, value V)

// Cache is the interface shared by the plain and sharded LRU caches.
type Cache[V any] interface {
	// Insert adds an entry, displacing any existing entry under the same
	// key, and returns a pinned handle to it. If the total charge exceeds
	// capacity, least-recently-used unpinned entries are evicted until
	// capacity holds or only pinned entries remain.
	Insert(key string, value V, charge uint64, deleter Deleter[V]) *Handle[V]

	// Lookup returns a pinned handle on hit, promoting the entry to
	// most-recently-used, or nil on miss.
	Lookup(key string) *Handle[V]

	// Release drops a pin obtained from Insert or Lookup. Each handle must
	// be released exactly once.
	Release(h *Handle[V])

	// Erase makes the entry unreachable immediately; the value is dropped
	// once the last outstanding pin is released.
	Erase(key string)

	// TotalCharge returns the summed charge of resident entries.
	TotalCharge() uint64

	// Len returns the number of resident entries.
	Len() int

	// Close drops every unpinned resident entry.
	Close()
}

// entry is a cache slot. It stays alive after leaving the index while
// handles still pin it.
type entry[V any] struct {
	key     string
	value   V
	charge  uint64
	deleter Deleter[V]
	refs    int  // outstanding pins
	inCache bool // residency: still reachable via the index
}

// Handle is a pin on a cache entry. While any handle is outstanding the
// entry is not dropped.
type Handle[V any] struct {
	e *entry[V]
}

// Value returns the pinned value.
func (h *Handle[V]) Value() V {
	return h.e.value
}

// LRUCache is a single-shard, mutex-guarded LRU cache.
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity uint64
	usage    uint64
	table    map[string]*list.Element // of *entry[V]
	lru      *list.List               // front = most recently used
}

// NewLRUCache creates a cache bounded by capacity, in whatever unit the
// caller charges entries with (entry counts or bytes).
func NewLRUCache[V any](capacity uint64) *LRUCache[V] {
	return &LRUCache[V]{
		capacity: capacity,
		table:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func getEntry[V any](elem *list.Element) *entry[V] {
	e, _ := elem.Value.(*entry[V])
	return e
}

// Insert implements Cache.
func (c *LRUCache[V]) Insert(key string, value V, charge uint64, deleter Deleter[V]) *Handle[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Displace any existing entry; outstanding handles keep it alive.
	if elem, ok := c.table[key]; ok {
		c.removeElement(elem)
	}

	e := &entry[V]{
		key:     key,
		value:   value,
		charge:  charge,
		deleter: deleter,
		refs:    1,
		inCache: true,
	}
	c.table[key] = c.lru.PushFront(e)
	c.usage += charge

	c.evictWhileOver()

	return &Handle[V]{e: e}
}

// Lookup implements Cache.
func (c *LRUCache[V]) Lookup(key string) *Handle[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.table[key]
	if !ok {
		return nil
	}
	c.lru.MoveToFront(elem)
	e := getEntry[V](elem)
	e.refs++
	return &Handle[V]{e: e}
}

// Release implements Cache.
func (c *LRUCache[V]) Release(h *Handle[V]) {
	if h == nil {
		return
	}
	c.mu.Lock()
	e := h.e
	e.refs--
	dead := e.refs == 0 && !e.inCache
	c.mu.Unlock()

	if dead && e.deleter != nil {
		e.deleter(e.key, e.value)
	}
}

// Erase implements Cache.
func (c *LRUCache[V]) Erase(key string) {
	c.mu.Lock()
	elem, ok := c.table[key]
	var dead *entry[V]
	if ok {
		e := c.removeElement(elem)
		if e.refs == 0 {
			dead = e
		}
	}
	c.mu.Unlock()

	if dead != nil && dead.deleter != nil {
		dead.deleter(dead.key, dead.value)
	}
}

// TotalCharge implements Cache.
func (c *LRUCache[V]) TotalCharge() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Len implements Cache.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.table)
}

// Close implements Cache. Pinned entries are dropped when their last
// handle is released.
func (c *LRUCache[V]) Close() {
	c.mu.Lock()
	var dead []*entry[V]
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		e := c.removeElement(elem)
		if e.refs == 0 {
			dead = append(dead, e)
		}
		elem = next
	}
	c.mu.Unlock()

	for _, e := range dead {
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	}
}

// removeElement takes an entry out of the index and LRU list.
// The caller owns running the deleter if refs is already zero.
// Must be called with mu held.
func (c *LRUCache[V]) removeElement(elem *list.Element) *entry[V] {
	e := getEntry[V](elem)
	delete(c.table, e.key)
	c.lru.Remove(elem)
	c.usage -= e.charge
	e.inCache = false
	return e
}

// evictWhileOver evicts unpinned entries in LRU order until usage fits
// capacity or only pinned entries remain. Must be called with mu held.
func (c *LRUCache[V]) evictWhileOver() {
	elem := c.lru.Back()
	for c.usage > c.capacity && elem != nil {
		prev := elem.Prev()
		e := getEntry[V](elem)
		if e.refs == 0 {
			c.removeElement(elem)
			if e.deleter != nil {
				e.deleter(e.key, e.value)
			}
		}
		elem = prev
	}
}

// ShardedCache reduces lock contention by hashing keys across independent
// LRU shards with identical semantics.
type ShardedCache[V any] struct {
	shards []*LRUCache[V]
}

// DefaultShardCount is used when NewShardedCache is given a non-positive
// shard count.
const DefaultShardCount = 16

// NewShardedCache creates a sharded cache. Capacity is divided evenly
// across shards; numShards is rounded up to a power of two.
func NewShardedCache[V any](capacity uint64, numShards int) *ShardedCache[V] {
	if numShards <= 0 {
		numShards = DefaultShardCount
	}
	numShards = nextPowerOf2(numShards)

	shardCapacity := capacity / uint64(numShards)
	if shardCapacity == 0 {
		shardCapacity = 1
	}

	c := &ShardedCache[V]{shards: make([]*LRUCache[V], numShards)}
	for i := range c.shards {
		c.shards[i] = NewLRUCache[V](shardCapacity)
	}
	return c
}

func nextPowerOf2(n int) int {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

func (c *ShardedCache[V]) shard(key string) *LRUCache[V] {
	return c.shards[checksum.HashString(key)&uint64(len(c.shards)-1)]
}

// Insert implements Cache.
func (c *ShardedCache[V]) Insert(key string, value V, charge uint64, deleter Deleter[V]) *Handle[V] {
	return c.shard(key).Insert(key, value, charge, deleter)
}

// Lookup implements Cache.
func (c *ShardedCache[V]) Lookup(key string) *Handle[V] {
	return c.shard(key).Lookup(key)
}

// Release implements Cache.
func (c *ShardedCache[V]) Release(h *Handle[V]) {
	if h == nil {
		return
	}
	c.shard(h.e.key).Release(h)
}

// Erase implements Cache.
func (c *ShardedCache[V]) Erase(key string) {
	c.shard(key).Erase(key)
}

// TotalCharge implements Cache.
func (c *ShardedCache[V]) TotalCharge() uint64 {
	var total uint64
	for _, s := range c.shards {
		total += s.TotalCharge()
	}
	return total
}

// Len implements Cache.
func (c *ShardedCache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Close implements Cache.
func (c *ShardedCache[V]) Close() {
	for _, s := range c.shards {
		s.Close()
	}
}
