// Package cache provides a small thread-safe LRU cache used to memoize
// compiled SQL fragments.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

const (
	// DefaultCapacity is the default maximum number of cached entries.
	DefaultCapacity = 1000
)

// LRU stores values with least-recently-used eviction.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	lruList  *list.List

	// Metrics using atomic for lock-free access.
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// entry represents a single cached value.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewWithCapacity creates a new LRU cache with the specified capacity.
// Non-positive capacities fall back to DefaultCapacity.
func NewWithCapacity[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Get retrieves a value by key.
// Accessing a value moves it to the front of the LRU list.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.lruList.MoveToFront(elem)
	c.hits.Add(1)

	return elem.Value.(*entry[K, V]).value, true
}

// Set stores a value. If the cache is at capacity, the least recently used
// entry is evicted.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.lruList.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	if c.lruList.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.lruList.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = elem
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *LRU[K, V]) evictOldest() {
	elem := c.lruList.Back()
	if elem == nil {
		return
	}

	c.lruList.Remove(elem)
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.evictions.Add(1)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Clear removes all entries. Metrics are preserved.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element, c.capacity)
	c.lruList.Init()
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int     // Current number of cached entries.
	Capacity  int     // Maximum capacity.
	Hits      uint64  // Number of successful lookups.
	Misses    uint64  // Number of failed lookups.
	Evictions uint64  // Number of evicted entries.
	HitRate   float64 // hits / (hits + misses).
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	size := c.Len()

	hits := c.hits.Load()
	misses := c.misses.Load()

	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}
