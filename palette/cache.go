package palette

import (
	"sync"

	"github.com/setanarut/beadgrid/colorspace"
)

// DefaultCacheLimit is the entry count above which a Cache evicts.
const DefaultCacheLimit = 10000

type cacheKey struct {
	rgb     colorspace.Pixel
	palette uint64
	weights colorspace.Weights
}

// Cache memoizes nearest-color lookups across matchers. It is safe for
// concurrent use, and a nil *Cache is a valid cache that stores nothing.
// Clearing it at any time only costs recomputation.
type Cache struct {
	mu      sync.Mutex
	limit   int
	entries map[cacheKey]int
	order   []cacheKey // insertion order, oldest first
}

// NewCache returns a cache holding up to limit entries; limit <= 0 selects
// DefaultCacheLimit. When full, the oldest half of the entries is dropped.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &Cache{limit: limit, entries: make(map[cacheKey]int)}
}

func (c *Cache) get(k cacheKey) (int, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.entries[k]
	return idx, ok
}

func (c *Cache) put(k cacheKey, idx int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[k]; ok {
		return
	}
	c.entries[k] = idx
	c.order = append(c.order, k)
	if len(c.entries) > c.limit {
		drop := len(c.order) / 2
		for _, old := range c.order[:drop] {
			delete(c.entries, old)
		}
		c.order = append(c.order[:0], c.order[drop:]...)
	}
}

// Len returns the number of cached lookups.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.order = c.order[:0]
}
