package similarity

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache memoizes Comparable construction (normalize+tokenize+MinHash)
// by body hash, for the life of one
// duplication-detection run. Mirrors the map+mutex shape of the
// teacher's QueryCache (internal/cache/cache.go), simplified since a
// run-scoped cache needs no TTL or eviction.
type Cache struct {
	mu          sync.Mutex
	comparables map[uint64]Comparable
}

// NewCache creates an empty run-scoped cache.
func NewCache() *Cache {
	return &Cache{
		comparables: make(map[uint64]Comparable),
	}
}

func bodyHash(body string) uint64 {
	return xxhash.Sum64String(body)
}

// Comparable returns the cached Comparable for body, computing and
// storing it on first request.
func (c *Cache) Comparable(body string) Comparable {
	h := bodyHash(body)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cmp, ok := c.comparables[h]; ok {
		return cmp
	}
	cmp := NewComparable(body)
	c.comparables[h] = cmp
	return cmp
}

// Len returns the number of distinct bodies currently memoized.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.comparables)
}
