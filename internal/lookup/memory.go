package lookup

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is the in-process cache tier, an expirable LRU keyed by
// normalized disease name
type MemoryCache struct {
	lru *expirable.LRU[string, map[string]float64]
}

// NewMemoryCache creates a memory cache holding up to size entries for ttl.
// A zero ttl falls back to DefaultTTL.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, map[string]float64](size, nil, ttl),
	}
}

// Get implements Cache
func (c *MemoryCache) Get(_ context.Context, key string) (map[string]float64, bool, error) {
	scores, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return scores, true, nil
}

// Set implements Cache. Entries are stored as-is; callers must not mutate a
// mapping after writing it.
func (c *MemoryCache) Set(_ context.Context, key string, scores map[string]float64) error {
	c.lru.Add(key, scores)
	return nil
}
