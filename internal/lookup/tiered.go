package lookup

import (
	"context"
)

// TieredCache layers the in-memory LRU over the distributed Redis tier:
// reads promote Redis hits into memory, writes go to both.
type TieredCache struct {
	memory *MemoryCache
	redis  *RedisCache
}

// NewTieredCache combines a memory tier with an optional Redis tier.
// A nil redis leaves the memory tier on its own.
func NewTieredCache(memory *MemoryCache, redis *RedisCache) *TieredCache {
	return &TieredCache{memory: memory, redis: redis}
}

// Get implements Cache
func (c *TieredCache) Get(ctx context.Context, key string) (map[string]float64, bool, error) {
	if scores, hit, err := c.memory.Get(ctx, key); err == nil && hit {
		return scores, true, nil
	}
	if c.redis == nil {
		return nil, false, nil
	}

	scores, hit, err := c.redis.Get(ctx, key)
	if err != nil || !hit {
		return nil, false, err
	}
	// Promote to the memory tier for subsequent lookups
	_ = c.memory.Set(ctx, key, scores)
	return scores, true, nil
}

// Set implements Cache
func (c *TieredCache) Set(ctx context.Context, key string, scores map[string]float64) error {
	_ = c.memory.Set(ctx, key, scores)
	if c.redis == nil {
		return nil
	}
	return c.redis.Set(ctx, key, scores)
}
