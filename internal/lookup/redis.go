package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drug-repurposing-engine/internal/domain"
)

// RedisCache is the distributed cache tier for instrument mappings, shared
// across engine instances
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// cachedInstruments wraps a mapping with cache metadata
type cachedInstruments struct {
	Scores    map[string]float64 `json:"scores"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// NewRedisCache connects to Redis and returns a cache with the given TTL.
// A zero ttl falls back to DefaultTTL.
func NewRedisCache(cfg domain.CacheConfig, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) key(disease string) string {
	return "instruments:" + disease
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, key string) (map[string]float64, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get instrument cache: %w", err)
	}

	var cached cachedInstruments
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.client.Del(ctx, c.key(key))
		return nil, false, nil
	}

	// An expired entry reads as absent
	if time.Now().After(cached.ExpiresAt) {
		c.client.Del(ctx, c.key(key))
		return nil, false, nil
	}

	return cached.Scores, true, nil
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, key string, scores map[string]float64) error {
	cached := cachedInstruments{
		Scores:    scores,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal instrument cache entry: %w", err)
	}

	return c.client.Set(ctx, c.key(key), jsonData, c.ttl).Err()
}

// Ping checks if the Redis connection is alive
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
