package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ragcore/retrieval-core/internal/model"
)

// RedisQueryCache is a Redis-backed alternative to QueryCache for
// deployments that run more than one replica of the retrieval core and
// need the query cache shared across instances. It mirrors the Get/Set
// interface of the in-memory QueryCache.
type RedisQueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQueryCache creates a RedisQueryCache.
func NewRedisQueryCache(client *redis.Client, ttl time.Duration) *RedisQueryCache {
	return &RedisQueryCache{client: client, ttl: ttl}
}

// Get returns a cached SearchResponse if present and not expired. Errors
// (including cache misses) are treated as a miss; callers fall through to
// running the query live.
func (c *RedisQueryCache) Get(tenantID, spaceID, query string) (*model.SearchResponse, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, cacheKey(tenantID, spaceID, query)).Bytes()
	if err != nil {
		return nil, false
	}

	var resp model.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Set stores a SearchResponse with the cache's configured TTL. Marshal and
// Redis write failures are silently dropped; Set returns nothing.
func (c *RedisQueryCache) Set(tenantID, spaceID, query string, result *model.SearchResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(tenantID, spaceID, query), data, c.ttl)
}

// InvalidateTenant removes all cached entries for a tenant by scanning for
// its key prefix, since Redis has no native prefix-delete.
func (c *RedisQueryCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	prefix := "qc:" + tenantID + ":*"
	iter := c.client.Scan(ctx, 0, prefix, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache.RedisQueryCache.InvalidateTenant: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache.RedisQueryCache.InvalidateTenant: del: %w", err)
	}
	return nil
}
