package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupRedisQueryCache(t *testing.T) *RedisQueryCache {
	t.Helper()
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	return NewRedisQueryCache(client, time.Minute)
}

func TestRedisQueryCache_GetSet(t *testing.T) {
	c := setupRedisQueryCache(t)

	_, ok := c.Get("tenant-r1", "general", "does this exist")
	if ok {
		t.Fatal("expected miss for unset key")
	}

	resp := makeResponse("doc-1")
	c.Set("tenant-r1", "general", "hello", resp)

	got, ok := c.Get("tenant-r1", "general", "hello")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got.FinalResults) != 1 || got.FinalResults[0].DocID != "doc-1" {
		t.Fatalf("unexpected cached result: %+v", got)
	}
}

func TestRedisQueryCache_InvalidateTenant(t *testing.T) {
	c := setupRedisQueryCache(t)
	ctx := context.Background()

	c.Set("tenant-r2", "general", "q1", makeResponse("a"))
	c.Set("tenant-r2", "legal", "q2", makeResponse("b"))

	if err := c.InvalidateTenant(ctx, "tenant-r2"); err != nil {
		t.Fatalf("InvalidateTenant: %v", err)
	}

	if _, ok := c.Get("tenant-r2", "general", "q1"); ok {
		t.Fatal("expected miss after invalidation")
	}
	if _, ok := c.Get("tenant-r2", "legal", "q2"); ok {
		t.Fatal("expected miss after invalidation")
	}
}
