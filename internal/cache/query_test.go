package cache

import (
	"testing"
	"time"

	"github.com/ragcore/retrieval-core/internal/model"
)

func makeResponse(docID string) *model.SearchResponse {
	return &model.SearchResponse{
		FinalResults: []model.SearchResult{
			{ChunkID: "chunk-1", DocID: docID, Content: "test content", Score: 0.9},
		},
		Metrics: model.SearchMetrics{FinalResultCount: 1},
	}
}

func TestQueryCache_GetSet(t *testing.T) {
	c := New(1 * time.Hour)
	defer c.Stop()

	_, ok := c.Get("tenant-1", "general", "what is revenue?")
	if ok {
		t.Fatal("expected cache miss on empty cache")
	}

	result := makeResponse("doc-revenue")
	c.Set("tenant-1", "general", "what is revenue?", result)

	got, ok := c.Get("tenant-1", "general", "what is revenue?")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got.FinalResults) != 1 || got.FinalResults[0].DocID != "doc-revenue" {
		t.Fatalf("unexpected cached result: %+v", got)
	}
}

func TestQueryCache_SpaceSeparation(t *testing.T) {
	c := New(1 * time.Hour)
	defer c.Stop()

	c.Set("tenant-1", "general", "query", makeResponse("doc-general"))
	c.Set("tenant-1", "legal", "query", makeResponse("doc-legal"))

	got, ok := c.Get("tenant-1", "general", "query")
	if !ok || got.FinalResults[0].DocID != "doc-general" {
		t.Fatal("space=general returned wrong result")
	}

	got, ok = c.Get("tenant-1", "legal", "query")
	if !ok || got.FinalResults[0].DocID != "doc-legal" {
		t.Fatal("space=legal returned wrong result")
	}
}

func TestQueryCache_TenantIsolation(t *testing.T) {
	c := New(1 * time.Hour)
	defer c.Stop()

	c.Set("tenant-1", "general", "query", makeResponse("doc-1"))

	_, ok := c.Get("tenant-2", "general", "query")
	if ok {
		t.Fatal("tenant-2 should not see tenant-1's cache")
	}
}

func TestQueryCache_Expiry(t *testing.T) {
	c := New(50 * time.Millisecond)
	defer c.Stop()

	c.Set("tenant-1", "general", "query", makeResponse("doc-1"))

	_, ok := c.Get("tenant-1", "general", "query")
	if !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	_, ok = c.Get("tenant-1", "general", "query")
	if ok {
		t.Fatal("expected cache miss after expiry")
	}
}

func TestQueryCache_InvalidateTenant(t *testing.T) {
	c := New(1 * time.Hour)
	defer c.Stop()

	c.Set("tenant-1", "general", "query-a", makeResponse("a"))
	c.Set("tenant-1", "general", "query-b", makeResponse("b"))
	c.Set("tenant-2", "general", "query-a", makeResponse("other"))

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}

	c.InvalidateTenant("tenant-1")

	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after invalidation, got %d", c.Len())
	}

	_, ok := c.Get("tenant-1", "general", "query-a")
	if ok {
		t.Fatal("tenant-1 cache should be invalidated")
	}

	_, ok = c.Get("tenant-2", "general", "query-a")
	if !ok {
		t.Fatal("tenant-2 cache should survive")
	}
}

func TestQueryCache_Len(t *testing.T) {
	c := New(1 * time.Hour)
	defer c.Stop()

	if c.Len() != 0 {
		t.Fatal("expected empty cache")
	}

	c.Set("t1", "general", "q1", makeResponse("a"))
	c.Set("t1", "general", "q2", makeResponse("b"))

	if c.Len() != 2 {
		t.Fatalf("expected 2, got %d", c.Len())
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	k1 := cacheKey("tenant-1", "general", "hello world")
	k2 := cacheKey("tenant-1", "general", "hello world")
	if k1 != k2 {
		t.Fatalf("cache key should be deterministic: %s != %s", k1, k2)
	}

	k3 := cacheKey("tenant-1", "legal", "hello world")
	if k1 == k3 {
		t.Fatal("different spaceID should produce different key")
	}

	k4 := cacheKey("tenant-2", "general", "hello world")
	if k1 == k4 {
		t.Fatal("different tenantID should produce different key")
	}
}
