package vectorstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ragcore/retrieval-core/internal/model"
)

// VectorStore is the dense vector channel's backing interface, satisfied by
// the Qdrant-backed Store and by MemoryStore for tests.
type VectorStore interface {
	Upsert(ctx context.Context, chunk model.Chunk, vector []float32) error
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]model.SearchResult, error)
	FetchSection(ctx context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error)
}

var (
	_ VectorStore = (*Store)(nil)
	_ VectorStore = (*MemoryStore)(nil)
)

type memoryPoint struct {
	chunk  model.Chunk
	vector []float32
}

// MemoryStore is a brute-force in-process VectorStore for tests and small
// local deployments that don't warrant running Qdrant.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[string]memoryPoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]memoryPoint)}
}

func (m *MemoryStore) Upsert(_ context.Context, chunk model.Chunk, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec := make([]float32, len(vector))
	copy(vec, vector)
	m.points[chunk.ChunkID] = memoryPoint{chunk: chunk, vector: vec}
	return nil
}

func (m *MemoryStore) Search(_ context.Context, vector []float32, topK int, filter Filter) ([]model.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		chunk model.Chunk
		score float64
	}
	var candidates []scored
	for _, p := range m.points {
		if !matches(p.chunk, filter) {
			continue
		}
		candidates = append(candidates, scored{chunk: p.chunk, score: cosineSimilarity(vector, p.vector)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]model.SearchResult, 0, len(candidates))
	for i, c := range candidates {
		vs := c.score
		out = append(out, model.SearchResult{
			ChunkID:     c.chunk.ChunkID,
			DocID:       c.chunk.DocID,
			Score:       c.score,
			VectorScore: &vs,
			Rank:        i + 1,
			SearchType:  model.SearchVectorOnly,
			SectionPath: c.chunk.SectionPath,
			Content:     c.chunk.Text,
		})
	}
	return out, nil
}

func (m *MemoryStore) FetchSection(_ context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.SearchResult
	for _, p := range m.points {
		if p.chunk.TenantID != tenantID || p.chunk.DocID != docID {
			continue
		}
		if !strings.HasPrefix(p.chunk.SectionPath, basePath) {
			continue
		}
		out = append(out, model.SearchResult{
			ChunkID:     p.chunk.ChunkID,
			DocID:       p.chunk.DocID,
			SectionPath: p.chunk.SectionPath,
			Content:     p.chunk.Text,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matches(chunk model.Chunk, filter Filter) bool {
	if chunk.TenantID != filter.TenantID {
		return false
	}
	if filter.DocID != "" && chunk.DocID != filter.DocID {
		return false
	}
	if len(filter.GroupIDs) == 0 {
		return true
	}
	for _, group := range filter.GroupIDs {
		for _, acl := range chunk.ACL {
			if acl == group {
				return true
			}
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
