package keyword

import (
	"context"
	"fmt"
	"sort"

	"github.com/ragcore/retrieval-core/internal/model"
)

// Filter scopes a keyword search the same way the corpus's bm25.go scoped a
// full-text query to d.user_id = $2, generalized to a tenant match plus an
// ACL-group match and an optional space match.
type Filter struct {
	TenantID string
	GroupIDs []string
	SpaceID  string
}

// Candidate is a chunk eligible for keyword scoring, pre-filtered by a
// ChunkSource to the caller's tenant and ACL groups.
type Candidate struct {
	Chunk model.Chunk
	IDF   IDFLookup
}

// ChunkSource supplies candidate chunks for a tenant/ACL/space-scoped
// keyword search. PgChunkSource builds its SQL WHERE clause from Filter
// (tenant, ACL groups, space; no text predicate); a Qdrant-backed
// one would build a scroll filter with tenant as "must" and ACL as "any".
type ChunkSource interface {
	Candidates(ctx context.Context, filter Filter) ([]Candidate, error)
}

// Searcher runs the keyword search channel.
type Searcher struct {
	source ChunkSource
}

// New creates a Searcher.
func New(source ChunkSource) *Searcher {
	return &Searcher{source: source}
}

// Search tokenizes query, scores every candidate chunk, and returns results
// sorted by descending score, truncated to topK.
func (s *Searcher) Search(ctx context.Context, query string, topK int, filter Filter) ([]model.SearchResult, error) {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	candidates, err := s.source.Candidates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("keyword.Search: %w", err)
	}

	results := make([]model.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		docTokens := Tokenize(c.Chunk.Text)
		score := Score(queryTokens, docTokens, c.IDF)
		if score <= 0 {
			continue
		}
		ks := score
		results = append(results, model.SearchResult{
			ChunkID:       c.Chunk.ChunkID,
			DocID:         c.Chunk.DocID,
			Score:         score,
			KeywordScore:  &ks,
			SearchType:    model.SearchKeywordOnly,
			SectionPath:   c.Chunk.SectionPath,
			Content:       c.Chunk.Text,
			Payload:       c.Chunk.Payload,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	for i := range results {
		results[i].Rank = i + 1
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
