// Package fusion combines the vector and keyword search channels into one
// ranked list (§4.4). The reciprocal-rank-fusion core is grounded on the
// corpus's retriever.go, whose reciprocalRankFusion (k=60) and rerank
// (static 0.70/0.15/0.15 weighting) covered a single fixed strategy; this
// package generalizes that into four selectable strategies plus adaptive
// weighting and normalization modes.
package fusion

import (
	"sort"

	"github.com/ragcore/retrieval-core/internal/model"
)

// Trace records per-candidate fusion inputs and the chosen strategy, for
// debugging and for SearchResponse.FusionTrace when enabled.
type Trace struct {
	Strategy      model.FusionStrategy
	Normalization model.NormalizationMode
	VectorWeight  float64
	KeywordWeight float64
	PerCandidate  map[string]CandidateTrace
}

// CandidateTrace is the fusion math behind a single chunk's final score.
type CandidateTrace struct {
	VectorScore   *float64
	KeywordScore  *float64
	VectorRank    *int
	KeywordRank   *int
	NormVector    *float64
	NormKeyword   *float64
	FinalScore    float64
}

// Fuse merges vector and keyword result sets per cfg's strategy and
// normalization mode, returning a single list ranked by descending fused
// score with Rank and FusionScore populated.
func Fuse(vector, keyword []model.SearchResult, cfg model.TenantSearchConfig) ([]model.SearchResult, *Trace) {
	vectorWeight, keywordWeight := cfg.DefaultVectorWeight, cfg.DefaultKeywordWeight
	if cfg.AdaptiveWeights {
		vectorWeight, keywordWeight = AdaptiveWeights(vector, keyword, cfg.DefaultVectorWeight, cfg.DefaultKeywordWeight)
	}

	trace := &Trace{
		Strategy:      cfg.FusionStrategy,
		Normalization: cfg.Normalization,
		VectorWeight:  vectorWeight,
		KeywordWeight: keywordWeight,
		PerCandidate:  make(map[string]CandidateTrace),
	}

	switch cfg.FusionStrategy {
	case model.FusionRRFLegacy:
		return fuseRRF(vector, keyword, cfg.DefaultRRFK, vectorWeight, keywordWeight, trace), trace
	case model.FusionWeightedAverage:
		return fuseWeighted(vector, keyword, vectorWeight, keywordWeight, cfg.DefaultRRFK, cfg.Normalization, trace, false), trace
	case model.FusionMaxConfidence:
		return fuseMaxConfidence(vector, keyword, cfg.Normalization, trace), trace
	default: // model.FusionScoreWeightedRRF
		return fuseWeighted(vector, keyword, vectorWeight, keywordWeight, cfg.DefaultRRFK, cfg.Normalization, trace, true), trace
	}
}

func rankOf(results []model.SearchResult) map[string]int {
	ranks := make(map[string]int, len(results))
	for i, r := range results {
		ranks[r.ChunkID] = i + 1
	}
	return ranks
}

func scoreOf(results []model.SearchResult) map[string]model.SearchResult {
	m := make(map[string]model.SearchResult, len(results))
	for _, r := range results {
		m[r.ChunkID] = r
	}
	return m
}

func unionChunkIDs(vector, keyword []model.SearchResult) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range vector {
		if !seen[r.ChunkID] {
			seen[r.ChunkID] = true
			ids = append(ids, r.ChunkID)
		}
	}
	for _, r := range keyword {
		if !seen[r.ChunkID] {
			seen[r.ChunkID] = true
			ids = append(ids, r.ChunkID)
		}
	}
	return ids
}

func sortAndRank(results []model.SearchResult) []model.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	for i := range results {
		results[i].Rank = i + 1
		fs := results[i].Score
		results[i].FusionScore = &fs
		results[i].SearchType = model.SearchHybrid
	}
	return results
}
