package fusion

import "github.com/ragcore/retrieval-core/internal/model"

// rrfTermWeight is the fixed coefficient applied to each channel's RRF term
// in score_weighted_rrf: w_v*norm(s_v) + w_k*norm(s_k) + rrfTermWeight*(1/(k+r_v) + 1/(k+r_k)).
// It does not scale with the tenant's vector/keyword weights — the RRF term
// is a fixed tie-breaking nudge toward rank agreement, not a third blended
// channel.
const rrfTermWeight = 0.1

// fuseWeighted implements weighted_average and score_weighted_rrf.
// score_weighted_rrf blends each channel's RRF contribution with its
// normalized raw score; weighted_average uses only the normalized raw
// score. Both generalize retriever.go's static 0.70/0.15/0.15 rerank
// weighting into a two-channel weighted blend with configurable weights.
func fuseWeighted(vector, keyword []model.SearchResult, vectorWeight, keywordWeight float64, rrfK int, mode model.NormalizationMode, trace *Trace, includeRRF bool) []model.SearchResult {
	if rrfK <= 0 {
		rrfK = 60
	}
	normVector := normalize(vector, mode)
	normKeyword := normalize(keyword, mode)
	vRanks := rankOf(vector)
	kRanks := rankOf(keyword)
	vScores := scoreOf(vector)
	kScores := scoreOf(keyword)

	ids := unionChunkIDs(vector, keyword)
	results := make([]model.SearchResult, 0, len(ids))

	for _, id := range ids {
		nv, hasV := normVector[id]
		nk, hasK := normKeyword[id]

		var score float64
		if hasV {
			score += vectorWeight * nv
		}
		if hasK {
			score += keywordWeight * nk
		}
		if includeRRF {
			if r, ok := vRanks[id]; ok {
				score += rrfTermWeight * (1.0 / float64(rrfK+r))
			}
			if r, ok := kRanks[id]; ok {
				score += rrfTermWeight * (1.0 / float64(rrfK+r))
			}
		}

		base := vScores[id]
		if base.ChunkID == "" {
			base = kScores[id]
		}
		base.Score = score

		ct := CandidateTrace{FinalScore: score}
		if hasV {
			v := vScores[id].Score
			ct.VectorScore = &v
			ct.NormVector = &nv
		}
		if hasK {
			k := kScores[id].Score
			ct.KeywordScore = &k
			ct.NormKeyword = &nk
		}
		trace.PerCandidate[id] = ct
		results = append(results, base)
	}

	return sortAndRank(results)
}

// fuseMaxConfidence takes, per chunk, the higher of its normalized vector
// or keyword score rather than blending them — useful when one channel's
// hit is already a strong signal and averaging would dilute it.
func fuseMaxConfidence(vector, keyword []model.SearchResult, mode model.NormalizationMode, trace *Trace) []model.SearchResult {
	normVector := normalize(vector, mode)
	normKeyword := normalize(keyword, mode)
	vScores := scoreOf(vector)
	kScores := scoreOf(keyword)

	ids := unionChunkIDs(vector, keyword)
	results := make([]model.SearchResult, 0, len(ids))

	for _, id := range ids {
		nv, hasV := normVector[id]
		nk, hasK := normKeyword[id]

		score := nv
		if hasK && (!hasV || nk > nv) {
			score = nk
		}

		base := vScores[id]
		if base.ChunkID == "" {
			base = kScores[id]
		}
		base.Score = score

		ct := CandidateTrace{FinalScore: score}
		if hasV {
			v := vScores[id].Score
			ct.VectorScore = &v
			ct.NormVector = &nv
		}
		if hasK {
			k := kScores[id].Score
			ct.KeywordScore = &k
			ct.NormKeyword = &nk
		}
		trace.PerCandidate[id] = ct
		results = append(results, base)
	}

	return sortAndRank(results)
}
