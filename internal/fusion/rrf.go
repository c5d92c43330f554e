package fusion

import "github.com/ragcore/retrieval-core/internal/model"

// fuseRRF reimplements the corpus's reciprocalRankFusion: score = sum over
// channels of w/(k+rank). Default k is 60, matching retriever.go; unlike
// retriever.go, the per-channel weight is not fixed at 1 so tenant-tuned
// vector/keyword weights still apply to the legacy strategy.
func fuseRRF(vector, keyword []model.SearchResult, k int, vectorWeight, keywordWeight float64, trace *Trace) []model.SearchResult {
	if k <= 0 {
		k = 60
	}
	vRanks := rankOf(vector)
	kRanks := rankOf(keyword)
	vScores := scoreOf(vector)
	kScores := scoreOf(keyword)

	ids := unionChunkIDs(vector, keyword)
	results := make([]model.SearchResult, 0, len(ids))
	for _, id := range ids {
		var score float64
		ct := CandidateTrace{}

		if r, ok := vRanks[id]; ok {
			rr := vectorWeight / float64(k+r)
			score += rr
			rCopy := r
			ct.VectorRank = &rCopy
			vs := vScores[id].Score
			ct.VectorScore = &vs
		}
		if r, ok := kRanks[id]; ok {
			rr := keywordWeight / float64(k+r)
			score += rr
			rCopy := r
			ct.KeywordRank = &rCopy
			ks := kScores[id].Score
			ct.KeywordScore = &ks
		}

		base := vScores[id]
		if base.ChunkID == "" {
			base = kScores[id]
		}
		base.Score = score
		ct.FinalScore = score
		trace.PerCandidate[id] = ct
		results = append(results, base)
	}

	return sortAndRank(results)
}
