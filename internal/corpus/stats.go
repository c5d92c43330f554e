package corpus

import (
	"math"

	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/keyword"
)

// CorpusStats only persists the derived IDF, not raw document-frequency
// counts, so recomputation needs those counts passed in by the caller
// (typically re-derived from the vector store's payload index at ingestion
// time).

// AddDocument updates stats' co-occurrence counts and total counters for
// one document's tokens. Document frequency (df) must be tracked
// separately by the caller and passed to RecomputeIDF, since CorpusStats
// only stores the derived IDF value, not raw df counts.
func AddDocument(stats *model.CorpusStats, tokens []string) {
	stats.TotalDocs++
	stats.TotalTokens += len(tokens)

	seen := make(map[string]bool, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	const window = 5
	for i, a := range tokens {
		for j := i + 1; j < len(tokens) && j-i <= window; j++ {
			b := tokens[j]
			if a == b {
				continue
			}
			addCooc(stats, a, b)
			addCooc(stats, b, a)
		}
	}
}

func addCooc(stats *model.CorpusStats, a, b string) {
	if stats.Cooc[a] == nil {
		stats.Cooc[a] = make(map[string]int)
	}
	stats.Cooc[a][b]++
}

// RecomputeIDF derives IDF for every token in docFreq using the classic
// smoothed formula: log((N+1)/(df+1)) + 1.
func RecomputeIDF(stats *model.CorpusStats, docFreq map[string]int) {
	n := float64(stats.TotalDocs)
	for token, df := range docFreq {
		stats.IDF[token] = math.Log((n+1)/(float64(df)+1)) + 1
	}
}

// RecomputePMI derives pointwise mutual information for every co-occurring
// token pair: log2((p(a,b) * N) / (df(a) * df(b))), using raw cooccurrence
// counts as a proxy for joint frequency and docFreq for marginal frequency.
func RecomputePMI(stats *model.CorpusStats, docFreq map[string]int) {
	n := float64(stats.TotalTokens)
	if n == 0 {
		return
	}
	for a, neighbors := range stats.Cooc {
		dfA := float64(docFreq[a])
		if dfA == 0 {
			continue
		}
		for b, count := range neighbors {
			dfB := float64(docFreq[b])
			if dfB == 0 || count == 0 {
				continue
			}
			pAB := float64(count) / n
			pA := dfA / n
			pB := dfB / n
			if pA == 0 || pB == 0 {
				continue
			}
			pmi := math.Log2(pAB / (pA * pB))
			if stats.PMI[a] == nil {
				stats.PMI[a] = make(map[string]float64)
			}
			stats.PMI[a][b] = pmi
		}
	}
}

// IDFLookup returns a keyword.IDFLookup backed by stats, defaulting
// unseen tokens to 1.0 (neutral weight).
func IDFLookup(stats *model.CorpusStats) keyword.IDFLookup {
	return func(token string) float64 {
		if v, ok := stats.IDF[token]; ok {
			return v
		}
		return 1.0
	}
}
