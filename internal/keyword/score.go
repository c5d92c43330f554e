package keyword

import "math"

const (
	baseTermWeight       = 0.3
	highValueIDFCutoff   = 3.5
	highValueBoost       = 0.15
	perfectCoverageBoost = 0.2
	coTermBoost          = 0.1
	maxScore             = 1.0
)

// IDFLookup resolves a token's inverse document frequency; callers pass
// model.CorpusStats.IDF (or a stub returning 1.0 when no corpus stats are
// available yet for a tenant).
type IDFLookup func(token string) float64

// Score computes a query-document keyword relevance score in [0, 1]:
// each shared query term contributes termFreq(token) * idf(token) * 0.3,
// capped at 1.0, with boosts for queries whose terms are all high-IDF,
// for full query-term coverage, and for adjacent co-occurring query terms
// appearing within the same document.
func Score(queryTokens, docTokens []string, idf IDFLookup) float64 {
	if len(queryTokens) == 0 || len(docTokens) == 0 {
		return 0
	}
	if idf == nil {
		idf = func(string) float64 { return 1.0 }
	}

	docTF := TermFrequency(docTokens)
	queried := make(map[string]bool, len(queryTokens))
	for _, q := range queryTokens {
		queried[q] = true
	}

	var score float64
	matched := 0
	highValueMatches := 0
	for token := range queried {
		tf, ok := docTF[token]
		if !ok || tf == 0 {
			continue
		}
		matched++
		weight := idf(token)
		if weight >= highValueIDFCutoff {
			highValueMatches++
		}
		score += float64(tf) * weight * baseTermWeight
	}

	if matched == 0 {
		return 0
	}
	if highValueMatches == len(queried) {
		score += highValueBoost
	}
	if matched == len(queried) {
		score += perfectCoverageBoost
	}
	if coTermsAdjacent(queried, docTokens) {
		score += coTermBoost
	}

	return math.Min(score, maxScore)
}

// coTermsAdjacent reports whether two or more distinct query terms appear
// within a window of three tokens of each other anywhere in the document.
func coTermsAdjacent(queried map[string]bool, docTokens []string) bool {
	const window = 3
	for i, t := range docTokens {
		if !queried[t] {
			continue
		}
		for j := i + 1; j < len(docTokens) && j-i <= window; j++ {
			if docTokens[j] != t && queried[docTokens[j]] {
				return true
			}
		}
	}
	return false
}
