package fusion

import "github.com/ragcore/retrieval-core/internal/model"

// AdaptiveWeights resolves an Open Question left by the distilled spec:
// when DefaultTenantSearchConfig.AdaptiveWeights is on, channel weights
// shift deterministically from their configured baseline based on which
// channel returned more/stronger evidence, rather than via a learned
// model the retrieval core has no training pipeline for.
//
// Rule: start from baseline weights. If one channel returned zero
// results, give the other channel full weight. Otherwise shift up to 0.2
// of weight toward whichever channel's top score is higher, scaled by the
// gap between the two top scores (capped at the full 0.2 shift).
func AdaptiveWeights(vector, keyword []model.SearchResult, baselineVector, baselineKeyword float64) (vectorWeight, keywordWeight float64) {
	if len(vector) == 0 && len(keyword) == 0 {
		return baselineVector, baselineKeyword
	}
	if len(vector) == 0 {
		return 0, 1
	}
	if len(keyword) == 0 {
		return 1, 0
	}

	vTop := vector[0].Score
	kTop := keyword[0].Score
	gap := vTop - kTop
	const maxShift = 0.2

	shift := gap
	if shift > 1 {
		shift = 1
	}
	if shift < -1 {
		shift = -1
	}
	shift *= maxShift

	vectorWeight = clamp01(baselineVector + shift)
	keywordWeight = clamp01(baselineKeyword - shift)

	total := vectorWeight + keywordWeight
	if total == 0 {
		return baselineVector, baselineKeyword
	}
	return vectorWeight / total, keywordWeight / total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
