package fusion

import (
	"math"

	"github.com/ragcore/retrieval-core/internal/model"
)

// normalize rescales scores per mode. A single-item or constant-score input
// degenerates minmax/zscore to a flat 0.5 for every item rather than
// dividing by zero, per the "safe normalize" rule.
func normalize(results []model.SearchResult, mode model.NormalizationMode) map[string]float64 {
	out := make(map[string]float64, len(results))
	if len(results) == 0 {
		return out
	}
	if mode == model.NormalizeNone {
		for _, r := range results {
			out[r.ChunkID] = r.Score
		}
		return out
	}

	if len(results) == 1 {
		out[results[0].ChunkID] = 0.5
		return out
	}

	switch mode {
	case model.NormalizeZScore:
		mean, std := meanStd(results)
		if std == 0 {
			for _, r := range results {
				out[r.ChunkID] = 0.5
			}
			return out
		}
		for _, r := range results {
			z := (r.Score - mean) / std
			out[r.ChunkID] = sigmoid(z)
		}
	default: // minmax
		min, max := minMax(results)
		if max == min {
			for _, r := range results {
				out[r.ChunkID] = 0.5
			}
			return out
		}
		for _, r := range results {
			out[r.ChunkID] = (r.Score - min) / (max - min)
		}
	}
	return out
}

func minMax(results []model.SearchResult) (min, max float64) {
	min, max = results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	return min, max
}

func meanStd(results []model.SearchResult) (mean, std float64) {
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	mean = sum / float64(len(results))
	var sq float64
	for _, r := range results {
		d := r.Score - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(results)))
	return mean, std
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
