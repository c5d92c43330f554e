// Package packer implements the context packer (§4.7): a greedy MMR-style
// selector that fills a token budget with the most relevant, least
// redundant chunks, respecting per-document and per-section caps. A
// candidate that does not fit the remaining budget is dropped; no section
// reunion is attempted, so the trace's SectionReunions list stays empty.
//
// The "don't let near-duplicate chunks crowd out the final context"
// dedup instinct is grounded on the corpus's retriever.go deduplicate(),
// generalized from exact-ID dedup into token-budget-aware MMR selection.
package packer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/tokencount"
)

const (
	defaultPerDocCap     = 2
	defaultPerSectionCap = 2
	defaultAlpha         = 0.5
	defaultBonusCap      = 0.15
)

// Config configures a Packer.
type Config struct {
	MaxContextTokens int
	PerDocCap        int
	PerSectionCap    int
	Alpha            float64 // MMR tradeoff: relevance weight vs novelty weight
	BonusCap         float64 // ceiling for answerabilityBonus
	Counter          tokencount.Counter
	Similarity       SimilarityFunc
}

// SimilarityFunc scores similarity between two candidates in [0, 1]; the
// packer falls back to a Jaccard token-overlap estimate when embeddings
// aren't available to the caller.
type SimilarityFunc func(a, b model.SearchResult) float64

// Packer greedily selects chunks under a token budget.
type Packer struct {
	cfg Config
}

// New creates a Packer, filling defaults.
func New(cfg Config) *Packer {
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 8000
	}
	if cfg.PerDocCap <= 0 {
		cfg.PerDocCap = defaultPerDocCap
	}
	if cfg.PerSectionCap <= 0 {
		cfg.PerSectionCap = defaultPerSectionCap
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = defaultAlpha
	}
	if cfg.BonusCap <= 0 {
		cfg.BonusCap = defaultBonusCap
	}
	if cfg.Counter == nil {
		cfg.Counter = tokencount.NewBGECounter()
	}
	if cfg.Similarity == nil {
		cfg.Similarity = jaccardSimilarity
	}
	return &Packer{cfg: cfg}
}

var (
	measurementRe   = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(kg|g|mg|km|m|cm|mm|mi|ft|in|lb|lbs|%|percent|usd|\$|°c|°f|hz|ghz|mhz|mb|gb|tb|ms|sec|secs|seconds|minutes|hours|days|years)\b`)
	definitionalRe  = regexp.MustCompile(`(?i)\b(is defined as|refers to|is a type of|is known as|means that)\b`)
	dateTimeRe      = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|january|february|march|april|may|june|july|august|september|october|november|december)\b|\b\d{1,2}:\d{2}\b`)
	listItemRe      = regexp.MustCompile(`(?m)^\s*([-*•]|\d+[.)])\s+`)
)

// answerabilityBonus rewards candidate text likely to directly answer a
// question: measurements, definitions, dates/times, list structure, and a
// section header that echoes a query term. Each signal contributes an equal
// share of bonusCap; cap defaults to 0.15.
func answerabilityBonus(cand model.SearchResult, query string, bonusCap float64) float64 {
	if bonusCap <= 0 {
		return 0
	}
	signals := 4.0
	var hits float64
	if measurementRe.MatchString(cand.Content) {
		hits++
	}
	if definitionalRe.MatchString(cand.Content) {
		hits++
	}
	if dateTimeRe.MatchString(cand.Content) {
		hits++
	}
	if listItemRe.MatchString(cand.Content) {
		hits++
	}
	if headerMatchesQuery(cand, query) {
		signals++
		hits++
	}
	return bonusCap * (hits / signals)
}

func headerMatchesQuery(cand model.SearchResult, query string) bool {
	if query == "" {
		return false
	}
	header := cand.SectionPath
	if h, ok := cand.Payload["header"].(string); ok && h != "" {
		header = h
	}
	if header == "" {
		return false
	}
	headerTokens := tokenSet(header)
	for _, qt := range strings.Fields(strings.ToLower(query)) {
		if headerTokens[qt] {
			return true
		}
	}
	return false
}

// Pack selects candidates by greedy MMR until the token budget is
// exhausted or candidates run out, enforcing per-document and
// per-section caps.
func Pack(ctx context.Context, p *Packer, candidates []model.SearchResult, query string) model.PackingResult {
	trace := model.NewPackingTrace()
	if len(candidates) == 0 {
		return model.PackingResult{Trace: trace}
	}

	boosted := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		boosted[c.ChunkID] = c.Score + answerabilityBonus(c, query, p.cfg.BonusCap)
	}

	remaining := make([]model.SearchResult, len(candidates))
	copy(remaining, candidates)
	sort.Slice(remaining, func(i, j int) bool { return boosted[remaining[i].ChunkID] > boosted[remaining[j].ChunkID] })

	var selected []model.SearchResult
	totalTokens := 0
	docCounts := make(map[string]int)
	sectionCounts := make(map[string]int)
	truncated := false

	for len(remaining) > 0 {
		bestIdx := -1
		bestObjective := math.Inf(-1)

		for i, cand := range remaining {
			base, _ := sectionBase(cand.SectionPath)
			if p.cfg.PerDocCap > 0 && docCounts[cand.DocID] >= p.cfg.PerDocCap {
				trace.DroppedReason[cand.ChunkID] = "per-doc cap"
				continue
			}
			if base != "" && p.cfg.PerSectionCap > 0 && sectionCounts[cand.DocID+"::"+base] >= p.cfg.PerSectionCap {
				trace.DroppedReason[cand.ChunkID] = "per-section cap"
				continue
			}

			novelty := noveltyOf(p, cand, selected)
			objective := p.cfg.Alpha*boosted[cand.ChunkID] + (1-p.cfg.Alpha)*novelty
			trace.NoveltyByID[cand.ChunkID] = novelty
			trace.ScoreByID[cand.ChunkID] = cand.Score

			if objective > bestObjective {
				bestObjective = objective
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}

		cand := remaining[bestIdx]
		est := p.cfg.Counter.Count(cand.Content, 0, 0)
		if totalTokens+est.TokenCount > p.cfg.MaxContextTokens {
			trace.DroppedReason[cand.ChunkID] = "budget exceeded"
			truncated = true
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
			continue
		}

		selected = append(selected, cand)
		totalTokens += est.TokenCount
		trace.SelectedIDs = append(trace.SelectedIDs, cand.ChunkID)
		trace.TokensByID[cand.ChunkID] = est.TokenCount
		docCounts[cand.DocID]++
		trace.PerDocCounts[cand.DocID]++
		if base, ok := sectionBase(cand.SectionPath); ok {
			sectionCounts[cand.DocID+"::"+base]++
			trace.PerSectionCounts[cand.DocID+"::"+base]++
		}

		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return model.PackingResult{
		Chunks:      selected,
		TotalTokens: totalTokens,
		Truncated:   truncated || len(remaining) > 0,
		Trace:       trace,
	}
}

func noveltyOf(p *Packer, cand model.SearchResult, selected []model.SearchResult) float64 {
	if len(selected) == 0 {
		return 1.0
	}
	maxSim := 0.0
	for _, s := range selected {
		if sim := p.cfg.Similarity(cand, s); sim > maxSim {
			maxSim = sim
		}
	}
	return 1.0 - maxSim
}

func jaccardSimilarity(a, b model.SearchResult) float64 {
	aTokens := tokenSet(a.Content)
	bTokens := tokenSet(b.Content)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	intersection := 0
	for t := range aTokens {
		if bTokens[t] {
			intersection++
		}
	}
	union := len(aTokens) + len(bTokens) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		out[w] = true
	}
	return out
}

func sectionBase(path string) (string, bool) {
	idx := strings.Index(path, "/")
	if idx < 0 {
		if path == "" {
			return "", false
		}
		return path, true
	}
	return path[:idx], true
}
