// Package section implements section detection, fetch, and reconstruction
// (§4.6): when several chunks returned by search share the same document
// section (a paragraph or sentence-group split across `block_N/part_K`
// pieces by the chunker), this package fetches the sibling parts and
// merges them back into one coherent unit before packing.
//
// The base-path grouping is new code grounded on the chunker's own
// `block_N[/part_K]` tagging scheme (internal/chunker) and on the
// corpus's extractSectionTitle (service/chunker.go), which is the
// teacher's only precedent for structural section awareness.
package section

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ragcore/retrieval-core/internal/model"
)

var sectionPathPattern = regexp.MustCompile(`^(block_\d+)(?:/part_(\d+))?$`)

// BasePath returns the section's grouping key (the block_N prefix,
// dropping any /part_K suffix) and whether the path matched the pattern.
func BasePath(sectionPath string) (string, bool) {
	m := sectionPathPattern.FindStringSubmatch(sectionPath)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func partIndex(sectionPath string) int {
	m := sectionPathPattern.FindStringSubmatch(sectionPath)
	if m == nil || m[2] == "" {
		return 0
	}
	n, _ := strconv.Atoi(m[2])
	return n
}

// TriggerReason names why a section reunion was attempted.
type TriggerReason string

const (
	TriggerMultiPartHit     TriggerReason = "multi_part_hit"
	TriggerHighRerankScore  TriggerReason = "high_reranker_score"
	TriggerLowTokenChunk    TriggerReason = "low_token_chunk"
	TriggerTopResult        TriggerReason = "top_result"
	TriggerAdjacentDocHits  TriggerReason = "adjacent_doc_hits"
)

var triggerConfidence = map[TriggerReason]float64{
	TriggerMultiPartHit:    0.8,
	TriggerHighRerankScore: 0.9,
	TriggerLowTokenChunk:   0.8,
	TriggerTopResult:       0.9,
	TriggerAdjacentDocHits: 0.85,
}

// Detection is a candidate section reunion: a (docId, base path) group of
// one or more results, with the trigger that classify assigned to it.
type Detection struct {
	DocID     string
	BasePath  string
	Results   []model.SearchResult
	Reason    TriggerReason
	Confidence float64
}

// highRerankThreshold bounds the trigger that looks at a result's own
// reranker score. lowTokenThreshold is not consulted by classify: the
// low_token_chunk reason is assigned without checking a token count.
const (
	highRerankThreshold = 0.75
	lowTokenThreshold    = 80
)

// Detect groups results by (docId, base section path) and assigns each
// group one trigger, checked in this order: multi-part hit, high reranker
// score, top (first-seen) group; any other group gets low_token_chunk.
func Detect(results []model.SearchResult) []Detection {
	type key struct{ docID, base string }
	groups := make(map[key][]model.SearchResult)
	order := make([]key, 0)

	for _, r := range results {
		base, ok := BasePath(r.SectionPath)
		if !ok {
			continue
		}
		k := key{r.DocID, base}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	detections := make([]Detection, 0, len(order))
	for i, k := range order {
		members := groups[k]
		reason, confidence := classify(members, i == 0)
		detections = append(detections, Detection{
			DocID:      k.docID,
			BasePath:   k.base,
			Results:    members,
			Reason:     reason,
			Confidence: confidence,
		})
	}
	return detections
}

func classify(members []model.SearchResult, isTopGroup bool) (TriggerReason, float64) {
	if len(members) > 1 {
		return TriggerMultiPartHit, triggerConfidence[TriggerMultiPartHit]
	}
	m := members[0]
	if m.RerankerScore != nil && *m.RerankerScore >= highRerankThreshold {
		return TriggerHighRerankScore, triggerConfidence[TriggerHighRerankScore]
	}
	if isTopGroup {
		return TriggerTopResult, triggerConfidence[TriggerTopResult]
	}
	return TriggerLowTokenChunk, triggerConfidence[TriggerLowTokenChunk]
}

// Fetcher retrieves the sibling chunks of a document's section from the
// vector store, scoped by docId and base path prefix.
type Fetcher interface {
	FetchSection(ctx context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error)
}

const (
	defaultMaxChunksPerSection = 10
	fetchTimeout                = 2 * time.Second
)

// Fetch resolves sibling chunks for every detection, swallowing per-group
// failures (non-fatal — a failed fetch just means that section doesn't get
// reunited).
func Fetch(ctx context.Context, fetcher Fetcher, tenantID string, detections []Detection) map[string][]model.SearchResult {
	out := make(map[string][]model.SearchResult, len(detections))
	for _, d := range detections {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		siblings, err := fetcher.FetchSection(fetchCtx, tenantID, d.DocID, d.BasePath, defaultMaxChunksPerSection)
		cancel()
		if err != nil {
			continue
		}
		out[sectionKey(d.DocID, d.BasePath)] = siblings
	}
	return out
}

func sectionKey(docID, basePath string) string {
	return docID + "::" + basePath
}

// CombineStrategy names how a reconstructed section's score is derived
// from its member chunks' scores.
type CombineStrategy string

const (
	CombineAverage        CombineStrategy = "average"
	CombineMax            CombineStrategy = "max"
	CombineMin            CombineStrategy = "min"
	CombineWeightedAverage CombineStrategy = "weighted_average"
)

// Reconstruct merges a section's sibling chunks into a single result: text
// joined in part order, payloads merged (later parts win on key
// collision), and score combined per strategy.
func Reconstruct(docID, basePath string, siblings []model.SearchResult, strategy CombineStrategy) model.SearchResult {
	sorted := make([]model.SearchResult, len(siblings))
	copy(sorted, siblings)
	sort.Slice(sorted, func(i, j int) bool {
		return partIndex(sorted[i].SectionPath) < partIndex(sorted[j].SectionPath)
	})

	var textParts []string
	payload := make(map[string]any)
	for _, s := range sorted {
		textParts = append(textParts, s.Content)
		for k, v := range s.Payload {
			payload[k] = v
		}
	}

	return model.SearchResult{
		ChunkID:     fmt.Sprintf("%s_%s_reconstructed", docID, basePath),
		DocID:       docID,
		Score:       combineScore(sorted, strategy),
		SearchType:  model.SearchSectionReconstructed,
		SectionPath: basePath,
		Content:     strings.Join(textParts, "\n\n"),
		Payload:     payload,
	}
}

func combineScore(sorted []model.SearchResult, strategy CombineStrategy) float64 {
	if len(sorted) == 0 {
		return 0
	}
	switch strategy {
	case CombineMax:
		max := sorted[0].Score
		for _, s := range sorted[1:] {
			if s.Score > max {
				max = s.Score
			}
		}
		return max
	case CombineMin:
		min := sorted[0].Score
		for _, s := range sorted[1:] {
			if s.Score < min {
				min = s.Score
			}
		}
		return min
	case CombineWeightedAverage:
		var weighted, totalWeight float64
		for i, s := range sorted {
			weight := 1.0 / float64(i+1)
			weighted += s.Score * weight
			totalWeight += weight
		}
		if totalWeight == 0 {
			return 0
		}
		return weighted / totalWeight
	default: // average
		var sum float64
		for _, s := range sorted {
			sum += s.Score
		}
		return sum / float64(len(sorted))
	}
}

// MergeStrategy names how a reconstructed section result is folded back
// into the overall result list.
type MergeStrategy string

const (
	MergeReplace     MergeStrategy = "replace"
	MergeAppend      MergeStrategy = "append"
	MergeInterleave  MergeStrategy = "interleave"
)

// MergeBack folds reconstructed results into results per strategy:
// replace removes the original member chunks and substitutes the
// reconstructed one in the lowest member's position; append keeps the
// originals and adds the reconstructed result at the end; interleave
// inserts the reconstructed result immediately before its first member.
func MergeBack(results []model.SearchResult, reconstructed []model.SearchResult, memberIDs map[string][]string, strategy MergeStrategy) []model.SearchResult {
	if len(reconstructed) == 0 {
		return results
	}

	memberSet := make(map[string]bool)
	for _, ids := range memberIDs {
		for _, id := range ids {
			memberSet[id] = true
		}
	}

	switch strategy {
	case MergeAppend:
		out := make([]model.SearchResult, 0, len(results)+len(reconstructed))
		out = append(out, results...)
		out = append(out, reconstructed...)
		return out
	case MergeInterleave:
		out := make([]model.SearchResult, 0, len(results)+len(reconstructed))
		inserted := make(map[string]bool)
		for _, r := range results {
			for _, rec := range reconstructed {
				key := rec.DocID + "::" + rec.SectionPath
				if !inserted[key] && len(memberIDs[key]) > 0 && memberIDs[key][0] == r.ChunkID {
					out = append(out, rec)
					inserted[key] = true
				}
			}
			out = append(out, r)
		}
		return out
	default: // replace
		out := make([]model.SearchResult, 0, len(results))
		addedRecon := make(map[string]bool)
		for _, r := range results {
			if memberSet[r.ChunkID] {
				key := sectionKeyOf(memberIDs, r.ChunkID)
				if key != "" && !addedRecon[key] {
					for _, rec := range reconstructed {
						if rec.DocID+"::"+rec.SectionPath == key {
							out = append(out, rec)
							addedRecon[key] = true
						}
					}
				}
				continue
			}
			out = append(out, r)
		}
		return out
	}
}

func sectionKeyOf(memberIDs map[string][]string, chunkID string) string {
	for key, ids := range memberIDs {
		for _, id := range ids {
			if id == chunkID {
				return key
			}
		}
	}
	return ""
}
