// Package guardrail implements the answerability guardrail (§4.8): it
// scores a completed search's result set for whether the retrieval
// actually supports an answer, and when it doesn't, emits a structured
// refusal instead of letting a weakly-grounded answer through.
//
// The refusal shape (message, confidence, suggestions) is a direct
// generalization of the corpus's SilenceResponse/BuildSilenceResponse
// (service/silence.go) from a single fixed message into tenant-configured
// IDK templates; the composite scoring and bypass/disabled handling are
// new, grounded on §4.8 and §3's TenantGuardrailConfig.
package guardrail

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ragcore/retrieval-core/internal/model"
)

// idkTemplates maps a template id to its base refusal message, the way
// SilenceResponse carried one fixed message; tenants select among these by
// IDKTemplateIDs rather than writing free text.
var idkTemplates = map[string]string{
	"default": "I cannot provide a sufficiently grounded answer to this query based on your documents.",
	"narrow":  "Your documents don't contain enough specific information to answer confidently.",
	"upload":  "I don't have enough relevant documents indexed yet to answer this.",
}

var defaultSuggestions = []string{
	"Upload additional documents related to this topic",
	"Try rephrasing your question with more specific terms",
	"Narrow the scope of your query to a specific document or date range",
}

// Evaluator applies a tenant's guardrail config to a completed search.
type Evaluator struct {
	cfg model.TenantGuardrailConfig
}

// New creates an Evaluator for a tenant's guardrail config.
func New(cfg model.TenantGuardrailConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate scores results and returns a GuardrailDecision. When the
// guardrail is disabled or the caller's groups are bypass-listed, the
// decision is always answerable with a nil IDK.
func (e *Evaluator) Evaluate(ctx context.Context, query string, results []model.SearchResult, caller model.UserContext) model.GuardrailDecision {
	start := time.Now()

	if e.cfg.Disabled {
		return e.pass(query, caller, len(results), model.AuditDecisionDisabled, "", start)
	}
	if e.cfg.BypassEnabled && groupsIntersect(caller.GroupIDs, e.cfg.BypassGroups) {
		return e.pass(query, caller, len(results), model.AuditDecisionBypassed, "", start)
	}

	stats := computeStats(results)
	subScores := computeSubScores(results, stats, e.cfg.Threshold)
	confidence := clamp01(
		subScores.Statistical*e.cfg.Weights.Statistical +
			subScores.Threshold*e.cfg.Weights.Threshold +
			subScores.MLFeatures*e.cfg.Weights.MLFeatures +
			subScores.RerankerConfidence*e.cfg.Weights.RerankerConfidence,
	)

	score := model.AnswerabilityScore{
		Confidence:    confidence,
		Stats:         stats,
		SubScores:     subScores,
		Reasoning:     reasoningFor(confidence, stats, e.cfg.Threshold),
		ComputeTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}

	isAnswerable := confidence >= e.cfg.Threshold.MinConfidence &&
		stats.Max >= e.cfg.Threshold.MinTopScore &&
		stats.Mean >= e.cfg.Threshold.MinMeanScore &&
		stats.StdDev <= e.cfg.Threshold.MaxStdDev &&
		stats.Count >= e.cfg.Threshold.MinResultCount

	decisionType := model.AuditDecisionAnswerable
	var idk *model.IDKResponse
	var reasonCode string
	if !isAnswerable {
		decisionType = model.AuditDecisionNotAnswerable
		reasonCode = reasonCodeFor(stats, e.cfg.Threshold, confidence)
		idk = e.buildIDK(confidence, query, results)
	}

	return model.GuardrailDecision{
		IsAnswerable: isAnswerable,
		Score:        score,
		Threshold:    e.cfg.Threshold,
		IDK:          idk,
		Audit: model.GuardrailAuditTrail{
			TimestampISO:      start.UTC().Format(time.RFC3339),
			Query:             query,
			TenantID:          e.cfg.TenantID,
			RetrievalCount:    len(results),
			ScoreStatsSummary: summarize(stats),
			DecisionType:      decisionType,
			DecisionRationale: score.Reasoning,
			ReasonCode:        reasonCode,
			LatencyMS:         score.ComputeTimeMS,
			CallerID:          caller.ID,
		},
	}
}

func (e *Evaluator) pass(query string, caller model.UserContext, count int, decisionType, reasonCode string, start time.Time) model.GuardrailDecision {
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	return model.GuardrailDecision{
		IsAnswerable: true,
		Threshold:    e.cfg.Threshold,
		Audit: model.GuardrailAuditTrail{
			TimestampISO:   start.UTC().Format(time.RFC3339),
			Query:          query,
			TenantID:       e.cfg.TenantID,
			RetrievalCount: count,
			DecisionType:   decisionType,
			ReasonCode:     reasonCode,
			LatencyMS:      latency,
			CallerID:       caller.ID,
		},
	}
}

func (e *Evaluator) buildIDK(confidence float64, query string, results []model.SearchResult) *model.IDKResponse {
	templateID := "default"
	if len(e.cfg.IDKTemplateIDs) > 0 {
		templateID = e.cfg.IDKTemplateIDs[0]
	}
	message, ok := idkTemplates[templateID]
	if !ok {
		message = idkTemplates["default"]
	}

	var suggestions []string
	if e.cfg.Fallback.Enabled && confidence < e.cfg.Fallback.SuggestionThreshold {
		suggestions = defaultSuggestions
		if e.cfg.Fallback.MaxSuggestions > 0 && len(suggestions) > e.cfg.Fallback.MaxSuggestions {
			suggestions = suggestions[:e.cfg.Fallback.MaxSuggestions]
		}
	}

	return &model.IDKResponse{
		Message:     message,
		ReasonCode:  reasonCodeFor(computeStats(results), e.cfg.Threshold, confidence),
		Suggestions: suggestions,
		Confidence:  confidence,
	}
}

func groupsIntersect(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, g := range b {
		set[g] = true
	}
	for _, g := range a {
		if set[g] {
			return true
		}
	}
	return false
}

func computeStats(results []model.SearchResult) model.ScoreStatistics {
	if len(results) == 0 {
		return model.ScoreStatistics{}
	}
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	sort.Float64s(scores)

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	var sq float64
	for _, s := range scores {
		d := s - mean
		sq += d * d
	}
	stdDev := math.Sqrt(sq / float64(len(scores)))

	return model.ScoreStatistics{
		Mean:   mean,
		Max:    scores[len(scores)-1],
		Min:    scores[0],
		StdDev: stdDev,
		Count:  len(scores),
		P25:    percentile(scores, 0.25),
		P50:    percentile(scores, 0.50),
		P75:    percentile(scores, 0.75),
		P90:    percentile(scores, 0.90),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func computeSubScores(results []model.SearchResult, stats model.ScoreStatistics, threshold model.GuardrailThreshold) model.SubScores {
	statistical := clamp01(stats.Mean)
	thresholdScore := 0.0
	if threshold.MinTopScore > 0 {
		thresholdScore = clamp01(stats.Max / threshold.MinTopScore)
	}

	coverage := clamp01(float64(stats.Count) / 5.0)
	spread := clamp01(1.0 - stats.StdDev)
	mlFeatures := clamp01((coverage + spread) / 2.0)

	var rerankerConfidence float64
	var rerankedCount int
	for _, r := range results {
		if r.RerankerScore != nil {
			rerankerConfidence += *r.RerankerScore
			rerankedCount++
		}
	}
	if rerankedCount > 0 {
		rerankerConfidence = clamp01(rerankerConfidence / float64(rerankedCount))
	} else {
		rerankerConfidence = statistical
	}

	return model.SubScores{
		Statistical:        statistical,
		Threshold:          thresholdScore,
		MLFeatures:         mlFeatures,
		RerankerConfidence: rerankerConfidence,
	}
}

func reasonCodeFor(stats model.ScoreStatistics, threshold model.GuardrailThreshold, confidence float64) string {
	switch {
	case stats.Count < threshold.MinResultCount:
		return "insufficient_results"
	case stats.Max < threshold.MinTopScore:
		return "low_top_score"
	case stats.Mean < threshold.MinMeanScore:
		return "low_mean_score"
	case stats.StdDev > threshold.MaxStdDev:
		return "high_score_variance"
	case confidence < threshold.MinConfidence:
		return "low_confidence"
	default:
		return ""
	}
}

func reasoningFor(confidence float64, stats model.ScoreStatistics, threshold model.GuardrailThreshold) string {
	if confidence >= threshold.MinConfidence {
		return "retrieval evidence meets the configured confidence bar"
	}
	return "retrieval evidence falls short of the configured confidence bar"
}

func summarize(stats model.ScoreStatistics) string {
	return "mean=" + formatFloat(stats.Mean) + " max=" + formatFloat(stats.Max) + " stdDev=" + formatFloat(stats.StdDev)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
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
