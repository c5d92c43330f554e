// Package reranker implements the optional cross-encoder reranking stage
// (§4.5): a batched HTTP client that re-scores (query, chunk) pairs and
// always falls back to passing results through unchanged on any failure,
// resolving the distilled spec's only reranker-related Open Question.
//
// The threshold-filter-then-sort shape and the unconditional pass-through
// fallback are grounded on other_examples' kalambet-tbyd reranker (its
// NoOpReranker and its "graceful degradation" timeout branch). Batches are
// not retried: the first failed batch triggers the pass-through.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/ragcore/retrieval-core/internal/model"
)

const (
	maxQueryChars     = 1200
	maxCandidateChars = 2048
	defaultBatchSize  = 16
	healthProbeWindow = 3 * time.Second
)

// HTTPDoer abstracts *http.Client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Reranker.
type Config struct {
	Endpoint  string
	BatchSize int
	Timeout   time.Duration
	TopKIn    int
	TopKOut   int
	Threshold float64
	Client    HTTPDoer
}

// Reranker calls an external cross-encoder endpoint to re-score candidates.
type Reranker struct {
	cfg Config
}

// New creates a Reranker, filling unset fields with defaults.
func New(cfg Config) *Reranker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Reranker{cfg: cfg}
}

type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank re-scores up to cfg.TopKIn candidates in sequential batches of
// cfg.BatchSize, filters by threshold, sorts descending, and truncates to
// cfg.TopKOut. Any transport or decode failure returns the original
// results unchanged with fellBack true — reranking never fails a search.
func (r *Reranker) Rerank(ctx context.Context, query string, results []model.SearchResult) (reranked []model.SearchResult, fellBack bool) {
	if len(results) == 0 {
		return results, false
	}

	candidates := results
	if r.cfg.TopKIn > 0 && len(candidates) > r.cfg.TopKIn {
		candidates = candidates[:r.cfg.TopKIn]
	}

	truncatedQuery := truncate(query, maxQueryChars)
	scored := make([]model.SearchResult, 0, len(candidates))

	for start := 0; start < len(candidates); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		scores, err := r.scoreBatch(ctx, truncatedQuery, batch)
		if err != nil {
			slog.Warn("reranker: batch scoring failed, passing through", "error", err, "batch_size", len(batch))
			return results, true
		}
		for i, s := range scores {
			rr := batch[i]
			score := s
			rr.OriginalScore = &rr.Score
			rr.RerankerScore = &score
			rr.Score = score
			scored = append(scored, rr)
		}
	}

	filtered := scored[:0:0]
	for _, s := range scored {
		if s.Score >= r.cfg.Threshold {
			filtered = append(filtered, s)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	for i := range filtered {
		filtered[i].Rank = i + 1
	}
	if r.cfg.TopKOut > 0 && len(filtered) > r.cfg.TopKOut {
		filtered = filtered[:r.cfg.TopKOut]
	}
	return filtered, false
}

func (r *Reranker) scoreBatch(ctx context.Context, query string, batch []model.SearchResult) ([]float64, error) {
	candidates := make([]string, len(batch))
	for i, b := range batch {
		candidates[i] = truncate(b.Content, maxCandidateChars)
	}

	body, err := json.Marshal(rerankRequest{Query: query, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("reranker.scoreBatch: marshal: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reranker.scoreBatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reranker.scoreBatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker.scoreBatch: status %d: %s", resp.StatusCode, string(data))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("reranker.scoreBatch: decode: %w", err)
	}
	if len(out.Scores) != len(batch) {
		return nil, errors.New("reranker.scoreBatch: score count mismatch")
	}
	return out.Scores, nil
}

// IsHealthy probes the reranker endpoint with a one-document request within
// a 3s window.
func (r *Reranker) IsHealthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeWindow)
	defer cancel()

	_, err := r.scoreBatch(probeCtx, "health check", []model.SearchResult{{Content: "probe"}})
	return err == nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
