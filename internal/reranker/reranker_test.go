package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/retrieval-core/internal/model"
)

type fakeDoer struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) { return f.handler(req) }

func jsonResponse(status int, body any) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(data)), Header: make(http.Header)}
}

func TestRerank_SortsFiltersAndRanks(t *testing.T) {
	doer := &fakeDoer{handler: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, rerankResponse{Scores: []float64{0.2, 0.9}}), nil
	}}
	r := New(Config{Endpoint: "http://x/rerank", Client: doer, Threshold: 0.5})

	results := []model.SearchResult{{ChunkID: "a", Content: "low"}, {ChunkID: "b", Content: "high"}}
	out, fellBack := r.Rerank(context.Background(), "query", results)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ChunkID)
	assert.Equal(t, 1, out[0].Rank)
	assert.False(t, fellBack)
}

func TestRerank_PassesThroughOnFailure(t *testing.T) {
	doer := &fakeDoer{handler: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, map[string]string{}), nil
	}}
	r := New(Config{Endpoint: "http://x/rerank", Client: doer})

	results := []model.SearchResult{{ChunkID: "a"}, {ChunkID: "b"}}
	out, fellBack := r.Rerank(context.Background(), "query", results)
	assert.Equal(t, results, out)
	assert.True(t, fellBack)
}

func TestRerank_EmptyInputReturnsEmpty(t *testing.T) {
	r := New(Config{Endpoint: "http://x/rerank"})
	out, fellBack := r.Rerank(context.Background(), "query", nil)
	assert.Empty(t, out)
	assert.False(t, fellBack)
}

func TestTruncate_QueryAndCandidateLimits(t *testing.T) {
	longQuery := strings.Repeat("q", maxQueryChars+500)
	var capturedQuery string
	var capturedCandidate string
	doer := &fakeDoer{handler: func(req *http.Request) (*http.Response, error) {
		var decoded rerankRequest
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &decoded)
		capturedQuery = decoded.Query
		capturedCandidate = decoded.Candidates[0]
		return jsonResponse(http.StatusOK, rerankResponse{Scores: []float64{0.9}}), nil
	}}
	r := New(Config{Endpoint: "http://x/rerank", Client: doer, Threshold: 0})

	longCandidate := strings.Repeat("c", maxCandidateChars+500)
	r.Rerank(context.Background(), longQuery, []model.SearchResult{{ChunkID: "a", Content: longCandidate}})

	assert.LessOrEqual(t, len(capturedQuery), maxQueryChars)
	assert.LessOrEqual(t, len(capturedCandidate), maxCandidateChars)
}

func TestIsHealthy(t *testing.T) {
	doer := &fakeDoer{handler: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, rerankResponse{Scores: []float64{0.5}}), nil
	}}
	r := New(Config{Endpoint: "http://x/rerank", Client: doer})
	assert.True(t, r.IsHealthy(context.Background()))
}
