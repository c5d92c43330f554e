package keyword

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/retrieval-core/internal/model"
)

func TestTokenize_DropsStopWordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("The quick fox is at it")
	assert.Equal(t, []string{"quick", "fox"}, tokens)
}

func TestTokenize_EmptyWhenNothingSurvives(t *testing.T) {
	tokens := Tokenize("a is the of to")
	assert.Empty(t, tokens)
}

func TestScore_ZeroWhenNoOverlap(t *testing.T) {
	score := Score([]string{"alpha"}, []string{"beta", "gamma"}, nil)
	assert.Equal(t, 0.0, score)
}

func TestScore_PerfectCoverageBoost(t *testing.T) {
	idf := func(string) float64 { return 1.0 }
	partial := Score([]string{"alpha", "beta"}, []string{"alpha", "alpha"}, idf)
	full := Score([]string{"alpha", "beta"}, []string{"alpha", "beta"}, idf)
	assert.Greater(t, full, partial)
}

func TestScore_CappedAtOne(t *testing.T) {
	idf := func(string) float64 { return 100.0 }
	score := Score([]string{"alpha", "beta"}, []string{"alpha", "beta", "alpha", "beta"}, idf)
	assert.Equal(t, 1.0, score)
}

type fakeSource struct {
	candidates []Candidate
}

func (f *fakeSource) Candidates(ctx context.Context, filter Filter) ([]Candidate, error) {
	return f.candidates, nil
}

func TestSearcher_Search_RanksByScore(t *testing.T) {
	source := &fakeSource{candidates: []Candidate{
		{Chunk: model.Chunk{ChunkID: "c1", Text: "machine learning systems overview"}},
		{Chunk: model.Chunk{ChunkID: "c2", Text: "unrelated cooking recipe instructions"}},
	}}
	s := New(source)

	results, err := s.Search(context.Background(), "machine learning", 10, Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, model.SearchKeywordOnly, results[0].SearchType)
}

func TestSearcher_Search_EmptyQueryReturnsNil(t *testing.T) {
	s := New(&fakeSource{})
	results, err := s.Search(context.Background(), "the a of", 10, Filter{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearcher_Search_TruncatesToTopK(t *testing.T) {
	source := &fakeSource{candidates: []Candidate{
		{Chunk: model.Chunk{ChunkID: "c1", Text: "alpha beta gamma"}},
		{Chunk: model.Chunk{ChunkID: "c2", Text: "alpha beta delta"}},
		{Chunk: model.Chunk{ChunkID: "c3", Text: "alpha zeta eta"}},
	}}
	s := New(source)
	results, err := s.Search(context.Background(), "alpha beta gamma delta", 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
