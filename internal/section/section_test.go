package section

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/retrieval-core/internal/model"
)

func TestBasePath_MatchesPartSuffix(t *testing.T) {
	base, ok := BasePath("block_3/part_1")
	require.True(t, ok)
	assert.Equal(t, "block_3", base)
}

func TestBasePath_RejectsMalformed(t *testing.T) {
	_, ok := BasePath("not-a-section")
	assert.False(t, ok)
}

func TestDetect_GroupsMultiPartHit(t *testing.T) {
	results := []model.SearchResult{
		{ChunkID: "c1", DocID: "d1", SectionPath: "block_1/part_0"},
		{ChunkID: "c2", DocID: "d1", SectionPath: "block_1/part_1"},
	}
	detections := Detect(results)
	require.Len(t, detections, 1)
	assert.Equal(t, TriggerMultiPartHit, detections[0].Reason)
	assert.Equal(t, 0.8, detections[0].Confidence)
}

func TestDetect_SkipsUnmatchedSectionPaths(t *testing.T) {
	results := []model.SearchResult{{ChunkID: "c1", DocID: "d1", SectionPath: ""}}
	detections := Detect(results)
	assert.Empty(t, detections)
}

type fakeFetcher struct {
	results []model.SearchResult
	err     error
}

func (f *fakeFetcher) FetchSection(ctx context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error) {
	return f.results, f.err
}

func TestFetch_NonFatalOnError(t *testing.T) {
	fetcher := &fakeFetcher{err: assertError{}}
	detections := []Detection{{DocID: "d1", BasePath: "block_1"}}
	out := Fetch(context.Background(), fetcher, "t1", detections)
	assert.Empty(t, out)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestReconstruct_OrdersByPartIndexAndJoinsText(t *testing.T) {
	siblings := []model.SearchResult{
		{SectionPath: "block_1/part_1", Content: "second", Score: 0.4},
		{SectionPath: "block_1/part_0", Content: "first", Score: 0.8},
	}
	out := Reconstruct("d1", "block_1", siblings, CombineAverage)
	assert.Equal(t, "first\n\nsecond", out.Content)
	assert.InDelta(t, 0.6, out.Score, 0.001)
	assert.Equal(t, model.SearchSectionReconstructed, out.SearchType)
}

func TestReconstruct_MaxStrategy(t *testing.T) {
	siblings := []model.SearchResult{
		{SectionPath: "block_1/part_0", Content: "a", Score: 0.2},
		{SectionPath: "block_1/part_1", Content: "b", Score: 0.9},
	}
	out := Reconstruct("d1", "block_1", siblings, CombineMax)
	assert.Equal(t, 0.9, out.Score)
}

func TestMergeBack_AppendKeepsOriginalsAndAdds(t *testing.T) {
	results := []model.SearchResult{{ChunkID: "c1"}}
	reconstructed := []model.SearchResult{{ChunkID: "recon1"}}
	out := MergeBack(results, reconstructed, nil, MergeAppend)
	assert.Len(t, out, 2)
}

func TestMergeBack_EmptyReconstructedIsNoOp(t *testing.T) {
	results := []model.SearchResult{{ChunkID: "c1"}}
	out := MergeBack(results, nil, nil, MergeReplace)
	assert.Equal(t, results, out)
}
