package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ragcore/retrieval-core/internal/keyword"
	"github.com/ragcore/retrieval-core/internal/model"
)

// defaultScrollLimit bounds how many chunks a single keyword-channel scroll
// pulls back per tenant/ACL scope. A corpus large enough to need paging
// belongs behind a dedicated full-text index rather than this scroll.
const defaultScrollLimit = 5000

// ChunkSourceAdapter implements internal/keyword.ChunkSource over the
// Qdrant-backed Store, scrolling the tenant/ACL-scoped point set and handing
// each point's payload back as a keyword.Candidate carrying idf.
type ChunkSourceAdapter struct {
	store *Store
	idf   keyword.IDFLookup
}

// NewChunkSourceAdapter creates a ChunkSourceAdapter. idf is typically
// sourced from internal/corpus's per-tenant IDFLookup.
func NewChunkSourceAdapter(store *Store, idf keyword.IDFLookup) *ChunkSourceAdapter {
	return &ChunkSourceAdapter{store: store, idf: idf}
}

var _ keyword.ChunkSource = (*ChunkSourceAdapter)(nil)

// Candidates scrolls every chunk visible to filter's tenant and ACL groups.
func (a *ChunkSourceAdapter) Candidates(ctx context.Context, filter keyword.Filter) ([]keyword.Candidate, error) {
	limit := uint32(defaultScrollLimit)
	points, err := a.store.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: a.store.collection,
		Filter: buildFilter(Filter{
			TenantID: filter.TenantID,
			GroupIDs: filter.GroupIDs,
			SpaceID:  filter.SpaceID,
		}),
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore.Candidates: %w", err)
	}

	out := make([]keyword.Candidate, 0, len(points))
	for _, p := range points {
		out = append(out, keyword.Candidate{Chunk: chunkFromPayload(p.Payload), IDF: a.idf})
	}
	return out, nil
}

func chunkFromPayload(payload map[string]*qdrant.Value) model.Chunk {
	var c model.Chunk
	if payload == nil {
		return c
	}
	if v, ok := payload[originalIDField]; ok {
		c.ChunkID = v.GetStringValue()
	}
	if v, ok := payload["docId"]; ok {
		c.DocID = v.GetStringValue()
	}
	if v, ok := payload["tenantId"]; ok {
		c.TenantID = v.GetStringValue()
	}
	if v, ok := payload["sectionPath"]; ok {
		c.SectionPath = v.GetStringValue()
	}
	if v, ok := payload["content"]; ok {
		c.Text = v.GetStringValue()
	}
	if v, ok := payload["acl"]; ok {
		for _, item := range v.GetListValue().GetValues() {
			c.ACL = append(c.ACL, item.GetStringValue())
		}
	}
	return c
}
