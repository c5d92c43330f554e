// Package vectorstore implements the vector search channel's backing store
// (§4.2's companion, §6's filter shape): a Qdrant-backed client for
// similarity search and section-sibling scrolls, scoped by tenant and ACL.
//
// Collection setup, point-ID UUID derivation, and filter-from-map
// construction are adapted directly from the corpus's qdrant_vector.go
// (intelligencedev-manifold, the only pack repo using
// github.com/qdrant/go-client); the tenant-must/ACL-any/space-must filter
// shape is new, grounded on §6's described filter semantics.
package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/ragcore/retrieval-core/internal/model"
)

// originalIDField stores a chunk's real string ID in the payload since
// Qdrant point IDs must be UUIDs or positive integers.
const originalIDField = "_chunk_id"

// Filter scopes a vector search or scroll to a tenant, a caller's ACL
// groups, and optionally one space (§6).
type Filter struct {
	TenantID string
	GroupIDs []string
	SpaceID  string
	DocID    string
	BasePath string
}

// Store is a Qdrant-backed implementation of the vector search channel.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// New connects to Qdrant and ensures the configured collection exists
// with a cosine-distance vector config of the given dimension.
func New(dsn, collection string, dimension int, apiKey string) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorstore.New: collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.New: parse dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.New: invalid port: %w", err)
	}

	cfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.New: create client: %w", err)
	}

	s := &Store{client: client, collection: collection, dimension: dimension}
	if err := s.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("vectorstore.New: %w", err)
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if s.dimension <= 0 {
		return fmt.Errorf("vector dimension must be > 0")
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func pointID(chunkID string) *qdrant.PointId {
	if _, err := uuid.Parse(chunkID); err == nil {
		return qdrant.NewIDUUID(chunkID)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// Upsert writes one chunk's vector and payload, scoped by tenant/ACL.
func (s *Store) Upsert(ctx context.Context, chunk model.Chunk, vector []float32) error {
	payload := map[string]any{
		originalIDField: chunk.ChunkID,
		"docId":         chunk.DocID,
		"tenantId":      chunk.TenantID,
		"acl":           chunk.ACL,
		"sectionPath":   chunk.SectionPath,
		"content":       chunk.Text,
	}
	for k, v := range chunk.Payload {
		payload[k] = v
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      pointID(chunk.ChunkID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("vectorstore.Upsert: %w", err)
	}
	return nil
}

func buildFilter(f Filter) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch("tenantId", f.TenantID)}
	if f.DocID != "" {
		must = append(must, qdrant.NewMatch("docId", f.DocID))
	}

	qf := &qdrant.Filter{Must: must}
	if len(f.GroupIDs) > 0 {
		anyGroups := make([]*qdrant.Condition, 0, len(f.GroupIDs))
		for _, g := range f.GroupIDs {
			anyGroups = append(anyGroups, qdrant.NewMatch("acl", g))
		}
		qf.Should = anyGroups
	}
	if f.SpaceID != "" {
		must = append(must, qdrant.NewMatch("spaceId", f.SpaceID))
		qf.Must = must
	}
	return qf
}

// Search runs a dense vector similarity query scoped by filter.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]model.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := uint64(topK)
	vec := make([]float32, len(vector))
	copy(vec, vector)

	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore.Search: %w", err)
	}
	return toSearchResults(hits), nil
}

// FetchSection scrolls for the sibling chunks of a document section,
// matching internal/section.Fetcher.
func (s *Store) FetchSection(ctx context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	filter := Filter{TenantID: tenantID, DocID: docID, BasePath: basePath}
	qf := buildFilter(filter)
	qf.Must = append(qf.Must, qdrant.NewMatchText("sectionPath", basePath))

	lim := uint32(limit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         qf,
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore.FetchSection: %w", err)
	}
	return toSearchResultsFromPoints(points), nil
}

func toSearchResults(hits []*qdrant.ScoredPoint) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(hits))
	for i, hit := range hits {
		out = append(out, fromPayload(hit.Payload, float64(hit.Score), i+1))
	}
	return out
}

func toSearchResultsFromPoints(points []*qdrant.RetrievedPoint) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(points))
	for i, p := range points {
		out = append(out, fromPayload(p.Payload, 0, i+1))
	}
	return out
}

func fromPayload(payload map[string]*qdrant.Value, score float64, rank int) model.SearchResult {
	chunkID := ""
	docID := ""
	sectionPath := ""
	content := ""
	if payload != nil {
		if v, ok := payload[originalIDField]; ok {
			chunkID = v.GetStringValue()
		}
		if v, ok := payload["docId"]; ok {
			docID = v.GetStringValue()
		}
		if v, ok := payload["sectionPath"]; ok {
			sectionPath = v.GetStringValue()
		}
		if v, ok := payload["content"]; ok {
			content = v.GetStringValue()
		}
	}
	vs := score
	return model.SearchResult{
		ChunkID:     chunkID,
		DocID:       docID,
		Score:       score,
		VectorScore: &vs,
		Rank:        rank,
		SearchType:  model.SearchVectorOnly,
		SectionPath: sectionPath,
		Content:     content,
	}
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
