package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/ragcore/retrieval-core/internal/model"
)

// PgStore is a pgvector-backed alternative to the Qdrant Store, for
// deployments that keep chunk vectors alongside their relational rows
// instead of in a dedicated vector database. Adapted from the corpus's
// ChunkRepo (repository/chunk.go): the same cosine-distance "<=>" operator
// and pgx.Batch bulk insert, generalized from a single-tenant user_id scope
// to tenant_id plus an ACL "any" match and an optional space scope, and
// from a document-join query to one that reads section_path directly off
// the chunk row so FetchSection doesn't need the documents table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore. The chunks table must have an "embedding
// vector(n)" column registered via pgvector-go/pgx's RegisterTypes.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

var _ VectorStore = (*PgStore)(nil)

// Upsert writes one chunk's vector and metadata via an INSERT ... ON
// CONFLICT, matching the corpus's BulkInsert shape but single-row;
// BulkUpsert covers the multi-row case.
func (s *PgStore) Upsert(ctx context.Context, chunk model.Chunk, vector []float32) error {
	embedding := pgvector.NewVector(vector)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chunks (chunk_id, document_id, tenant_id, acl, section_path, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			acl = EXCLUDED.acl,
			section_path = EXCLUDED.section_path,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		chunk.ChunkID, chunk.DocID, chunk.TenantID, chunk.ACL, chunk.SectionPath, chunk.Text, embedding, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("vectorstore.PgStore.Upsert: %w", err)
	}
	return nil
}

// BulkUpsert writes many chunks in one round trip using pgx.Batch, carried
// over from the corpus's BulkInsert for bulk ingestion paths.
func (s *PgStore) BulkUpsert(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("vectorstore.PgStore.BulkUpsert: chunk count (%d) != vector count (%d)", len(chunks), len(vectors))
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for i, c := range chunks {
		embedding := pgvector.NewVector(vectors[i])
		batch.Queue(`
			INSERT INTO chunks (chunk_id, document_id, tenant_id, acl, section_path, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (chunk_id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				acl = EXCLUDED.acl,
				section_path = EXCLUDED.section_path,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			c.ChunkID, c.DocID, c.TenantID, c.ACL, c.SectionPath, c.Text, embedding, now,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("vectorstore.PgStore.BulkUpsert: chunk %d: %w", i, err)
		}
	}
	return nil
}

// Search runs a cosine-distance nearest-neighbor query scoped by filter,
// mirroring the corpus's SimilaritySearch but generalized from a
// user_id/is_privileged scope to tenant_id/ACL/space.
func (s *PgStore) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]model.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	embedding := pgvector.NewVector(vector)

	query := `
		SELECT chunk_id, document_id, section_path, content,
			1 - (embedding <=> $1::vector) AS similarity
		FROM chunks
		WHERE tenant_id = $2
		  AND ($3::text[] IS NULL OR acl && $3)
		  AND ($4::text = '' OR document_id = $4)
		  AND ($5::text = '' OR space_id = $5)
		ORDER BY embedding <=> $1::vector
		LIMIT $6`

	rows, err := s.pool.Query(ctx, query, embedding, filter.TenantID,
		nullableGroupIDs(filter.GroupIDs), filter.DocID, filter.SpaceID, topK)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.PgStore.Search: %w", err)
	}
	defer rows.Close()

	var out []model.SearchResult
	rank := 0
	for rows.Next() {
		rank++
		var r model.SearchResult
		var score float64
		if err := rows.Scan(&r.ChunkID, &r.DocID, &r.SectionPath, &r.Content, &score); err != nil {
			return nil, fmt.Errorf("vectorstore.PgStore.Search: scan: %w", err)
		}
		r.Score = score
		r.VectorScore = &score
		r.Rank = rank
		r.SearchType = model.SearchVectorOnly
		out = append(out, r)
	}
	return out, nil
}

// FetchSection loads the sibling chunks of a document section by
// section_path prefix, matching internal/section.Fetcher.
func (s *PgStore) FetchSection(ctx context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, document_id, section_path, content
		FROM chunks
		WHERE tenant_id = $1 AND document_id = $2 AND section_path LIKE $3 || '%'
		ORDER BY section_path
		LIMIT $4`,
		tenantID, docID, basePath, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.PgStore.FetchSection: %w", err)
	}
	defer rows.Close()

	var out []model.SearchResult
	rank := 0
	for rows.Next() {
		rank++
		var r model.SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocID, &r.SectionPath, &r.Content); err != nil {
			return nil, fmt.Errorf("vectorstore.PgStore.FetchSection: scan: %w", err)
		}
		r.Rank = rank
		r.SearchType = model.SearchSectionRelated
		out = append(out, r)
	}
	return out, nil
}

func nullableGroupIDs(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}
	return groups
}
