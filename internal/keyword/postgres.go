package keyword

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragcore/retrieval-core/internal/model"
)

// PgChunkSource implements ChunkSource over a PostgreSQL chunks table,
// adapted from the corpus's repository/bm25.go, generalized from a single
// user_id scope to tenant_id plus an ACL "any" match, and from returning
// ranked results directly (the corpus let Postgres's ts_rank_cd do the
// scoring) to returning unscored candidates — this package's own Score
// function does the ranking so behavior stays consistent with the
// in-process ChunkSource implementations. The query has no full-text
// predicate: the query terms play no part in which rows are returned.
type PgChunkSource struct {
	pool *pgxpool.Pool
	idf  IDFLookup
}

// NewPgChunkSource creates a PgChunkSource. idf is typically sourced from
// internal/corpus's per-tenant IDFLookup.
func NewPgChunkSource(pool *pgxpool.Pool, idf IDFLookup) *PgChunkSource {
	return &PgChunkSource{pool: pool, idf: idf}
}

var _ ChunkSource = (*PgChunkSource)(nil)

// Candidates returns up to 5000 chunks scoped to the tenant, the ACL groups
// (when any are given) and the space (when set). No text predicate is
// applied, so which chunks fall inside the row limit does not depend on
// the query.
func (s *PgChunkSource) Candidates(ctx context.Context, filter Filter) ([]Candidate, error) {
	query := `
		SELECT chunk_id, document_id, tenant_id, acl, section_path, content
		FROM chunks
		WHERE tenant_id = $1
		  AND ($2::text[] IS NULL OR acl && $2)
		  AND ($3::text = '' OR space_id = $3)
		LIMIT 5000`
	rows, err := s.pool.Query(ctx, query, filter.TenantID, nullableGroupIDs(filter.GroupIDs), filter.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("keyword.PgChunkSource.Candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.TenantID, &c.ACL, &c.SectionPath, &c.Text); err != nil {
			return nil, fmt.Errorf("keyword.PgChunkSource.Candidates: scan: %w", err)
		}
		out = append(out, Candidate{Chunk: c, IDF: s.idf})
	}
	return out, nil
}

func nullableGroupIDs(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}
	return groups
}
