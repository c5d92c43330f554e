package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragcore/retrieval-core/internal/model"
)

// PgRepository implements Repository over Postgres, adapted from the
// corpus's repository/audit.go: the same insert/range-scan/latest-hash
// queries, generalized from a single global audit_logs table keyed by
// user_id/action to one scoped by tenant_id/decision_type.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a PgRepository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

// Create inserts a new guardrail decision audit entry.
func (r *PgRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO guardrail_audit_logs
			(id, tenant_id, caller_id, query, decision_type, reason_code, result_count, details, details_hash, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.TenantID, entry.CallerID, entry.Query, entry.DecisionType, entry.ReasonCode,
		entry.ResultCount, entry.Details, entry.DetailsHash, entry.LatencyMS, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit.PgRepository.Create: %w", err)
	}
	return nil
}

// GetRange returns audit entries between two IDs (inclusive), ordered by
// creation time, scoped to one tenant.
func (r *PgRepository) GetRange(ctx context.Context, tenantID, startID, endID string) ([]model.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, caller_id, query, decision_type, reason_code, result_count, details, details_hash, latency_ms, created_at
		FROM guardrail_audit_logs
		WHERE tenant_id = $1
		  AND created_at >= (SELECT created_at FROM guardrail_audit_logs WHERE id = $2)
		  AND created_at <= (SELECT created_at FROM guardrail_audit_logs WHERE id = $3)
		ORDER BY created_at ASC`,
		tenantID, startID, endID)
	if err != nil {
		return nil, fmt.Errorf("audit.PgRepository.GetRange: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CallerID, &e.Query, &e.DecisionType, &e.ReasonCode,
			&e.ResultCount, &e.Details, &e.DetailsHash, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit.PgRepository.GetRange: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetLatestHash returns the details_hash of the tenant's most recent audit
// entry, or the empty string (the chain's genesis value) if none exist.
func (r *PgRepository) GetLatestHash(ctx context.Context, tenantID string) (string, error) {
	var hash *string
	err := r.pool.QueryRow(ctx,
		`SELECT details_hash FROM guardrail_audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT 1`,
		tenantID,
	).Scan(&hash)
	if err != nil {
		return "", nil
	}
	if hash == nil {
		return "", nil
	}
	return *hash, nil
}
