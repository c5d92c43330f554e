package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragcore/retrieval-core/internal/model"
)

// TenantConfigRepo persists per-tenant search and guardrail configuration,
// validating on write so every read is guaranteed structurally sound.
// Tables follow the same single-pool, pgx-direct-SQL shape as db.go's pool
// setup and folder.go's CRUD.
type TenantConfigRepo struct {
	pool *pgxpool.Pool
}

// NewTenantConfigRepo creates a TenantConfigRepo.
func NewTenantConfigRepo(pool *pgxpool.Pool) *TenantConfigRepo {
	return &TenantConfigRepo{pool: pool}
}

// SearchConfig returns a tenant's search configuration, or the global
// default if the tenant has no override on file.
func (r *TenantConfigRepo) SearchConfig(ctx context.Context, tenantID string) (model.TenantSearchConfig, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT config FROM tenant_search_configs WHERE tenant_id = $1`, tenantID,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return model.DefaultTenantSearchConfig(tenantID), nil
	}
	if err != nil {
		return model.TenantSearchConfig{}, fmt.Errorf("repository.TenantConfigRepo.SearchConfig: %w", err)
	}

	var cfg model.TenantSearchConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.TenantSearchConfig{}, fmt.Errorf("repository.TenantConfigRepo.SearchConfig: decode: %w", err)
	}
	return cfg, nil
}

// PutSearchConfig validates and upserts a tenant's search configuration.
func (r *TenantConfigRepo) PutSearchConfig(ctx context.Context, cfg model.TenantSearchConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("repository.TenantConfigRepo.PutSearchConfig: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("repository.TenantConfigRepo.PutSearchConfig: encode: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO tenant_search_configs (tenant_id, config) VALUES ($1, $2)
		 ON CONFLICT (tenant_id) DO UPDATE SET config = EXCLUDED.config`,
		cfg.TenantID, raw,
	)
	if err != nil {
		return fmt.Errorf("repository.TenantConfigRepo.PutSearchConfig: %w", err)
	}
	return nil
}

// GuardrailConfig returns a tenant's guardrail configuration, or the
// moderate-preset default if the tenant has no override on file.
func (r *TenantConfigRepo) GuardrailConfig(ctx context.Context, tenantID string) (model.TenantGuardrailConfig, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT config FROM tenant_guardrail_configs WHERE tenant_id = $1`, tenantID,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return model.DefaultTenantGuardrailConfig(tenantID), nil
	}
	if err != nil {
		return model.TenantGuardrailConfig{}, fmt.Errorf("repository.TenantConfigRepo.GuardrailConfig: %w", err)
	}

	var cfg model.TenantGuardrailConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.TenantGuardrailConfig{}, fmt.Errorf("repository.TenantConfigRepo.GuardrailConfig: decode: %w", err)
	}
	return cfg, nil
}

// PutGuardrailConfig validates and upserts a tenant's guardrail configuration.
func (r *TenantConfigRepo) PutGuardrailConfig(ctx context.Context, cfg model.TenantGuardrailConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("repository.TenantConfigRepo.PutGuardrailConfig: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("repository.TenantConfigRepo.PutGuardrailConfig: encode: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO tenant_guardrail_configs (tenant_id, config) VALUES ($1, $2)
		 ON CONFLICT (tenant_id) DO UPDATE SET config = EXCLUDED.config`,
		cfg.TenantID, raw,
	)
	if err != nil {
		return fmt.Errorf("repository.TenantConfigRepo.PutGuardrailConfig: %w", err)
	}
	return nil
}
