// Package space implements the per-tenant space registry and resolver
// (§4.10's space resolution step): spaces bucket documents by topic so
// search can scope or boost by space.
//
// Adapted from the corpus's repository/folder.go, which scoped a simple
// folder hierarchy per user via pgx; this generalizes the same CRUD shape
// to a per-tenant Space list with a seed-match-then-auto-create-then-
// general-fallback resolution policy the teacher's folders never needed.
package space

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/google/uuid"

	"github.com/ragcore/retrieval-core/internal/model"
)

// Repository persists a tenant's space registry.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]model.Space, error)
	Create(ctx context.Context, space model.Space) error
}

// PgRepository implements Repository with pgx, mirroring folder.go's
// Create/ListByUser/Delete shape scoped to tenant_id instead of user_id.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a PgRepository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

func (r *PgRepository) ListByTenant(ctx context.Context, tenantID string) ([]model.Space, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT space_id, tenant_id, name, authority_score, auto_created, status
		 FROM spaces WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("space.PgRepository.ListByTenant: %w", err)
	}
	defer rows.Close()

	var spaces []model.Space
	for rows.Next() {
		var s model.Space
		if err := rows.Scan(&s.SpaceID, &s.TenantID, &s.Name, &s.AuthorityScore, &s.AutoCreated, &s.Status); err != nil {
			return nil, fmt.Errorf("space.PgRepository.ListByTenant: scan: %w", err)
		}
		spaces = append(spaces, s)
	}
	return spaces, nil
}

func (r *PgRepository) Create(ctx context.Context, space model.Space) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO spaces (space_id, tenant_id, name, authority_score, auto_created, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		space.SpaceID, space.TenantID, space.Name, space.AuthorityScore, space.AutoCreated, space.Status,
	)
	if err != nil {
		return fmt.Errorf("space.PgRepository.Create: %w", err)
	}
	return nil
}

// Resolver resolves, lists, and lazily provisions a tenant's spaces.
type Resolver struct {
	repo Repository
}

// New creates a Resolver.
func New(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ListSpaces returns a tenant's spaces, guaranteeing the "general"
// fallback space exists.
func (r *Resolver) ListSpaces(ctx context.Context, tenantID string) ([]model.Space, error) {
	spaces, err := r.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("space.ListSpaces: %w", err)
	}
	if _, ok := findByName(spaces, model.GeneralSpaceName); ok {
		return spaces, nil
	}

	general, err := r.EnsureGeneralSpace(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return append(spaces, general), nil
}

// EnsureGeneralSpace creates the tenant's "general" fallback space if it
// doesn't already exist, and returns it either way.
func (r *Resolver) EnsureGeneralSpace(ctx context.Context, tenantID string) (model.Space, error) {
	spaces, err := r.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return model.Space{}, fmt.Errorf("space.EnsureGeneralSpace: %w", err)
	}
	if existing, ok := findByName(spaces, model.GeneralSpaceName); ok {
		return existing, nil
	}

	general := model.Space{
		SpaceID:        uuid.New().String(),
		TenantID:       tenantID,
		Name:           model.GeneralSpaceName,
		AuthorityScore: 1.0,
		AutoCreated:    true,
		Status:         model.SpaceActive,
	}
	if err := r.repo.Create(ctx, general); err != nil {
		return model.Space{}, fmt.Errorf("space.EnsureGeneralSpace: %w", err)
	}
	return general, nil
}

// Resolve matches a document's declared space name against the tenant's
// existing spaces (case-insensitive exact match). If no match exists, it
// auto-creates a new space for that name; an empty name resolves to
// "general".
func (r *Resolver) Resolve(ctx context.Context, tenantID, name string) (model.Space, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.EnsureGeneralSpace(ctx, tenantID)
	}

	spaces, err := r.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return model.Space{}, fmt.Errorf("space.Resolve: %w", err)
	}
	if existing, ok := findByName(spaces, name); ok {
		return existing, nil
	}

	created := model.Space{
		SpaceID:        uuid.New().String(),
		TenantID:       tenantID,
		Name:           name,
		AuthorityScore: 0.5,
		AutoCreated:    true,
		Status:         model.SpaceActive,
	}
	if err := r.repo.Create(ctx, created); err != nil {
		return model.Space{}, fmt.Errorf("space.Resolve: %w", err)
	}
	return created, nil
}

func findByName(spaces []model.Space, name string) (model.Space, bool) {
	for _, s := range spaces {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return model.Space{}, false
}
