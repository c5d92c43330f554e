package space

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/retrieval-core/internal/model"
)

type fakeRepo struct {
	spaces map[string][]model.Space
}

func newFakeRepo() *fakeRepo { return &fakeRepo{spaces: make(map[string][]model.Space)} }

func (f *fakeRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.Space, error) {
	return f.spaces[tenantID], nil
}

func (f *fakeRepo) Create(ctx context.Context, space model.Space) error {
	f.spaces[space.TenantID] = append(f.spaces[space.TenantID], space)
	return nil
}

func TestEnsureGeneralSpace_CreatesOnce(t *testing.T) {
	repo := newFakeRepo()
	r := New(repo)

	first, err := r.EnsureGeneralSpace(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.GeneralSpaceName, first.Name)

	second, err := r.EnsureGeneralSpace(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, first.SpaceID, second.SpaceID)
	assert.Len(t, repo.spaces["t1"], 1)
}

func TestResolve_EmptyNameFallsBackToGeneral(t *testing.T) {
	repo := newFakeRepo()
	r := New(repo)
	space, err := r.Resolve(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, model.GeneralSpaceName, space.Name)
}

func TestResolve_MatchesExistingCaseInsensitive(t *testing.T) {
	repo := newFakeRepo()
	repo.spaces["t1"] = []model.Space{{SpaceID: "s1", TenantID: "t1", Name: "Finance"}}
	r := New(repo)

	space, err := r.Resolve(context.Background(), "t1", "finance")
	require.NoError(t, err)
	assert.Equal(t, "s1", space.SpaceID)
}

func TestResolve_AutoCreatesUnknownSpace(t *testing.T) {
	repo := newFakeRepo()
	r := New(repo)
	space, err := r.Resolve(context.Background(), "t1", "Legal")
	require.NoError(t, err)
	assert.True(t, space.AutoCreated)
	assert.Len(t, repo.spaces["t1"], 1)
}

func TestListSpaces_AlwaysIncludesGeneral(t *testing.T) {
	repo := newFakeRepo()
	r := New(repo)
	spaces, err := r.ListSpaces(context.Background(), "t1")
	require.NoError(t, err)
	_, ok := findByName(spaces, model.GeneralSpaceName)
	assert.True(t, ok)
}
