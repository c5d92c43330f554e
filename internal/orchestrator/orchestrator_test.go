package orchestrator

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/retrieval-core/internal/audit"
	"github.com/ragcore/retrieval-core/internal/middleware"
	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/reranker"
	"github.com/ragcore/retrieval-core/internal/space"
	"github.com/ragcore/retrieval-core/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeConfig struct {
	search    model.TenantSearchConfig
	guardrail model.TenantGuardrailConfig
}

func (f fakeConfig) SearchConfig(_ context.Context, tenantID string) (model.TenantSearchConfig, error) {
	return f.search, nil
}

func (f fakeConfig) GuardrailConfig(_ context.Context, tenantID string) (model.TenantGuardrailConfig, error) {
	return f.guardrail, nil
}

type fakeSpaceRepo struct{}

func (fakeSpaceRepo) ListByTenant(_ context.Context, _ string) ([]model.Space, error) { return nil, nil }
func (fakeSpaceRepo) Create(_ context.Context, _ model.Space) error                    { return nil }

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}
func (f *fakeAuditRepo) GetLatestHash(_ context.Context, _ string) (string, error) { return "", nil }
func (f *fakeAuditRepo) GetRange(_ context.Context, _, _, _ string) ([]model.AuditLog, error) {
	return nil, nil
}

func strongSearchCfg() model.TenantSearchConfig {
	cfg := model.DefaultTenantSearchConfig("t1")
	cfg.RerankerEnabled = false
	return cfg
}

func newOrchestrator(store *vectorstore.MemoryStore, auditRepo *fakeAuditRepo, guardCfg model.TenantGuardrailConfig) *Orchestrator {
	return New(Dependencies{
		Embedder: fakeEmbedder{},
		Vector:   store,
		Spaces:   space.New(fakeSpaceRepo{}),
		Audit:    audit.New(auditRepo, nil),
		Config:   fakeConfig{search: strongSearchCfg(), guardrail: guardCfg},
	})
}

func TestSearch_ReturnsAnswerableOnStrongResults(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Upsert(context.Background(), model.Chunk{
			ChunkID: "c" + string(rune('1'+i)), DocID: "d1", TenantID: "t1", Text: "strong match content",
		}, []float32{1, 0, 0}))
	}

	auditRepo := &fakeAuditRepo{}
	guardCfg := model.DefaultTenantGuardrailConfig("t1")
	guardCfg.Threshold = model.PresetThreshold(model.PresetPermissive)

	o := newOrchestrator(store, auditRepo, guardCfg)
	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "strong match"}, model.UserContext{ID: "u1", TenantID: "t1"})
	require.NoError(t, err)
	assert.Nil(t, resp.IDKResponse)
	assert.NotEmpty(t, resp.FinalResults)
	assert.Len(t, auditRepo.entries, 1)
}

func TestSearch_ReturnsIDKWhenNoResults(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	auditRepo := &fakeAuditRepo{}
	guardCfg := model.DefaultTenantGuardrailConfig("t1")

	o := newOrchestrator(store, auditRepo, guardCfg)
	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "anything"}, model.UserContext{ID: "u1", TenantID: "t1"})
	require.NoError(t, err)
	require.NotNil(t, resp.IDKResponse)
	assert.Empty(t, resp.FinalResults)
}

func TestSearch_EmptyQueryErrors(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	auditRepo := &fakeAuditRepo{}
	o := newOrchestrator(store, auditRepo, model.DefaultTenantGuardrailConfig("t1"))
	_, err := o.Search(context.Background(), model.SearchRequest{Query: ""}, model.UserContext{ID: "u1", TenantID: "t1"})
	assert.Error(t, err)
}

type failingRerankDoer struct{}

func (failingRerankDoer) Do(_ *http.Request) (*http.Response, error) {
	return nil, assert.AnError
}

func TestSearch_RerankerFallbackIncrementsMetric(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), model.Chunk{
		ChunkID: "c1", DocID: "d1", TenantID: "t1", Text: "strong match content",
	}, []float32{1, 0, 0}))

	auditRepo := &fakeAuditRepo{}
	guardCfg := model.DefaultTenantGuardrailConfig("t1")
	guardCfg.Threshold = model.PresetThreshold(model.PresetPermissive)

	searchCfg := strongSearchCfg()
	searchCfg.RerankerEnabled = true

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	o := New(Dependencies{
		Embedder: fakeEmbedder{},
		Vector:   store,
		Spaces:   space.New(fakeSpaceRepo{}),
		Audit:    audit.New(auditRepo, nil),
		Config:   fakeConfig{search: searchCfg, guardrail: guardCfg},
		Reranker: reranker.New(reranker.Config{Endpoint: "http://x/rerank", Client: failingRerankDoer{}}),
		Metrics:  metrics,
	})

	_, err := o.Search(context.Background(), model.SearchRequest{Query: "strong match"}, model.UserContext{ID: "u1", TenantID: "t1"})
	require.NoError(t, err)

	var m io_prometheus.Metric
	metrics.RerankerFallbackTotal.(prometheus.Metric).Write(&m)
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}
