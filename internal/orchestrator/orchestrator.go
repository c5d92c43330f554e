// Package orchestrator wires the embedding, retrieval, fusion, reranking,
// section-reconstruction, packing, and guardrail stages into one hybrid
// search pipeline (§4.10's nine-step sequence).
//
// The concurrent vector+keyword fan-out is grounded directly on the
// corpus's service/retriever.go, which runs SimilaritySearch and
// FullTextSearch concurrently via errgroup.WithContext before fusing with
// reciprocalRankFusion; this generalizes that two-branch fan-out into the
// full pipeline and swaps the static 0.70/0.15/0.15 rerank weights for the
// configurable fusion/rerank/guardrail stages built out in the sibling
// packages.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragcore/retrieval-core/internal/audit"
	"github.com/ragcore/retrieval-core/internal/fusion"
	"github.com/ragcore/retrieval-core/internal/guardrail"
	"github.com/ragcore/retrieval-core/internal/keyword"
	"github.com/ragcore/retrieval-core/internal/middleware"
	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/packer"
	"github.com/ragcore/retrieval-core/internal/reranker"
	"github.com/ragcore/retrieval-core/internal/section"
	"github.com/ragcore/retrieval-core/internal/space"
	"github.com/ragcore/retrieval-core/internal/vectorstore"
)

// Embedder abstracts query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher abstracts the dense vector retrieval channel.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, filter vectorstore.Filter) ([]model.SearchResult, error)
}

// ConfigResolver supplies per-tenant search and guardrail configuration.
type ConfigResolver interface {
	SearchConfig(ctx context.Context, tenantID string) (model.TenantSearchConfig, error)
	GuardrailConfig(ctx context.Context, tenantID string) (model.TenantGuardrailConfig, error)
}

// Dependencies bundles everything the orchestrator wires together. Reranker
// is optional: when nil, reranking is always skipped regardless of config.
type Dependencies struct {
	Embedder       Embedder
	Vector         VectorSearcher
	KeywordSrc     keyword.ChunkSource
	Spaces         *space.Resolver
	Reranker       *reranker.Reranker
	SectionFetcher section.Fetcher
	Guardrail      *guardrail.Evaluator
	Audit          *audit.Service
	Config         ConfigResolver
	Metrics        *middleware.Metrics
}

// Orchestrator runs the hybrid search pipeline end to end.
type Orchestrator struct {
	deps Dependencies
}

// New creates an Orchestrator.
func New(deps Dependencies) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Search runs query embedding, dual-channel retrieval, fusion, optional
// reranking, section reconstruction, context packing, and the
// answerability guardrail, emitting one audit record for the decision.
func (o *Orchestrator) Search(ctx context.Context, req model.SearchRequest, caller model.UserContext) (model.SearchResponse, error) {
	start := time.Now()
	metrics := model.SearchMetrics{}

	if req.Query == "" {
		return model.SearchResponse{}, fmt.Errorf("orchestrator.Search: query is empty")
	}

	searchCfg, err := o.deps.Config.SearchConfig(ctx, caller.TenantID)
	if err != nil {
		return model.SearchResponse{}, fmt.Errorf("orchestrator.Search: search config: %w", err)
	}
	guardCfg, err := o.deps.Config.GuardrailConfig(ctx, caller.TenantID)
	if err != nil {
		return model.SearchResponse{}, fmt.Errorf("orchestrator.Search: guardrail config: %w", err)
	}
	applyOverrides(&searchCfg, req)

	// 1. Resolve the request's declared space (falls back to "general").
	resolvedSpace, err := o.deps.Spaces.Resolve(ctx, caller.TenantID, req.SpaceID)
	if err != nil {
		return model.SearchResponse{}, fmt.Errorf("orchestrator.Search: resolve space: %w", err)
	}

	// 2. Embed the query.
	queryVec, err := o.deps.Embedder.Embed(ctx, req.Query)
	if err != nil {
		return model.SearchResponse{}, fmt.Errorf("orchestrator.Search: embed: %w", err)
	}

	// 3. Run vector and keyword retrieval concurrently.
	var vectorResults, keywordResults []model.SearchResult
	g, gCtx := errgroup.WithContext(ctx)

	vectorStart := time.Now()
	g.Go(func() error {
		var err error
		vectorResults, err = o.deps.Vector.Search(gCtx, queryVec, searchCfg.RerankerTopKIn, vectorstore.Filter{
			TenantID: caller.TenantID,
			GroupIDs: caller.GroupIDs,
			SpaceID:  resolvedSpace.SpaceID,
		})
		metrics.VectorSearchDuration = time.Since(vectorStart).Seconds()
		o.observeStage("vector_search", metrics.VectorSearchDuration)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})

	if searchCfg.KeywordSearchEnabled && o.deps.KeywordSrc != nil {
		keywordStart := time.Now()
		g.Go(func() error {
			searcher := keyword.New(o.deps.KeywordSrc)
			var err error
			keywordResults, err = searcher.Search(gCtx, req.Query, searchCfg.RerankerTopKIn, keyword.Filter{
				TenantID: caller.TenantID,
				GroupIDs: caller.GroupIDs,
				SpaceID:  resolvedSpace.SpaceID,
			})
			metrics.KeywordSearchDuration = time.Since(keywordStart).Seconds()
			o.observeStage("keyword_search", metrics.KeywordSearchDuration)
			if err != nil {
				return fmt.Errorf("keyword search: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.SearchResponse{}, fmt.Errorf("orchestrator.Search: %w", err)
	}
	metrics.VectorResultCount = len(vectorResults)
	metrics.KeywordResultCount = len(keywordResults)

	// 4. Fuse.
	fusionStart := time.Now()
	fused, _ := fusion.Fuse(vectorResults, keywordResults, searchCfg)
	metrics.FusionDuration = time.Since(fusionStart).Seconds()
	o.observeStage("fusion", metrics.FusionDuration)

	// 5. Optionally rerank.
	results := fused
	if searchCfg.RerankerEnabled && o.deps.Reranker != nil {
		rerankStart := time.Now()
		var fellBack bool
		results, fellBack = o.deps.Reranker.Rerank(ctx, req.Query, fused)
		metrics.RerankerDuration = time.Since(rerankStart).Seconds()
		metrics.RerankingEnabled = true
		metrics.DocumentsReranked = len(fused)
		o.observeStage("reranker", metrics.RerankerDuration)
		if fellBack && o.deps.Metrics != nil {
			o.deps.Metrics.IncrementRerankerFallback()
		}
	}

	// 6. Detect and reconstruct fragmented sections.
	if o.deps.SectionFetcher != nil {
		detections := section.Detect(results)
		fetched := section.Fetch(ctx, o.deps.SectionFetcher, caller.TenantID, detections)
		memberIDs := make(map[string][]string, len(detections))
		reconstructed := make([]model.SearchResult, 0, len(fetched))
		for _, d := range detections {
			key := d.DocID + "::" + d.BasePath
			siblings, ok := fetched[key]
			if !ok || len(siblings) == 0 {
				continue
			}
			ids := make([]string, 0, len(siblings))
			for _, s := range siblings {
				ids = append(ids, s.ChunkID)
			}
			memberIDs[key] = ids
			reconstructed = append(reconstructed, section.Reconstruct(d.DocID, d.BasePath, siblings, section.CombineWeightedAverage))
		}
		results = section.MergeBack(results, reconstructed, memberIDs, section.MergeReplace)
	}

	// 7. Pack into the context budget.
	contextPacker := packer.New(packer.Config{
		MaxContextTokens: searchCfg.MaxContextTokens,
		PerDocCap:        searchCfg.PerDocCap,
		PerSectionCap:    searchCfg.PerSectionCap,
		Alpha:            searchCfg.PackerAlpha,
	})
	packed := packer.Pack(ctx, contextPacker, results, req.Query)

	// 8. Evaluate answerability.
	guardrailStart := time.Now()
	decision := guardrail.New(guardCfg).Evaluate(ctx, req.Query, packed.Chunks, caller)
	metrics.GuardrailDuration = time.Since(guardrailStart).Seconds()
	metrics.FinalResultCount = len(packed.Chunks)
	metrics.TotalDuration = time.Since(start).Seconds()
	o.observeStage("guardrail", metrics.GuardrailDuration)
	o.observeStage("total", metrics.TotalDuration)
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordGuardrailDecision(decision.Audit.DecisionType, decision.Audit.ReasonCode)
	}

	// 9. Emit the audit record and assemble the response.
	if o.deps.Audit != nil {
		details := map[string]any{
			"spaceId":      resolvedSpace.SpaceID,
			"fusionStrategy": string(searchCfg.FusionStrategy),
			"rerankerUsed": metrics.RerankingEnabled,
		}
		if err := o.deps.Audit.Record(ctx, caller.TenantID, caller.ID, req.Query, decision.Audit.DecisionType, decision.Audit.ReasonCode, len(packed.Chunks), details, metrics.TotalDuration*1000); err != nil {
			slog.Warn("orchestrator.Search: audit record failed", "error", err, "tenant_id", caller.TenantID)
		}
	}

	resp := model.SearchResponse{
		FinalResults: packed.Chunks,
		Metrics:      metrics,
	}
	if !decision.IsAnswerable {
		resp.IDKResponse = decision.IDK
	}
	return resp, nil
}

func (o *Orchestrator) observeStage(stage string, seconds float64) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveStageDuration(stage, seconds)
	}
}

func applyOverrides(cfg *model.TenantSearchConfig, req model.SearchRequest) {
	if req.VectorWeight != nil {
		cfg.DefaultVectorWeight = *req.VectorWeight
	}
	if req.KeywordWeight != nil {
		cfg.DefaultKeywordWeight = *req.KeywordWeight
	}
	if req.RRFK != nil {
		cfg.DefaultRRFK = *req.RRFK
	}
	if req.EnableKeywordSearch != nil {
		cfg.KeywordSearchEnabled = *req.EnableKeywordSearch
	}
	if cfg.RerankerTopKIn <= 0 {
		cfg.RerankerTopKIn = 20
	}
}
