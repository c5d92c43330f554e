package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ragcore/retrieval-core/internal/audit"
	"github.com/ragcore/retrieval-core/internal/cache"
	"github.com/ragcore/retrieval-core/internal/chunker"
	"github.com/ragcore/retrieval-core/internal/config"
	"github.com/ragcore/retrieval-core/internal/corpus"
	"github.com/ragcore/retrieval-core/internal/embedder"
	"github.com/ragcore/retrieval-core/internal/handler"
	"github.com/ragcore/retrieval-core/internal/keyword"
	"github.com/ragcore/retrieval-core/internal/middleware"
	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/orchestrator"
	"github.com/ragcore/retrieval-core/internal/reranker"
	"github.com/ragcore/retrieval-core/internal/repository"
	"github.com/ragcore/retrieval-core/internal/router"
	"github.com/ragcore/retrieval-core/internal/space"
	"github.com/ragcore/retrieval-core/internal/vectorstore"
)

const Version = "0.2.0"

// unauthenticatedBearer rejects every bearer token. Token-based auth is an
// external collaborator's job (the upstream gateway authenticates callers
// and forwards the internal service headers CallerAuth checks first); this
// only exists so CallerAuth never calls a nil verifier when a caller skips
// the internal header path.
type unauthenticatedBearer struct{}

func (unauthenticatedBearer) VerifyToken(_ context.Context, _ string) (model.UserContext, error) {
	return model.UserContext{}, errors.New("bearer token verification is not configured")
}

// vectorStore is the subset of internal/vectorstore's two implementations
// the orchestrator and section reconstruction need.
type vectorStore interface {
	orchestrator.VectorSearcher
	FetchSection(ctx context.Context, tenantID, docID, basePath string, limit int) ([]model.SearchResult, error)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("main: connect db: %w", err)
	}
	defer pool.Close()

	var vstore vectorStore
	switch cfg.VectorStoreBackend {
	case "pgvector":
		vstore = vectorstore.NewPgStore(pool)
	default:
		store, err := vectorstore.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingDimensions, cfg.QdrantAPIKey)
		if err != nil {
			return fmt.Errorf("main: connect qdrant: %w", err)
		}
		defer store.Close()
		vstore = store
	}

	embedderMgr := embedder.New(embedder.Config{
		Endpoint:  cfg.EmbeddingEndpoint,
		Dimension: cfg.EmbeddingDimensions,
		MaxTokens: cfg.EmbeddingMaxTokens,
		Chunker: chunker.New(chunker.Config{
			Strategy:        chunker.StrategyTokenAware,
			ChunkSizeTokens: cfg.EmbeddingMaxTokens,
			SafetyMarginPct: cfg.EmbeddingSafetyMarginPct,
		}),
	})

	var rerank *reranker.Reranker
	if cfg.RerankerEnabled && cfg.RerankerEndpoint != "" {
		rerank = reranker.New(reranker.Config{
			Endpoint:  cfg.RerankerEndpoint,
			BatchSize: cfg.RerankerBatchSize,
			Timeout:   time.Duration(cfg.RerankerTimeoutMS) * time.Millisecond,
			TopKIn:    cfg.RerankerTopKIn,
			TopKOut:   cfg.RerankerTopKOut,
		})
	}

	spaceResolver := space.New(space.NewPgRepository(pool))
	auditSvc := audit.New(audit.NewPgRepository(pool), nil)
	tenantConfigRepo := repository.NewTenantConfigRepo(pool)

	// corpus.IDFLookup defaults every unseen token to a neutral weight, so
	// starting from an empty snapshot is safe before the first stats
	// refresh job runs. Per-tenant IDF weighting is future work; every
	// tenant shares this lookup today.
	keywordSrc := keyword.NewPgChunkSource(pool, corpus.IDFLookup(model.NewCorpusStats("")))

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	orch := orchestrator.New(orchestrator.Dependencies{
		Embedder:       embedderMgr,
		Vector:         vstore,
		KeywordSrc:     keywordSrc,
		Spaces:         spaceResolver,
		Reranker:       rerank,
		SectionFetcher: vstore,
		Audit:          auditSvc,
		Config:         tenantConfigRepo,
		Metrics:        metrics,
	})

	var queryCache handler.QueryCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("main: parse REDIS_URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		queryCache = cache.NewRedisQueryCache(redisClient, 10*time.Minute)
		slog.Info("main: query cache backed by redis")
	} else {
		memCache := cache.New(10 * time.Minute)
		defer memCache.Stop()
		queryCache = memCache
		slog.Info("main: query cache backed by in-process memory")
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: 60,
		Window:      time.Minute,
	})

	mux := router.New(&router.Dependencies{
		DB:                 pool,
		Verifier:           unauthenticatedBearer{},
		InternalAuthSecret: cfg.InternalAuthSecret,
		FrontendURL:        cfg.FrontendURL,
		Version:            Version,
		Metrics:            metrics,
		MetricsReg:         reg,
		Orchestrator:       orch,
		QueryCache:         queryCache,
		SearchRateLimiter:  rateLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("main: server starting", "version", Version, "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("main: shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("main: server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("main: graceful shutdown failed: %w", err)
	}

	slog.Info("main: server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("main: fatal", "error", err)
		os.Exit(1)
	}
}
