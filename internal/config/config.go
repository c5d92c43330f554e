// Package config loads process-wide configuration from environment
// variables. Tenant-level search and guardrail configuration is a separate,
// validated-on-write structure handled by the tenant config repository in
// internal/repository — this package only covers the ambient service config.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. It is immutable after Load() returns.
type Config struct {
	Port        int
	Environment string

	DatabaseURL      string
	DatabaseMaxConns int

	RedisURL string

	VectorStoreBackend string

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	EmbeddingEndpoint   string
	EmbeddingDimensions int
	EmbeddingMaxTokens  int
	EmbeddingSafetyMarginPct int

	RerankerEndpoint   string
	RerankerBatchSize  int
	RerankerTimeoutMS  int
	RerankerTopKIn     int
	RerankerTopKOut    int
	RerankerEnabled    bool

	FeaturesEnabled         bool
	DomainlessRankingEnabled bool
	MMREnabled              bool
	QueryAdaptiveWeights    bool
	KWPointsEnabled         bool
	FusionDebugTrace        bool
	DeduplicationEnabled    bool

	MinQualityScore  float64
	MaxContextTokens int
	RetrievalKBase   int

	AliasEmbSimTau float64
	AliasPMISimTau float64

	CorpusStatsDir string
	SpaceDataDir   string

	InternalAuthSecret string
	FrontendURL        string
}

// Load reads configuration from environment variables. DATABASE_URL is
// required; every other variable has a documented fallback default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:             envInt("PORT", 8080),
		Environment:      envStr("ENVIRONMENT", "development"),
		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),

		RedisURL: envStr("REDIS_URL", ""),

		VectorStoreBackend: envStr("VECTOR_STORE_BACKEND", "qdrant"),

		QdrantURL:        envStr("QDRANT_URL", "http://localhost:6334"),
		QdrantAPIKey:     envStr("QDRANT_API_KEY", ""),
		QdrantCollection: envStr("QDRANT_COLLECTION", "chunks"),

		EmbeddingEndpoint:        envStr("EMBEDDING_ENDPOINT", "http://localhost:8081/embed"),
		EmbeddingDimensions:      envInt("EMBEDDING_DIMENSIONS", 384),
		EmbeddingMaxTokens:       envInt("EMBEDDING_MAX_TOKENS", 512),
		EmbeddingSafetyMarginPct: envInt("EMBEDDING_SAFETY_MARGIN_PCT", 10),

		RerankerEndpoint:  envStr("RERANKER_ENDPOINT", ""),
		RerankerBatchSize: envInt("RERANKER_BATCH_SIZE", 16),
		RerankerTimeoutMS: envInt("RERANKER_TIMEOUT_MS", 500),
		RerankerTopKIn:    envInt("RERANKER_TOPN_IN", 20),
		RerankerTopKOut:   envInt("RERANKER_TOPN_OUT", 8),
		RerankerEnabled:   envBool("RERANKER_ENABLED", true),

		FeaturesEnabled:          envBool("FEATURES_ENABLED", false),
		DomainlessRankingEnabled: envBool("DOMAINLESS_RANKING_ENABLED", false),
		MMREnabled:               envBool("MMR_ENABLED", false),
		QueryAdaptiveWeights:     envBool("QUERY_ADAPTIVE_WEIGHTS", false),
		KWPointsEnabled:          envBool("KW_POINTS_ENABLED", false),
		FusionDebugTrace:         envBool("FUSION_DEBUG_TRACE", false),
		DeduplicationEnabled:     envBool("DEDUPLICATION_ENABLED", true),

		MinQualityScore:  envFloat("MIN_QUALITY_SCORE", 0.5),
		MaxContextTokens: envInt("MAX_CONTEXT_TOKENS", 8000),
		RetrievalKBase:   envInt("RETRIEVAL_K_BASE", 12),

		AliasEmbSimTau: envFloat("ALIAS_EMB_SIM_TAU", 0.85),
		AliasPMISimTau: envFloat("ALIAS_PMI_SIM_TAU", 3.0),

		CorpusStatsDir: envStr("CORPUS_STATS_DIR", "./data"),
		SpaceDataDir:   envStr("SPACE_DATA_DIR", "./data"),

		InternalAuthSecret: envStr("INTERNAL_AUTH_SECRET", ""),
		FrontendURL:        envStr("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.Environment != "development" && cfg.InternalAuthSecret == "" {
		return nil, fmt.Errorf("config.Load: INTERNAL_AUTH_SECRET is required in %s environment", cfg.Environment)
	}
	if cfg.MaxContextTokens < 1000 {
		return nil, fmt.Errorf("config.Load: MAX_CONTEXT_TOKENS must be >= 1000")
	}
	if cfg.RetrievalKBase < 1 {
		return nil, fmt.Errorf("config.Load: RETRIEVAL_K_BASE must be >= 1")
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
