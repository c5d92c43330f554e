package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "DATABASE_URL", "DATABASE_MAX_CONNS", "REDIS_URL",
		"VECTOR_STORE_BACKEND", "QDRANT_URL", "QDRANT_API_KEY", "QDRANT_COLLECTION",
		"EMBEDDING_ENDPOINT", "EMBEDDING_DIMENSIONS", "EMBEDDING_MAX_TOKENS",
		"RERANKER_ENDPOINT", "RERANKER_BATCH_SIZE", "RERANKER_TIMEOUT_MS",
		"RERANKER_TOPN_IN", "RERANKER_TOPN_OUT", "RERANKER_ENABLED",
		"FEATURES_ENABLED", "DOMAINLESS_RANKING_ENABLED", "MMR_ENABLED",
		"MIN_QUALITY_SCORE", "MAX_CONTEXT_TOKENS", "RETRIEVAL_K_BASE",
		"INTERNAL_AUTH_SECRET", "FRONTEND_URL",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.EmbeddingDimensions != 384 {
		t.Errorf("EmbeddingDimensions = %d, want 384", cfg.EmbeddingDimensions)
	}
	if cfg.MaxContextTokens != 8000 {
		t.Errorf("MaxContextTokens = %d, want 8000", cfg.MaxContextTokens)
	}
	if cfg.RetrievalKBase != 12 {
		t.Errorf("RetrievalKBase = %d, want 12", cfg.RetrievalKBase)
	}
	if !cfg.RerankerEnabled {
		t.Error("RerankerEnabled should default true")
	}
	if !cfg.DeduplicationEnabled {
		t.Error("DeduplicationEnabled should default true")
	}
	if cfg.VectorStoreBackend != "qdrant" {
		t.Errorf("VectorStoreBackend = %q, want %q", cfg.VectorStoreBackend, "qdrant")
	}
}

func TestLoad_RequiresInternalAuthSecretOutsideDev(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("ENVIRONMENT", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing INTERNAL_AUTH_SECRET in production")
	}
}

func TestLoad_RejectsLowMaxContextTokens(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("MAX_CONTEXT_TOKENS", "500")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for MAX_CONTEXT_TOKENS < 1000")
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080 (fallback)", cfg.Port)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PORT", "9090")
	t.Setenv("RERANKER_ENABLED", "false")
	t.Setenv("MMR_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.RerankerEnabled {
		t.Error("RerankerEnabled should be false")
	}
	if !cfg.MMREnabled {
		t.Error("MMREnabled should be true")
	}
}
