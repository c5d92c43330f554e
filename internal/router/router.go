// Package router assembles the Chi mux exposing the retrieval core's one
// inbound operation plus health and metrics, grounded on the corpus's
// router.go (global middleware chain, route groups, 404 envelope) trimmed
// to this service's surface.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragcore/retrieval-core/internal/handler"
	"github.com/ragcore/retrieval-core/internal/middleware"
	"github.com/ragcore/retrieval-core/internal/orchestrator"
)

// Dependencies holds all injected services needed by the router.
type Dependencies struct {
	DB                 handler.DBPinger
	Verifier           middleware.TokenVerifier
	InternalAuthSecret string
	FrontendURL        string
	Version            string
	Metrics            *middleware.Metrics
	MetricsReg         *prometheus.Registry

	Orchestrator *orchestrator.Orchestrator
	QueryCache   handler.QueryCache

	SearchRateLimiter *middleware.RateLimiter
}

// New creates and configures the Chi router with all routes.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	// Public routes (no auth)
	r.Get("/api/health", handler.Health(deps.DB, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	// Protected routes (require internal service auth or bearer token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.CallerAuth(deps.Verifier, deps.InternalAuthSecret))

		searchMiddleware := []func(http.Handler) http.Handler{middleware.Timeout(30 * time.Second)}
		if deps.SearchRateLimiter != nil {
			searchMiddleware = append(searchMiddleware, middleware.RateLimit(deps.SearchRateLimiter))
		}
		r.With(searchMiddleware...).Post("/api/search", handler.Search(deps.Orchestrator, deps.QueryCache))
	})

	// 404 fallback
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "route not found",
		})
	})

	return r
}
