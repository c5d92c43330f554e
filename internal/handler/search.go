package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ragcore/retrieval-core/internal/middleware"
	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/orchestrator"
)

// QueryCache is the subset of cache.QueryCache the search handler needs.
type QueryCache interface {
	Get(tenantID, spaceID, query string) (*model.SearchResponse, bool)
	Set(tenantID, spaceID, query string, result *model.SearchResponse)
}

const maxSearchBodyBytes = 1 << 16 // 64KiB, a query plus overrides never needs more

// Search handles POST /api/search: embeds the query, fans out to the
// vector and keyword channels, fuses/reranks/packs the results, and runs
// the answerability guardrail before responding. qc may be nil to disable
// caching.
func Search(orch *orchestrator.Orchestrator, qc QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.CallerFromContext(r.Context())
		if caller.ID == "" {
			respondJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)
		var req model.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "invalid request body"})
			return
		}
		if req.Query == "" {
			respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "query is required"})
			return
		}
		if req.TenantID == "" {
			req.TenantID = caller.TenantID
		}

		if qc != nil {
			if cached, ok := qc.Get(req.TenantID, req.SpaceID, req.Query); ok {
				respondJSON(w, http.StatusOK, envelope{Success: true, Data: cached})
				return
			}
		}

		resp, err := orch.Search(r.Context(), req, caller)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
			return
		}

		if qc != nil && resp.IDKResponse == nil {
			qc.Set(req.TenantID, req.SpaceID, req.Query, &resp)
		}

		respondJSON(w, http.StatusOK, envelope{Success: true, Data: resp})
	}
}
