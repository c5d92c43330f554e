package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/ragcore/retrieval-core/internal/model"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFromContext retrieves the authenticated caller from the request
// context.
func CallerFromContext(ctx context.Context) model.UserContext {
	caller, _ := ctx.Value(callerKey).(model.UserContext)
	return caller
}

// WithCaller returns a new context with the given caller set. Useful for
// testing handlers that depend on auth middleware.
func WithCaller(ctx context.Context, caller model.UserContext) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// TokenVerifier resolves a bearer token into the caller it authenticates.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (model.UserContext, error)
}

// CallerAuth returns middleware that first checks for an internal
// service-to-service token (X-Internal-Auth plus X-User-ID/X-Tenant-ID/
// X-Group-IDs headers), falling back to bearer-token verification via
// verifier. The internal path is for trusted upstream gateways that have
// already authenticated the caller.
//
// Adapted from the corpus's InternalOrFirebaseAuth/FirebaseAuth: the same
// constant-time internal-token check and bearer extraction, generalized
// from a single Firebase uid to the full tenant/ACL caller context.
func CallerAuth(verifier TokenVerifier, internalSecret string) func(http.Handler) http.Handler {
	secretBytes := []byte(internalSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internalToken := r.Header.Get("X-Internal-Auth")
			userID := r.Header.Get("X-User-ID")

			if internalToken != "" && userID != "" && len(secretBytes) > 0 {
				if subtle.ConstantTimeCompare([]byte(internalToken), secretBytes) == 1 {
					caller, err := callerFromHeaders(r, userID)
					if err != nil {
						respondError(w, http.StatusBadRequest, err.Error())
						return
					}
					ctx := WithCaller(r.Context(), caller)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				respondError(w, http.StatusUnauthorized, "invalid internal auth token")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			caller, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func callerFromHeaders(r *http.Request, userID string) (model.UserContext, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > 256 || !isPrintableASCII(userID) {
		return model.UserContext{}, errInvalidHeader("X-User-ID")
	}

	tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	if tenantID == "" || len(tenantID) > 256 || !isPrintableASCII(tenantID) {
		return model.UserContext{}, errInvalidHeader("X-Tenant-ID")
	}

	var groupIDs []string
	if raw := r.Header.Get("X-Group-IDs"); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				groupIDs = append(groupIDs, g)
			}
		}
	}

	return model.UserContext{ID: userID, TenantID: tenantID, GroupIDs: groupIDs}, nil
}

type headerError string

func (e headerError) Error() string { return "invalid " + string(e) + " header" }

func errInvalidHeader(name string) error { return headerError(name) }

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// isPrintableASCII checks that every rune is a printable ASCII character.
func isPrintableASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
