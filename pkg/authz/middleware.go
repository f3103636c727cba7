package authz

import (
	"encoding/json"
	"net/http"

	"github.com/kcgate/kcgate/pkg/auth"
	"github.com/kcgate/kcgate/pkg/logger"
)

// RequireRole returns middleware that rejects requests whose identity does
// not hold the given realm role. It expects an upstream authentication
// middleware to have stored the identity in the request context; requests
// without one answer 401 rather than 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return requirement(role, CheckRole)
}

// RequireScope returns middleware that rejects requests whose token does not
// carry the given scope. Same context contract as RequireRole.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return requirement(scope, CheckScope)
}

func requirement(required string, check func(*auth.Identity, string) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := auth.IdentityFromContext(r.Context())
			decision := check(identity, required)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if decision.Reason == ReasonNotAuthenticated {
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			logger.Warnw("access denied",
				"subject", identity.Subject,
				"required", decision.Required,
				"reason", string(decision.Reason),
				"path", r.URL.Path,
			)
			writeDenial(w, decision)
		})
	}
}

func writeDenial(w http.ResponseWriter, decision Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if err := json.NewEncoder(w).Encode(decision); err != nil {
		logger.Errorf("failed to encode denial response: %v", err)
	}
}
