package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kcgate/kcgate/pkg/auth"
)

// MeRouter sets up the authenticated identity route.
func MeRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", getMe)
	return r
}

// getMe returns the caller's identity. Identity's JSON form redacts the
// raw token, so the response is safe to show in browser tooling.
func getMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}
