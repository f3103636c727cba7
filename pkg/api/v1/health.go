package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthRouter sets up the healthcheck route.
func HealthRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", getHealth)
	return r
}

func getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
