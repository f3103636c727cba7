package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kcgate/kcgate/pkg/auth"
	"github.com/kcgate/kcgate/pkg/authz"
)

// DataRouter sets up a protected resource that demonstrates role and
// scope gating: reading needs the user role, writing additionally needs
// the write scope.
func DataRouter() http.Handler {
	r := chi.NewRouter()
	r.With(authz.RequireRole("user")).Get("/", getData)
	r.With(authz.RequireRole("user"), authz.RequireScope("write:data")).Post("/", postData)
	return r
}

type dataResponse struct {
	Owner   string `json:"owner"`
	Message string `json:"message"`
}

func getData(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, dataResponse{
		Owner:   identity.Subject,
		Message: "protected data",
	})
}

func postData(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusAccepted, dataResponse{
		Owner:   identity.Subject,
		Message: "write accepted",
	})
}
