package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kcgate/kcgate/pkg/admin"
	"github.com/kcgate/kcgate/pkg/authz"
)

// CacheRouter sets up cache administration routes. Restricted to admins.
func CacheRouter(controller *admin.Controller) http.Handler {
	routes := &cacheRoutes{controller: controller}
	r := chi.NewRouter()
	r.Use(authz.RequireRole("admin"))
	r.Get("/info", routes.getInfo)
	r.Post("/clear", routes.postClear)
	return r
}

type cacheRoutes struct {
	controller *admin.Controller
}

func (c *cacheRoutes) getInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.controller.Info())
}

func (c *cacheRoutes) postClear(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.controller.Clear())
}
