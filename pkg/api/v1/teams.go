package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kcgate/kcgate/pkg/authz"
	"github.com/kcgate/kcgate/pkg/idp"
)

// TeamsRouter sets up routes that read the realm's group structure via the
// management API. Restricted to managers.
func TeamsRouter(client *idp.Client) http.Handler {
	routes := &teamRoutes{client: client}
	r := chi.NewRouter()
	r.Use(authz.RequireRole("manager"))
	r.Get("/", routes.listTeams)
	r.Get("/hierarchy", routes.getHierarchy)
	r.Get("/{groupID}/members", routes.listMembers)
	return r
}

type teamRoutes struct {
	client *idp.Client
}

func (t *teamRoutes) listTeams(w http.ResponseWriter, r *http.Request) {
	groups, err := t.client.ListGroups(r.Context())
	if err != nil {
		writeIdPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (t *teamRoutes) getHierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := t.client.GroupHierarchy(r.Context())
	if err != nil {
		writeIdPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (t *teamRoutes) listMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	members, err := t.client.GroupMembers(r.Context(), groupID)
	if err != nil {
		writeIdPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}
