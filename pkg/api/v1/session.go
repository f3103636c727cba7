package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kcgate/kcgate/pkg/auth"
	"github.com/kcgate/kcgate/pkg/logger"
	"github.com/kcgate/kcgate/pkg/session"
)

// SessionRouter sets up session lifecycle routes. A client that
// authenticated with a bearer token can trade it for a cookie-backed
// session so later requests skip token validation.
func SessionRouter(sessions *session.Manager) http.Handler {
	routes := &sessionRoutes{sessions: sessions}
	r := chi.NewRouter()
	r.Post("/", routes.createSession)
	r.Delete("/", routes.deleteSession)
	return r
}

type sessionRoutes struct {
	sessions *session.Manager
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *sessionRoutes) createSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	id, err := s.sessions.Create(r.Context(), identity)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})
}

func (s *sessionRoutes) deleteSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.sessions.Destroy(r.Context(), cookie.Value); err != nil {
		logger.Errorf("failed to destroy session: %v", err)
		http.Error(w, "Failed to destroy session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
