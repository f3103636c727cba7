package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kcgate/kcgate/pkg/logger"
)

// SessionCookieName is the cookie carrying the server-side session ID.
const SessionCookieName = "kcgate_session"

// SessionSource looks up a previously stored identity by session ID.
// A missing session returns ok=false with a nil error; err is reserved for
// backend failures.
type SessionSource interface {
	Lookup(ctx context.Context, sessionID string) (identity *Identity, ok bool, err error)
}

// Resolver produces one trusted Identity per request from two sources,
// evaluated in fixed priority: the session store first, then the
// Authorization header. Session lookups are cheap and already
// trust-verified at login time; bearer validation costs signature checks
// and possibly a key fetch, so it only runs when no session matches.
type Resolver struct {
	sessions  SessionSource
	validator *TokenValidator
}

// NewResolver creates a resolver. sessions may be nil, in which case only
// bearer tokens are accepted.
func NewResolver(sessions SessionSource, validator *TokenValidator) *Resolver {
	return &Resolver{sessions: sessions, validator: validator}
}

// Resolve returns the authenticated Identity for the request.
// When the request carries both a session and a bearer header, the session
// wins and the bearer header is never inspected. With neither present the
// request fails with ErrNotAuthenticated.
func (r *Resolver) Resolve(req *http.Request) (*Identity, error) {
	if identity, ok, err := r.fromSession(req); err != nil {
		return nil, err
	} else if ok {
		return identity, nil
	}

	// The auth scheme is case-insensitive per RFC 9110.
	scheme, token, found := strings.Cut(req.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, ErrNotAuthenticated
	}

	return r.validator.Validate(req.Context(), strings.TrimSpace(token))
}

func (r *Resolver) fromSession(req *http.Request) (*Identity, bool, error) {
	if r.sessions == nil {
		return nil, false, nil
	}
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false, nil
	}

	identity, ok, err := r.sessions.Lookup(req.Context(), cookie.Value)
	if err != nil {
		return nil, false, fmt.Errorf("session lookup: %w", err)
	}
	return identity, ok, nil
}

// buildWWWAuthenticate builds an RFC 6750 compliant WWW-Authenticate value.
// The error description stays generic on purpose: the specific failed check
// is logged, never sent.
func (r *Resolver) buildWWWAuthenticate(includeError bool) string {
	parts := []string{fmt.Sprintf("realm=%q", r.validator.issuer)}
	if includeError {
		parts = append(parts, `error="invalid_token"`)
	}
	return "Bearer " + strings.Join(parts, ", ")
}

// Middleware authenticates every request and stores the resolved Identity
// in the request context. Failures answer 401 with a generic message; the
// enumerated reason is logged for operators only.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		identity, err := r.Resolve(req)
		if err != nil {
			if errors.Is(err, ErrNotAuthenticated) {
				w.Header().Set("WWW-Authenticate", r.buildWWWAuthenticate(false))
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			var validationErr *TokenValidationError
			if errors.As(err, &validationErr) {
				logger.Warnw("token validation failed",
					"reason", string(validationErr.Reason),
					"path", req.URL.Path,
				)
			} else {
				logger.Errorw("authentication failed", "error", err, "path", req.URL.Path)
			}

			w.Header().Set("WWW-Authenticate", r.buildWWWAuthenticate(true))
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := WithIdentity(req.Context(), identity)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}
