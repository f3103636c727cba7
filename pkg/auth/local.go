package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalUserMiddleware creates an HTTP middleware that sets up a local user
// identity with the given roles, bypassing authentication entirely.
//
// This is useful for development and testing scenarios where authorization
// checks need a principal without a running identity provider. It is
// heavily discouraged in production settings.
func LocalUserMiddleware(username string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := jwt.MapClaims{
				"sub":                username,
				"iss":                "kcgate-local",
				"exp":                time.Now().Add(24 * time.Hour).Unix(),
				"iat":                time.Now().Unix(),
				"preferred_username": username,
				"email":              username + "@localhost",
				"name":               "Local User: " + username,
			}

			identity := &Identity{
				Subject:   username,
				Username:  username,
				Name:      "Local User: " + username,
				Email:     username + "@localhost",
				Roles:     roles,
				Claims:    claims,
				TokenType: "Bearer",
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
