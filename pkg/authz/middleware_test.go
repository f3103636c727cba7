package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcgate/kcgate/pkg/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithIdentity(identity *auth.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/data", nil)
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	return req
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	handler := RequireRole("admin")(okHandler())

	t.Run("granted", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithIdentity(&auth.Identity{Subject: "u1", Roles: []string{"admin", "user"}}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denied with structured body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithIdentity(&auth.Identity{Subject: "u1", Roles: []string{"user"}}))

		assert.Equal(t, http.StatusForbidden, rec.Code)

		var decision Decision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.False(t, decision.Allowed)
		assert.Equal(t, "admin", decision.Required)
		assert.Equal(t, ReasonMissingRole, decision.Reason)
	})

	t.Run("no identity answers 401", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithIdentity(nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireScope(t *testing.T) {
	t.Parallel()

	handler := RequireScope("read:data")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(&auth.Identity{Subject: "u1", Scopes: []string{"read:data"}}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(&auth.Identity{Subject: "u1", Scopes: []string{"openid"}}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var decision Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, ReasonMissingScope, decision.Reason)
}
