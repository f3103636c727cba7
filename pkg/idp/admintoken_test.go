package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcgate/kcgate/pkg/config"
)

// tokenEndpoint fakes the client credentials grant and counts grants.
type tokenEndpoint struct {
	srv       *httptest.Server
	grants    atomic.Int64
	fail      atomic.Bool
	expiresIn int64
}

func newTokenEndpoint(t *testing.T, expiresIn int64) *tokenEndpoint {
	t.Helper()

	e := &tokenEndpoint{expiresIn: expiresIn}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.grants.Add(1)
		if e.fail.Load() {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "admin-token",
			"token_type":   "Bearer",
			"expires_in":   e.expiresIn,
		})
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func newTestTokenCache(t *testing.T, endpoint *tokenEndpoint, ttl time.Duration) *AdminTokenCache {
	t.Helper()
	return NewAdminTokenCache("admin-cli", "secret", endpoint.srv.URL, ttl, endpoint.srv.Client())
}

func TestAdminTokenCacheReuse(t *testing.T) {
	t.Parallel()

	endpoint := newTokenEndpoint(t, 3600)
	cache := newTestTokenCache(t, endpoint, 5*time.Minute)

	for range 3 {
		token, err := cache.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "admin-token", token)
	}
	assert.EqualValues(t, 1, endpoint.grants.Load(), "cached token must be reused within its TTL")
}

func TestAdminTokenCacheClampsToGrantExpiry(t *testing.T) {
	t.Parallel()

	// Grant expires in 1s, configured TTL is much longer; the shorter
	// bound wins.
	endpoint := newTokenEndpoint(t, 1)
	cache := newTestTokenCache(t, endpoint, time.Hour)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	stats := cache.Stats()
	require.True(t, stats.Cached)
	require.NotNil(t, stats.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Second), *stats.ExpiresAt, 5*time.Second)
	assert.Less(t, time.Until(*stats.ExpiresAt), time.Minute)
}

func TestAdminTokenCacheInvalidate(t *testing.T) {
	t.Parallel()

	endpoint := newTokenEndpoint(t, 3600)
	cache := newTestTokenCache(t, endpoint, 5*time.Minute)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	cache.Invalidate()
	assert.False(t, cache.Stats().Cached)

	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, endpoint.grants.Load())

	// Invalidating an empty cache is a no-op.
	cache.Invalidate()
	cache.Invalidate()
}

func TestAdminTokenCacheNotConfigured(t *testing.T) {
	t.Parallel()

	cache := NewAdminTokenCache("", "", "http://unused", time.Minute, nil)
	assert.False(t, cache.Configured())

	_, err := cache.Token(context.Background())
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.False(t, IsAdminAuthError(err))
}

func TestAdminTokenCacheGrantFailure(t *testing.T) {
	t.Parallel()

	endpoint := newTokenEndpoint(t, 3600)
	endpoint.fail.Store(true)
	cache := newTestTokenCache(t, endpoint, 5*time.Minute)

	_, err := cache.Token(context.Background())
	require.Error(t, err)
	assert.True(t, IsAdminAuthError(err))
	assert.False(t, cache.Stats().Cached)

	// Recovery after the IdP comes back.
	endpoint.fail.Store(false)
	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin-token", token)
}

func TestAdminTokenCacheStats(t *testing.T) {
	t.Parallel()

	endpoint := newTokenEndpoint(t, 3600)
	cache := newTestTokenCache(t, endpoint, 5*time.Minute)

	stats := cache.Stats()
	assert.True(t, stats.Configured)
	assert.False(t, stats.Cached)
	assert.Equal(t, 1, stats.Capacity)
	assert.Equal(t, 0, stats.CurrentSize)
	assert.Equal(t, 300, stats.TTLSeconds)
	assert.Nil(t, stats.ExpiresAt)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	stats = cache.Stats()
	assert.True(t, stats.Cached)
	assert.Equal(t, 1, stats.Capacity)
	assert.Equal(t, 1, stats.CurrentSize)
	require.NotNil(t, stats.ExpiresAt)

	// The token value must never leak through stats.
	buf, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.NotContains(t, string(buf), "admin-token")
}
