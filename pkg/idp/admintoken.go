package idp

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kcgate/kcgate/pkg/logger"
)

// AdminTokenStats describes the current state of the admin token cache for
// the cache info endpoint. The cache is a single slot, so Capacity is
// always 1 and CurrentSize is 0 or 1. The token itself never appears here.
type AdminTokenStats struct {
	Configured  bool       `json:"configured"`
	Cached      bool       `json:"cached"`
	Capacity    int        `json:"capacity"`
	CurrentSize int        `json:"current_size"`
	TTLSeconds  int        `json:"ttl_seconds"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// AdminTokenCache holds a single service account token obtained through the
// client credentials grant. The slot is refreshed on demand when expired;
// there is no background refresher.
type AdminTokenCache struct {
	cfg    *clientcredentials.Config
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewAdminTokenCache builds the cache for a service account. Pass nil for
// cfg when no admin client is configured; Token then fails with
// ErrAdminNotConfigured instead of contacting the IdP.
func NewAdminTokenCache(clientID, clientSecret, tokenURL string, ttl time.Duration, client *http.Client) *AdminTokenCache {
	c := &AdminTokenCache{client: client, ttl: ttl}
	if clientID != "" {
		c.cfg = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
	}
	return c
}

// Configured reports whether a service account is available.
func (c *AdminTokenCache) Configured() bool {
	return c.cfg != nil
}

// Token returns a valid admin access token, reusing the cached one while it
// lives. The effective lifetime is the configured TTL clamped to the
// expiry the IdP reported, so a token is never served past either bound.
func (c *AdminTokenCache) Token(ctx context.Context) (string, error) {
	if c.cfg == nil {
		return "", ErrAdminNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	if c.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	}
	tok, err := c.cfg.Token(ctx)
	if err != nil {
		c.token = ""
		return "", &AdminAuthError{err: err}
	}

	ttl := c.ttl
	if !tok.Expiry.IsZero() {
		if remaining := time.Until(tok.Expiry); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		// Unusable grant; do not cache it.
		return "", &AdminAuthError{err: errExpiredGrant}
	}

	c.token = tok.AccessToken
	c.expiresAt = time.Now().Add(ttl)
	logger.Debugw("admin token refreshed", "expires_at", c.expiresAt)
	return c.token, nil
}

// Invalidate drops the cached token. The next Token call performs a fresh
// grant. Safe to call when nothing is cached.
func (c *AdminTokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

// Stats reports the cache state without exposing the token.
func (c *AdminTokenCache) Stats() AdminTokenStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := AdminTokenStats{
		Configured: c.cfg != nil,
		Capacity:   1,
		TTLSeconds: int(c.ttl / time.Second),
	}
	if c.token != "" && time.Now().Before(c.expiresAt) {
		stats.Cached = true
		stats.CurrentSize = 1
		expiry := c.expiresAt
		stats.ExpiresAt = &expiry
	}
	return stats
}
