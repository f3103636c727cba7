// Package admin exposes gateway cache administration: inspecting cache
// state and forcing refreshes without a restart.
package admin

import (
	"github.com/kcgate/kcgate/pkg/auth"
	"github.com/kcgate/kcgate/pkg/idp"
	"github.com/kcgate/kcgate/pkg/logger"
)

// Cache names as they appear in clear results and info payloads.
const (
	CacheKeySet     = "jwks"
	CacheAdminToken = "admin_token"
)

// Info is the combined state of the gateway's caches. Cached values
// themselves never appear; only sizes, bounds, and cache keys do.
type Info struct {
	KeySet     auth.KeySetStats    `json:"jwks"`
	AdminToken idp.AdminTokenStats `json:"admin_token"`
}

// ClearResult names the caches a clear operation emptied.
type ClearResult struct {
	Cleared []string `json:"cleared"`
}

// Controller operates on the gateway's caches.
type Controller struct {
	keys   *auth.KeySetCache
	tokens *idp.AdminTokenCache
}

// NewController wires the controller to the live caches.
func NewController(keys *auth.KeySetCache, tokens *idp.AdminTokenCache) *Controller {
	return &Controller{keys: keys, tokens: tokens}
}

// Info reports the current state of every cache.
func (c *Controller) Info() Info {
	return Info{
		KeySet:     c.keys.Stats(),
		AdminToken: c.tokens.Stats(),
	}
}

// Clear empties every cache and returns their names. The next token
// validation refetches keys and the next management call performs a fresh
// grant; in-flight requests are unaffected.
func (c *Controller) Clear() ClearResult {
	c.keys.Invalidate()
	c.tokens.Invalidate()
	logger.Infow("caches cleared", "caches", []string{CacheKeySet, CacheAdminToken})
	return ClearResult{Cleared: []string{CacheKeySet, CacheAdminToken}}
}
