package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/kcgate/kcgate/pkg/logger"
)

// KeySetStats is a read-only snapshot of the key set cache.
type KeySetStats struct {
	Capacity    int      `json:"capacity"`
	TTLSeconds  int64    `json:"ttl_seconds"`
	CurrentSize int      `json:"current_size"`
	Keys        []string `json:"keys"`
}

type keySetEntry struct {
	set       jwk.Set
	fetchedAt time.Time
}

// KeySetCache is a TTL and capacity bounded cache of verification key sets,
// keyed by JWKS URL. IdP signature keys rotate on the order of days, so a
// short TTL still eliminates a network round trip on nearly every request.
//
// Concurrent misses for the same URL are coalesced into a single in-flight
// fetch. Stored key sets are treated as immutable; a refresh replaces the
// slot rather than mutating it.
type KeySetCache struct {
	client   *http.Client
	ttl      time.Duration
	capacity int

	mu      sync.RWMutex
	entries map[string]*keySetEntry
	// order tracks insertion order for oldest-first eviction. Capacity 2
	// covers key rotation overlap, where old and new sets are both
	// briefly valid.
	order []string

	group singleflight.Group
}

// NewKeySetCache creates a key set cache. The client's timeout bounds each
// fetch against the IdP.
func NewKeySetCache(client *http.Client, ttl time.Duration, capacity int) *KeySetCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if capacity < 1 {
		capacity = 1
	}
	return &KeySetCache{
		client:   client,
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*keySetEntry),
	}
}

// GetOrFetch returns the cached, non-expired key set for the URL, fetching
// from the IdP on miss. Fetch failures wrap ErrKeyFetch.
func (c *KeySetCache) GetOrFetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	if set, ok := c.lookup(jwksURL); ok {
		return set, nil
	}

	// Coalesce concurrent misses into one fetch per URL so a burst of
	// requests after expiry does not translate into a fetch storm
	// against the IdP.
	val, err, _ := c.group.Do(jwksURL, func() (any, error) {
		// Double-check after winning the flight; a concurrent caller
		// may have completed the fetch already.
		if set, ok := c.lookup(jwksURL); ok {
			return set, nil
		}

		set, err := c.fetch(ctx, jwksURL)
		if err != nil {
			return nil, err
		}
		c.store(jwksURL, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(jwk.Set), nil
}

func (c *KeySetCache) lookup(jwksURL string) (jwk.Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[jwksURL]
	if !ok || time.Since(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.set, true
}

func (c *KeySetCache) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.Infow("fetching key set from identity provider", "url", jwksURL)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: key set endpoint returned status %d", ErrKeyFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed key set payload: %v", ErrKeyFetch, err)
	}
	return set, nil
}

func (c *KeySetCache) store(jwksURL string, set jwk.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[jwksURL]; exists {
		c.removeFromOrder(jwksURL)
	}
	c.entries[jwksURL] = &keySetEntry{set: set, fetchedAt: time.Now()}
	c.order = append(c.order, jwksURL)

	for len(c.entries) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		logger.Debugw("evicted oldest key set", "url", oldest)
	}
}

func (c *KeySetCache) removeFromOrder(jwksURL string) {
	for i, u := range c.order {
		if u == jwksURL {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Invalidate clears all cached key sets immediately. Calling it on an empty
// cache is a no-op.
func (c *KeySetCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*keySetEntry)
	c.order = nil
	logger.Info("key set cache cleared")
}

// Stats returns a point-in-time snapshot of the cache. Entries past their
// TTL are not counted.
func (c *KeySetCache) Stats() KeySetStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop expired entries so the snapshot reflects what a read would see.
	for url, entry := range c.entries {
		if time.Since(entry.fetchedAt) >= c.ttl {
			delete(c.entries, url)
			c.removeFromOrder(url)
		}
	}

	keys := make([]string, len(c.order))
	copy(keys, c.order)

	return KeySetStats{
		Capacity:    c.capacity,
		TTLSeconds:  int64(c.ttl / time.Second),
		CurrentSize: len(c.entries),
		Keys:        keys,
	}
}
