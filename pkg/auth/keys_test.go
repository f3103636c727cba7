package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySetCacheHitWithinTTL(t *testing.T) {
	t.Parallel()

	pair := newTestKeyPair(t, testKeyID)
	server := newJWKSServer(t, pair.set)
	cache := NewKeySetCache(nil, time.Minute, 2)

	ctx := context.Background()
	first, err := cache.GetOrFetch(ctx, server.URL())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.EqualValues(t, 1, server.fetches.Load())

	// A second call within the TTL window must not hit the network.
	second, err := cache.GetOrFetch(ctx, server.URL())
	require.NoError(t, err)
	assert.EqualValues(t, 1, server.fetches.Load())
	assert.Equal(t, first, second)
}

func TestKeySetCacheRefetchAfterTTL(t *testing.T) {
	t.Parallel()

	pair := newTestKeyPair(t, testKeyID)
	server := newJWKSServer(t, pair.set)
	cache := NewKeySetCache(nil, 50*time.Millisecond, 2)

	ctx := context.Background()
	_, err := cache.GetOrFetch(ctx, server.URL())
	require.NoError(t, err)
	assert.EqualValues(t, 1, server.fetches.Load())

	time.Sleep(80 * time.Millisecond)

	_, err = cache.GetOrFetch(ctx, server.URL())
	require.NoError(t, err)
	assert.EqualValues(t, 2, server.fetches.Load(), "expected exactly one refetch after TTL expiry")
}

func TestKeySetCacheCapacityEviction(t *testing.T) {
	t.Parallel()

	pair := newTestKeyPair(t, testKeyID)
	servers := []*jwksServer{
		newJWKSServer(t, pair.set),
		newJWKSServer(t, pair.set),
		newJWKSServer(t, pair.set),
	}
	cache := NewKeySetCache(nil, time.Minute, 2)

	ctx := context.Background()
	for _, s := range servers {
		_, err := cache.GetOrFetch(ctx, s.URL())
		require.NoError(t, err)
	}

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.CurrentSize, stats.Capacity)
	assert.NotContains(t, stats.Keys, servers[0].URL(), "oldest entry should be evicted")
	assert.Contains(t, stats.Keys, servers[1].URL())
	assert.Contains(t, stats.Keys, servers[2].URL())
}

func TestKeySetCacheInvalidateIdempotent(t *testing.T) {
	t.Parallel()

	pair := newTestKeyPair(t, testKeyID)
	server := newJWKSServer(t, pair.set)
	cache := NewKeySetCache(nil, time.Minute, 2)

	_, err := cache.GetOrFetch(context.Background(), server.URL())
	require.NoError(t, err)
	require.Equal(t, 1, cache.Stats().CurrentSize)

	cache.Invalidate()
	first := cache.Stats()
	cache.Invalidate()
	second := cache.Stats()

	assert.Equal(t, 0, first.CurrentSize)
	assert.Empty(t, first.Keys)
	assert.Equal(t, first, second, "double invalidation must equal single invalidation")
}

func TestKeySetCacheFetchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "non-200 response",
			setup: func(t *testing.T) string {
				pair := newTestKeyPair(t, testKeyID)
				server := newJWKSServer(t, pair.set)
				server.fail.Store(true)
				return server.URL()
			},
		},
		{
			name: "unreachable endpoint",
			setup: func(t *testing.T) string {
				pair := newTestKeyPair(t, testKeyID)
				server := newJWKSServer(t, pair.set)
				server.srv.Close()
				return server.URL()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cache := NewKeySetCache(nil, time.Minute, 2)

			_, err := cache.GetOrFetch(context.Background(), tt.setup(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrKeyFetch)
			assert.Equal(t, 0, cache.Stats().CurrentSize, "failed fetch must not populate the cache")
		})
	}
}

func TestKeySetCacheMalformedPayload(t *testing.T) {
	t.Parallel()

	server := newRawServer(t, "not a jwks document")
	cache := NewKeySetCache(nil, time.Minute, 2)

	_, err := cache.GetOrFetch(context.Background(), server)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyFetch)
}

func TestKeySetCacheCoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	pair := newTestKeyPair(t, testKeyID)
	server := newJWKSServer(t, pair.set)
	cache := NewKeySetCache(nil, time.Minute, 2)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = cache.GetOrFetch(context.Background(), server.URL())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("caller %d", i))
	}
	assert.EqualValues(t, 1, server.fetches.Load(), "concurrent misses must collapse into one fetch")
}

func TestKeySetCacheStats(t *testing.T) {
	t.Parallel()

	pair := newTestKeyPair(t, testKeyID)
	server := newJWKSServer(t, pair.set)
	cache := NewKeySetCache(nil, 600*time.Second, 2)

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Capacity)
	assert.EqualValues(t, 600, stats.TTLSeconds)
	assert.Equal(t, 0, stats.CurrentSize)
	assert.Empty(t, stats.Keys)

	_, err := cache.GetOrFetch(context.Background(), server.URL())
	require.NoError(t, err)

	stats = cache.Stats()
	assert.Equal(t, 1, stats.CurrentSize)
	assert.Equal(t, []string{server.URL()}, stats.Keys)
}
