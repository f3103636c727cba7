package session

import (
	"context"
	"sync"
	"time"

	"github.com/kcgate/kcgate/pkg/auth"
)

type localEntry struct {
	identity  *auth.Identity
	expiresAt time.Time
}

// localStore keeps sessions in process memory with periodic TTL sweeps.
// Suitable for single-instance deployments and tests.
type localStore struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewLocalStore creates an in-memory store and starts its cleanup worker.
func NewLocalStore(ttl time.Duration) Store {
	s := &localStore{
		entries: make(map[string]localEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go s.cleanupRoutine()
	return s
}

func (s *localStore) cleanupRoutine() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stopCh:
			return
		}
	}
}

func (s *localStore) cleanupExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func (s *localStore) Put(_ context.Context, id string, identity *auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = localEntry{identity: identity, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *localStore) Get(_ context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	// Expiry is checked on read so a session never outlives its TTL even
	// between sweeps.
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.identity, nil
}

func (s *localStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *localStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}
