package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kcgate/kcgate/pkg/auth"
)

// Manager issues opaque session IDs and adapts the Store to the
// authentication layer's lookup interface.
type Manager struct {
	store Store
}

// NewManager wraps a store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create stores the identity under a fresh random session ID and returns
// the ID.
func (m *Manager) Create(ctx context.Context, identity *auth.Identity) (string, error) {
	if identity == nil {
		return "", errors.New("cannot create a session for a nil identity")
	}

	id := uuid.NewString()
	if err := m.store.Put(ctx, id, identity); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Lookup implements auth.SessionSource. A missing or expired session is
// not an error; only backend failures are.
func (m *Manager) Lookup(ctx context.Context, sessionID string) (*auth.Identity, bool, error) {
	identity, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return identity, true, nil
}

// Destroy removes the session.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
