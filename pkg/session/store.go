// Package session stores authenticated identities server-side under opaque
// session IDs, with a TTL enforced by the backing store.
package session

import (
	"context"
	"errors"

	"github.com/kcgate/kcgate/pkg/auth"
)

// ErrNotFound is returned by Store.Get when no live session has the ID.
var ErrNotFound = errors.New("session not found")

// Store persists identities keyed by session ID. Implementations enforce
// the TTL themselves; an expired session behaves exactly like a missing
// one.
type Store interface {
	// Put stores the identity under the session ID, resetting its TTL.
	Put(ctx context.Context, id string, identity *auth.Identity) error
	// Get returns the identity for a live session, or ErrNotFound.
	Get(ctx context.Context, id string) (*auth.Identity, error)
	// Delete removes the session. Deleting a missing session is not an
	// error.
	Delete(ctx context.Context, id string) error
	// Close releases the store's resources.
	Close() error
}
