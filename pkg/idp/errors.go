// Package idp talks to the identity provider's endpoints beyond token
// verification: OIDC discovery, the client credentials grant for the
// management service account, and the realm management REST API.
package idp

import (
	"errors"
	"fmt"

	"github.com/kcgate/kcgate/pkg/config"
)

// ErrAdminNotConfigured is returned when management features are used
// without a service account. It wraps config.ErrInvalidConfig so callers
// can classify it as operator misconfiguration rather than an IdP outage.
var ErrAdminNotConfigured = fmt.Errorf("%w: no admin service account configured", config.ErrInvalidConfig)

// errExpiredGrant reports a grant whose token was already expired on
// arrival.
var errExpiredGrant = errors.New("grant returned an already expired token")

// AdminAuthError reports a failed client credentials grant. The IdP being
// unreachable and the IdP rejecting the credentials both land here; the
// wrapped error tells them apart.
type AdminAuthError struct {
	err error
}

func (e *AdminAuthError) Error() string {
	return fmt.Sprintf("admin authentication failed: %v", e.err)
}

func (e *AdminAuthError) Unwrap() error {
	return e.err
}

// IsAdminAuthError reports whether err is (or wraps) an AdminAuthError.
func IsAdminAuthError(err error) bool {
	var authErr *AdminAuthError
	return errors.As(err, &authErr)
}
