// Package authz makes allow/deny decisions over an authenticated identity's
// realm roles and token scopes.
package authz

import (
	"github.com/kcgate/kcgate/pkg/auth"
)

// DenialReason enumerates why a decision denied access.
type DenialReason string

const (
	// ReasonNotAuthenticated means no identity was available to check.
	ReasonNotAuthenticated DenialReason = "not_authenticated"
	// ReasonMissingRole means the identity lacks the required realm role.
	ReasonMissingRole DenialReason = "missing_role"
	// ReasonMissingScope means the identity's token lacks the required scope.
	ReasonMissingScope DenialReason = "missing_scope"
)

// Decision is the outcome of a single authorization check.
type Decision struct {
	Allowed  bool         `json:"allowed"`
	Required string       `json:"required,omitempty"`
	Reason   DenialReason `json:"reason,omitempty"`
}

// Allow is the granted decision for the named requirement.
func Allow(required string) Decision {
	return Decision{Allowed: true, Required: required}
}

// Deny is the denied decision for the named requirement.
func Deny(required string, reason DenialReason) Decision {
	return Decision{Allowed: false, Required: required, Reason: reason}
}

// CheckRole decides whether the identity holds the given realm role.
// A nil identity denies with ReasonNotAuthenticated.
func CheckRole(identity *auth.Identity, role string) Decision {
	if identity == nil {
		return Deny(role, ReasonNotAuthenticated)
	}
	if !identity.HasRole(role) {
		return Deny(role, ReasonMissingRole)
	}
	return Allow(role)
}

// CheckScope decides whether the identity's token carries the given scope.
// A nil identity denies with ReasonNotAuthenticated.
func CheckScope(identity *auth.Identity, scope string) Decision {
	if identity == nil {
		return Deny(scope, ReasonNotAuthenticated)
	}
	if !identity.HasScope(scope) {
		return Deny(scope, ReasonMissingScope)
	}
	return Allow(scope)
}
