package auth

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when a request carries neither a
	// session nor a bearer token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrKeyFetch is returned when the verification key set cannot be
	// fetched from the identity provider. Callers must treat this as a
	// hard authentication failure, never a silent allow.
	ErrKeyFetch = errors.New("failed to fetch key set")
)

// ValidationReason enumerates why a bearer token was rejected. The reason is
// for internal logging and tests only; it must never be echoed to callers,
// so that probing a forged token reveals nothing about which check failed.
type ValidationReason string

// Validation failure reasons.
const (
	ReasonMalformed        ValidationReason = "malformed"
	ReasonSignatureInvalid ValidationReason = "signature_invalid"
	ReasonExpired          ValidationReason = "expired"
	ReasonIssuerMismatch   ValidationReason = "issuer_mismatch"
	ReasonAudienceMismatch ValidationReason = "audience_mismatch"
	ReasonKeyUnavailable   ValidationReason = "key_unavailable"
)

// TokenValidationError reports a failed bearer token validation along with
// the specific check that failed.
type TokenValidationError struct {
	Reason ValidationReason
	err    error
}

func newValidationError(reason ValidationReason, err error) *TokenValidationError {
	return &TokenValidationError{Reason: reason, err: err}
}

// Error includes the reason and underlying detail. This string is intended
// for logs; the HTTP boundary sends a generic message instead.
func (e *TokenValidationError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("token validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("token validation failed: %s: %v", e.Reason, e.err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *TokenValidationError) Unwrap() error {
	return e.err
}
