package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/kcgate/kcgate/pkg/logger"
)

// errKeyNotFound is returned by the keyfunc when the token names a key id
// that is absent from the current key set. It maps to a signature failure:
// a token signed with an unknown key is indistinguishable from a forgery.
var errKeyNotFound = errors.New("signing key not found in key set")

// TokenValidator verifies bearer tokens against the IdP's published keys
// and produces a normalized Identity from the claims.
//
// Validation is synchronous and performs at most one key set fetch per
// call; retrying on key_unavailable is the caller's decision.
type TokenValidator struct {
	issuer   string
	audience string
	jwksURL  string
	keys     *KeySetCache
	parser   *jwt.Parser
}

// NewTokenValidator creates a validator bound to the given realm issuer and
// key set cache. An empty audience disables the audience check.
func NewTokenValidator(issuer, audience, jwksURL string, keys *KeySetCache) *TokenValidator {
	return &TokenValidator{
		issuer:   issuer,
		audience: audience,
		jwksURL:  jwksURL,
		keys:     keys,
		// Claims are validated explicitly below so each failure carries
		// its specific reason.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Validate verifies the raw token's structure, signature, expiry, issuer,
// and (when configured) audience, in that order. On success it returns the
// extracted Identity; on failure, a *TokenValidationError whose Reason
// names the first check that failed.
func (v *TokenValidator) Validate(ctx context.Context, rawToken string) (*Identity, error) {
	token, err := v.parser.Parse(rawToken, func(token *jwt.Token) (any, error) {
		return v.verificationKey(ctx, token)
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, newValidationError(ReasonMalformed, errors.New("unexpected claims type"))
	}

	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}

	identity, err := identityFromClaims(claims, rawToken)
	if err != nil {
		return nil, newValidationError(ReasonMalformed, err)
	}

	logger.Debugw("token validated", "subject", identity.Subject, "username", identity.Username)
	return identity, nil
}

// verificationKey resolves the public key named by the token header's kid
// from the cached key set.
func (v *TokenValidator) verificationKey(ctx context.Context, token *jwt.Token) (any, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("token header missing kid")
	}

	keySet, err := v.keys.GetOrFetch(ctx, v.jwksURL)
	if err != nil {
		return nil, err
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("%w: kid %q", errKeyNotFound, kid)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}
	return rawKey, nil
}

// classifyParseError maps jwt parse failures onto validation reasons.
// Anything that is not a structural or key availability problem is treated
// as a signature failure.
func classifyParseError(err error) *TokenValidationError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newValidationError(ReasonMalformed, err)
	case errors.Is(err, ErrKeyFetch):
		return newValidationError(ReasonKeyUnavailable, err)
	default:
		return newValidationError(ReasonSignatureInvalid, err)
	}
}

// validateClaims runs the ordered claim checks: expiry, issuer, audience.
func (v *TokenValidator) validateClaims(claims jwt.MapClaims) error {
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil || expiry.Before(time.Now()) {
		return newValidationError(ReasonExpired, errors.New("token expiry elapsed or missing"))
	}

	issuer, err := claims.GetIssuer()
	if err != nil || issuer != v.issuer {
		return newValidationError(ReasonIssuerMismatch,
			fmt.Errorf("issuer %q does not match configured issuer", issuer))
	}

	// The audience check applies only when an audience is configured.
	// This relaxed default matches multi-client realms; it weakens
	// isolation between clients sharing one issuer if left unset.
	if v.audience != "" {
		audiences, err := claims.GetAudience()
		if err != nil {
			return newValidationError(ReasonAudienceMismatch, err)
		}
		found := false
		for _, aud := range audiences {
			if aud == v.audience {
				found = true
				break
			}
		}
		if !found {
			return newValidationError(ReasonAudienceMismatch,
				fmt.Errorf("audience %v does not contain %q", audiences, v.audience))
		}
	}

	return nil
}
