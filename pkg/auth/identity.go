// Package auth provides authentication and authorization utilities.
package auth

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity represents an authenticated principal resolved for one request.
// It is constructed from a validated token or a trusted session entry,
// never from unvalidated claims, and is immutable once built.
type Identity struct {
	// Subject is the unique identifier for the principal (from 'sub' claim).
	// This is always required per OIDC Core 1.0 spec § 5.1.
	Subject string

	// Username is the login name (from 'preferred_username').
	Username string

	// Name is the human-readable name (from 'name' claim, if available).
	Name string

	// Email is the email address (from 'email' claim, if available).
	Email string

	// Roles are the realm roles granted to this principal, extracted from
	// the nested 'realm_access.roles' claim. Unordered, unique.
	Roles []string

	// Groups are the group paths this principal belongs to (from the
	// 'groups' claim, if present). Unordered, unique.
	Groups []string

	// Scopes are the OAuth scopes of the presented token, split from the
	// space-separated 'scope' claim. Session-derived identities carry no
	// scopes, so scope checks against them deny.
	Scopes []string

	// Claims contains all claims from the auth token.
	// This preserves the full claim set for authorization decisions.
	Claims map[string]any

	// Token is the original bearer token (for pass-through scenarios).
	// This is redacted in String() and MarshalJSON() to prevent leakage.
	Token string

	// TokenType is the type of token (e.g., "Bearer").
	TokenType string
}

// HasRole reports whether the identity carries the given realm role.
func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.Roles, role)
}

// HasScope reports whether the identity's token carried the given scope.
func (i *Identity) HasScope(scope string) bool {
	return i != nil && slices.Contains(i.Scopes, scope)
}

// String returns a string representation of the Identity with sensitive fields redacted.
// This prevents accidental token leakage when the Identity is logged or printed.
func (i *Identity) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Identity{Subject:%q, Username:%q}", i.Subject, i.Username)
}

// MarshalJSON implements json.Marshaler to redact sensitive fields during JSON serialization.
// This prevents accidental token leakage in structured logs or API responses.
func (i *Identity) MarshalJSON() ([]byte, error) {
	if i == nil {
		return []byte("null"), nil
	}

	type SafeIdentity struct {
		Subject   string         `json:"subject"`
		Username  string         `json:"username"`
		Name      string         `json:"name,omitempty"`
		Email     string         `json:"email,omitempty"`
		Roles     []string       `json:"roles"`
		Groups    []string       `json:"groups"`
		Scopes    []string       `json:"scopes"`
		Claims    map[string]any `json:"claims,omitempty"`
		Token     string         `json:"token,omitempty"`
		TokenType string         `json:"tokenType,omitempty"`
	}

	token := i.Token
	if token != "" {
		token = "REDACTED"
	}

	return json.Marshal(&SafeIdentity{
		Subject:   i.Subject,
		Username:  i.Username,
		Name:      i.Name,
		Email:     i.Email,
		Roles:     i.Roles,
		Groups:    i.Groups,
		Scopes:    i.Scopes,
		Claims:    i.Claims,
		Token:     token,
		TokenType: i.TokenType,
	})
}

// identityFromClaims converts validated JWT claims to an Identity.
// It requires the 'sub' claim per OIDC Core 1.0 spec § 5.1; a missing or
// malformed required claim shape fails fast rather than surfacing deeper in
// authorization logic.
func identityFromClaims(claims jwt.MapClaims, token string) (*Identity, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing or invalid 'sub' claim (required by OIDC Core 1.0 § 5.1)")
	}

	identity := &Identity{
		Subject:   sub,
		Roles:     realmRoles(claims),
		Groups:    stringList(claims["groups"]),
		Scopes:    scopeList(claims),
		Claims:    claims,
		Token:     token,
		TokenType: "Bearer",
	}

	if username, ok := claims["preferred_username"].(string); ok {
		identity.Username = username
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}

	return identity, nil
}

// realmRoles extracts the nested realm role list
// ('realm_access' -> 'roles') used by Keycloak-style issuers.
func realmRoles(claims jwt.MapClaims) []string {
	realmAccess, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	return stringList(realmAccess["roles"])
}

// scopeList splits the space-separated 'scope' claim.
func scopeList(claims jwt.MapClaims) []string {
	scope, ok := claims["scope"].(string)
	if !ok || scope == "" {
		return nil
	}
	return dedupe(strings.Fields(scope))
}

// stringList converts a JSON array claim value to a unique string slice,
// skipping entries of any other type.
func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
