package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// userAgent identifies the gateway on outbound IdP requests.
const userAgent = "kcgate/1.0"

// DiscoveryDocument is the subset of the OIDC discovery metadata the
// gateway consumes.
type DiscoveryDocument struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

// Discover fetches the well-known OIDC configuration for the issuer. The
// gateway derives its endpoints from configuration by default; discovery
// exists to verify that derivation against what the IdP actually serves.
func Discover(ctx context.Context, client *http.Client, issuer string) (*DiscoveryDocument, error) {
	if client == nil {
		client = http.DefaultClient
	}

	wellKnown := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", wellKnown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP %d", wellKnown, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read discovery document: %w", err)
	}

	var doc DiscoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse discovery document: %w", err)
	}
	if doc.Issuer == "" {
		return nil, fmt.Errorf("discovery document from %s has no issuer", wellKnown)
	}
	if doc.Issuer != issuer {
		return nil, fmt.Errorf("issuer mismatch: configured %q, discovered %q", issuer, doc.Issuer)
	}
	return &doc, nil
}
