package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kcgate/kcgate/pkg/logger"
)

// Client calls the realm management REST API with the cached service
// account token. Transient failures retry with exponential backoff; a 401
// drops the cached token and retries once with a fresh grant.
type Client struct {
	baseURL string
	tokens  *AdminTokenCache
	http    *http.Client
}

// NewClient builds a management API client rooted at baseURL
// (e.g. https://idp.example.com/admin/realms/demo).
func NewClient(baseURL string, tokens *AdminTokenCache, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, tokens: tokens, http: httpClient}
}

// maxAttempts bounds retries of a single management API call, the initial
// attempt included.
const maxAttempts = 3

// getJSON performs an authenticated GET and decodes the JSON response into
// out. 4xx responses other than 401 are permanent; 5xx and transport
// errors retry.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond
	expBackoff.Reset()

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.getOnce(ctx, path)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debugf("retrying GET %s after %v: %v", path, wait, err)
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response from %s: %w", path, err)
	}
	return nil
}

// getOnce performs one authenticated GET. A 401 invalidates the token so
// the next attempt starts from a fresh grant.
func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		c.tokens.Invalidate()
		return nil, fmt.Errorf("GET %s: token rejected", path)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", path, err)
	}
	return body, nil
}
