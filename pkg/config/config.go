// Package config loads and validates the kcgate gateway configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig marks configuration errors so callers can distinguish
// operator misconfiguration from runtime failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults for the cache and session layers. Signature keys rotate on the
// order of days, so the JWKS TTL can be generous; admin tokens are
// short-lived by the IdP's own policy.
const (
	DefaultKeySetTTL         = 600 * time.Second
	DefaultKeySetCapacity    = 2
	DefaultAdminTokenTTL     = 300 * time.Second
	DefaultSessionTTL        = 30 * time.Minute
	DefaultHTTPClientTimeout = 10 * time.Second
	DefaultListenAddress     = "127.0.0.1:8666"
)

// Config is the fully resolved gateway configuration. All values are plain
// data; no file paths or env var names survive loading.
type Config struct {
	// ServerURL is the base URL of the identity provider
	// (e.g. https://idp.example.com).
	ServerURL string `mapstructure:"server_url"`

	// Realm is the IdP realm that issues tokens for this gateway.
	Realm string `mapstructure:"realm"`

	// Audience is the expected audience claim. When empty, the audience
	// check is skipped. This relaxed default matches IdP setups where
	// several clients share one realm issuer.
	Audience string `mapstructure:"audience"`

	// ClientID and ClientSecret identify the gateway's own OIDC client.
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// AdminClientID and AdminClientSecret identify the optional service
	// account used for IdP management API calls. When unset, admin
	// features are disabled and report a configuration error on use.
	AdminClientID     string `mapstructure:"admin_client_id"`
	AdminClientSecret string `mapstructure:"admin_client_secret"`

	// JWKSURL overrides the JWKS endpoint derived from ServerURL/Realm.
	JWKSURL string `mapstructure:"jwks_url"`

	// KeySetTTL and KeySetCapacity bound the verification key cache.
	KeySetTTL      time.Duration `mapstructure:"keyset_ttl"`
	KeySetCapacity int           `mapstructure:"keyset_capacity"`

	// AdminTokenTTL bounds the admin credential cache.
	AdminTokenTTL time.Duration `mapstructure:"admin_token_ttl"`

	// SessionTTL bounds server-side sessions.
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// RedisURL selects the Redis session backend when non-empty
	// (e.g. redis://localhost:6379/0). Sessions are held in memory
	// otherwise.
	RedisURL string `mapstructure:"redis_url"`

	// Address is the listen address for the HTTP API.
	Address string `mapstructure:"address"`

	// HTTPClientTimeout bounds every outbound call to the IdP.
	HTTPClientTimeout time.Duration `mapstructure:"http_client_timeout"`
}

// Load reads configuration from the environment (prefix KCGATE_) and an
// optional config file, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KCGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kcgate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kcgate")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: reading config file: %v", ErrInvalidConfig, err)
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default registered, or AutomaticEnv values for it
	// never reach Unmarshal.
	v.SetDefault("realm", "")
	v.SetDefault("audience", "")
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("admin_client_id", "")
	v.SetDefault("admin_client_secret", "")
	v.SetDefault("jwks_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("keyset_ttl", DefaultKeySetTTL)
	v.SetDefault("keyset_capacity", DefaultKeySetCapacity)
	v.SetDefault("admin_token_ttl", DefaultAdminTokenTTL)
	v.SetDefault("session_ttl", DefaultSessionTTL)
	v.SetDefault("http_client_timeout", DefaultHTTPClientTimeout)
	v.SetDefault("address", DefaultListenAddress)
}

// Validate checks that the Config is complete enough to serve requests.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: server_url is required", ErrInvalidConfig)
	}
	if c.Realm == "" {
		return fmt.Errorf("%w: realm is required", ErrInvalidConfig)
	}
	if (c.AdminClientID == "") != (c.AdminClientSecret == "") {
		return fmt.Errorf("%w: admin_client_id and admin_client_secret must be set together", ErrInvalidConfig)
	}
	if c.KeySetCapacity < 1 {
		return fmt.Errorf("%w: keyset_capacity must be at least 1", ErrInvalidConfig)
	}
	if c.KeySetTTL <= 0 || c.AdminTokenTTL <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("%w: cache TTLs must be positive", ErrInvalidConfig)
	}
	return nil
}

// HasAdminClient reports whether a management service account is configured.
func (c *Config) HasAdminClient() bool {
	return c.AdminClientID != "" && c.AdminClientSecret != ""
}

// Issuer returns the realm issuer URL. Token issuer claims must match this
// value exactly.
func (c *Config) Issuer() string {
	return fmt.Sprintf("%s/realms/%s", strings.TrimSuffix(c.ServerURL, "/"), c.Realm)
}

// KeySetURL returns the JWKS endpoint, honoring an explicit override.
func (c *Config) KeySetURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.Issuer() + "/protocol/openid-connect/certs"
}

// TokenURL returns the realm token endpoint used for the client
// credentials grant.
func (c *Config) TokenURL() string {
	return c.Issuer() + "/protocol/openid-connect/token"
}

// AdminBaseURL returns the base URL of the IdP management REST API for the
// configured realm.
func (c *Config) AdminBaseURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", strings.TrimSuffix(c.ServerURL, "/"), c.Realm)
}
