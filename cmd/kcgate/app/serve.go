package app

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kcgate/kcgate/pkg/admin"
	"github.com/kcgate/kcgate/pkg/api"
	"github.com/kcgate/kcgate/pkg/auth"
	"github.com/kcgate/kcgate/pkg/config"
	"github.com/kcgate/kcgate/pkg/idp"
	"github.com/kcgate/kcgate/pkg/logger"
	"github.com/kcgate/kcgate/pkg/session"
)

var (
	serveAddress string
	localUser    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kcgate gateway",
	Long:  `Starts the kcgate HTTP gateway and listens for requests.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Ensure server is shutdown gracefully on Ctrl+C.
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddress != "" {
			cfg.Address = serveAddress
		}

		httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

		// An explicit JWKS URL override skips discovery. Otherwise the
		// IdP's published metadata is preferred over the derived URL,
		// falling back to the derivation when the IdP is unreachable at
		// startup.
		jwksURL := cfg.KeySetURL()
		if cfg.JWKSURL == "" {
			if doc, err := idp.Discover(ctx, httpClient, cfg.Issuer()); err != nil {
				logger.Warnf("OIDC discovery failed, using derived endpoints: %v", err)
			} else if doc.JWKSURI != "" {
				jwksURL = doc.JWKSURI
			}
		}

		keys := auth.NewKeySetCache(httpClient, cfg.KeySetTTL, cfg.KeySetCapacity)
		validator := auth.NewTokenValidator(cfg.Issuer(), cfg.Audience, jwksURL, keys)

		var store session.Store
		if cfg.RedisURL != "" {
			store, err = session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
			if err != nil {
				return fmt.Errorf("failed to set up redis sessions: %w", err)
			}
			logger.Infof("using redis session store")
		} else {
			store = session.NewLocalStore(cfg.SessionTTL)
			logger.Infof("using in-memory session store")
		}
		sessions := session.NewManager(store)
		defer func() {
			if err := sessions.Close(); err != nil {
				logger.Warnf("failed to close session store: %v", err)
			}
		}()

		tokens := idp.NewAdminTokenCache(
			cfg.AdminClientID, cfg.AdminClientSecret, cfg.TokenURL(), cfg.AdminTokenTTL, httpClient,
		)
		if !tokens.Configured() {
			logger.Infof("no admin service account configured, management routes disabled")
		}

		deps := api.Deps{
			Resolver:  auth.NewResolver(sessions, validator),
			Sessions:  sessions,
			Admin:     admin.NewController(keys, tokens),
			IdP:       idp.NewClient(cfg.AdminBaseURL(), tokens, httpClient),
			LocalUser: localUser,
		}

		logger.Infow("gateway configured",
			"issuer", cfg.Issuer(),
			"jwks_url", jwksURL,
			"audience_check", cfg.Audience != "",
		)

		// A "unix:" prefix on the listen address selects a unix socket
		// instead of a TCP listener.
		address, isUnixSocket := strings.CutPrefix(cfg.Address, "unix:")
		return api.Serve(ctx, address, isUnixSocket, deps)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "",
		"Listen address, with an optional \"unix:\" prefix for a unix socket (overrides configuration)")
	serveCmd.Flags().StringVar(&localUser, "local-user", "",
		"Disable authentication and act as this user (development only)")
}
