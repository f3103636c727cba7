// Package api contains the REST API for the gateway.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kcgate/kcgate/pkg/admin"
	v1 "github.com/kcgate/kcgate/pkg/api/v1"
	"github.com/kcgate/kcgate/pkg/auth"
	"github.com/kcgate/kcgate/pkg/idp"
	"github.com/kcgate/kcgate/pkg/logger"
	"github.com/kcgate/kcgate/pkg/session"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
	socketPermissions = 0660
)

// Deps carries the wired gateway components into the HTTP layer.
type Deps struct {
	Resolver *auth.Resolver
	Sessions *session.Manager
	Admin    *admin.Controller
	IdP      *idp.Client

	// LocalUser, when non-empty, replaces authentication with a fixed
	// development identity that holds every role.
	LocalUser string
}

func setupTCPListener(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}

func setupUnixSocket(address string) (net.Listener, error) {
	if _, err := os.Stat(address); err == nil {
		if err := os.Remove(address); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(address), 0750); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %v", err)
	}

	listener, err := net.Listen("unix", address)
	if err != nil {
		return nil, fmt.Errorf("failed to create UNIX socket listener: %v", err)
	}

	if err := os.Chmod(address, socketPermissions); err != nil {
		return nil, fmt.Errorf("failed to set socket permissions: %v", err)
	}

	return listener, nil
}

func cleanupUnixSocket(address string) {
	if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
		logger.Warnf("failed to remove socket file: %v", err)
	}
}

func headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// Router builds the full gateway handler. Everything under /api/ is
// authenticated; /health is not.
func Router(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Timeout(middlewareTimeout),
		headersMiddleware,
	)

	r.Mount("/health", v1.HealthRouter())

	var authn func(http.Handler) http.Handler
	if deps.LocalUser != "" {
		logger.Warnf("authentication disabled, all requests act as local user %q", deps.LocalUser)
		authn = auth.LocalUserMiddleware(deps.LocalUser, "user", "manager", "admin")
	} else {
		authn = deps.Resolver.Middleware
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn)
		r.Mount("/me", v1.MeRouter())
		r.Mount("/session", v1.SessionRouter(deps.Sessions))
		r.Mount("/data", v1.DataRouter())
		r.Mount("/teams", v1.TeamsRouter(deps.IdP))
		r.Mount("/cache", v1.CacheRouter(deps.Admin))
	})

	return r
}

// Serve starts the server on the given address and serves the API until
// ctx is cancelled. It is assumed that the caller sets up appropriate
// signal handling. If isUnixSocket is true, address is treated as a UNIX
// socket path.
func Serve(ctx context.Context, address string, isUnixSocket bool, deps Deps) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           Router(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var listener net.Listener
	var addrType string
	var err error

	if isUnixSocket {
		listener, err = setupUnixSocket(address)
		addrType = "UNIX socket"
	} else {
		listener, err = setupTCPListener(address)
		addrType = "HTTP"
	}
	if err != nil {
		return err
	}

	logger.Infof("starting %s server on %s", addrType, address)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Panicf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if isUnixSocket {
			cleanupUnixSocket(address)
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if isUnixSocket {
		cleanupUnixSocket(address)
	}

	logger.Infof("%s server stopped", addrType)
	return nil
}
