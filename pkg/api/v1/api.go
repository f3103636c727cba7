// Package v1 contains the V1 API routes for the gateway.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kcgate/kcgate/pkg/config"
	"github.com/kcgate/kcgate/pkg/idp"
	"github.com/kcgate/kcgate/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}

// writeIdPError maps management API failures to responses. Misconfiguration
// and upstream failures get distinct statuses so operators can tell a
// missing service account from an IdP outage.
func writeIdPError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, idp.ErrAdminNotConfigured):
		http.Error(w, "Management features are not configured", http.StatusNotImplemented)
	case errors.Is(err, config.ErrInvalidConfig):
		http.Error(w, "Gateway misconfiguration", http.StatusInternalServerError)
	case idp.IsAdminAuthError(err):
		logger.Errorf("admin authentication failed: %v", err)
		http.Error(w, "Identity provider rejected the management credentials", http.StatusBadGateway)
	default:
		logger.Errorf("management API call failed: %v", err)
		http.Error(w, "Identity provider unavailable", http.StatusBadGateway)
	}
}
