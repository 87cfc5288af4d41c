package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"
	readinessTimeout      = 2 * time.Second
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// healthzHandler handles liveness probes (/healthz)
// Returns 200 if the application is running
func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := HealthResponse{
		Status:  healthStatusOK,
		Version: h.version,
	}

	_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // Best effort response
}

// readyzHandler handles readiness probes (/readyz)
// Runs every registered dependency check under a shared deadline
func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.healthChecks))
	for name := range h.healthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if err := h.healthChecks[name](ctx); err != nil {
			checks[name] = healthStatusUnhealthy + ": " + err.Error()
			allHealthy = false
			h.logger.Warn(ctx).Err(err).Str("check", name).Msg("readiness check failed")
			continue
		}
		checks[name] = healthStatusHealthy
	}

	response := HealthResponse{
		Status:  healthStatusOK,
		Checks:  checks,
		Version: h.version,
	}

	w.Header().Set("Content-Type", "application/json")
	if allHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = healthStatusUnhealthy
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // Best effort response
}
