package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthCheckTimeout = 5 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler handles health check and metrics endpoints.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler creates a health handler over the named checks.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.Error("Health check failed", "check", name, "error", err)
			checks[name] = "unreachable"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	JSON(w, statusCode, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// RegisterHealth registers the health check and Prometheus routes.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
}
