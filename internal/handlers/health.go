package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"order-tracker/internal/repository"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
	RedisHealth(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	deps    Pinger
	service string
	version string
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(deps Pinger, service, version string) *HealthHandler {
	return &HealthHandler{deps: deps, service: service, version: version}
}

// Health reports that the process is up
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: h.service, Version: h.version})
}

// Ready reports whether the database and cache are reachable. A missing
// redis client counts as ready; the cache is optional.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	status, code := "ready", http.StatusOK

	if err := h.deps.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	switch err := h.deps.RedisHealth(ctx); {
	case errors.Is(err, repository.ErrCacheDisabled):
		checks["redis"] = "disabled"
	case err != nil:
		checks["redis"] = err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{Status: status, Service: h.service, Version: h.version, Checks: checks})
}
