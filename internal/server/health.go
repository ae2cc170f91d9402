package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// checkTimeout bounds each dependency check.
const checkTimeout = 2 * time.Second

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	// Server starts as ready by default
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// isServerShuttingDown checks if the server context is shutting down.
// Returns false if serverContext is nil (safe for testing).
func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	ModelEnabled bool              `json:"modelEnabled"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// runChecks executes every registered dependency check.
func (h *HealthChecker) runChecks(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string)
	if h.serverContext == nil {
		return results, true
	}

	allOk := true
	for _, name := range h.serverContext.checkNames() {
		fn := h.serverContext.check(name)
		if fn == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := fn(cctx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			allOk = false
			continue
		}
		results[name] = healthStatusOK
	}
	return results, allOk
}

// Liveness handles /healthz. It only tells that the process is running.
func (h *HealthChecker) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: healthStatusOK})
}

// Readiness handles /readyz.
func (h *HealthChecker) Readiness(c *gin.Context) {
	checks, allOk := h.runChecks(c.Request.Context())

	// Check if server is marked as ready
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		allOk = false
	} else {
		checks["ready"] = healthStatusOK
	}

	// Check if server context is not shutdown
	if h.isServerShuttingDown() {
		checks["shutdown"] = healthStatusShuttingDown
		allOk = false
	} else {
		checks["shutdown"] = healthStatusOK
	}

	response := HealthResponse{Checks: checks}
	if allOk {
		response.Status = healthStatusOK
		c.JSON(http.StatusOK, response)
		return
	}
	response.Status = healthStatusNotReady
	c.JSON(http.StatusServiceUnavailable, response)
}

// Detailed handles /healthz/detailed.
func (h *HealthChecker) Detailed(c *gin.Context) {
	deps, depsOk := h.runChecks(c.Request.Context())

	response := DetailedHealthResponse{
		Status:       healthStatusOK,
		Uptime:       time.Since(h.startTime).Truncate(time.Second).String(),
		Dependencies: deps,
	}
	if h.serverContext != nil && h.serverContext.Service() != nil {
		response.ModelEnabled = h.serverContext.Service().Pipeline().ModelEnabled()
	}

	// Determine overall status
	switch {
	case !h.ready.Load() || !depsOk:
		response.Status = healthStatusNotReady
		c.JSON(http.StatusServiceUnavailable, response)
	case h.isServerShuttingDown():
		response.Status = healthStatusShuttingDown
		c.JSON(http.StatusServiceUnavailable, response)
	default:
		c.JSON(http.StatusOK, response)
	}
}

// Register mounts /healthz, /readyz and /healthz/detailed on r.
func (h *HealthChecker) Register(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/healthz/detailed", h.Detailed)
}
