package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/bt1zar/warden/api"
	"go.uber.org/zap"
)

// =============================================================================
// 🏥 Health handler
// =============================================================================

// HealthHandler serves the liveness and readiness routes.
type HealthHandler struct {
	logger  *zap.Logger
	version string
	checks  []HealthCheck
	mu      sync.RWMutex
}

// HealthCheck probes one dependency for readiness.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the readiness payload.
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one probe outcome.
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(logger *zap.Logger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		version: version,
		checks:  make([]HealthCheck, 0),
	}
}

// RegisterCheck adds a readiness probe.
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP handlers
// =============================================================================

// HandleHealth serves GET /health in the sidecar's shape.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Service: "warden",
		Version: h.version,
	})
}

// HandleHealthz serves GET /healthz (Kubernetes liveness).
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	// Liveness only checks that the process answers.
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleReady serves GET /ready and runs every registered probe.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Checks:    make(map[string]CheckResult),
	}

	allHealthy := true
	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{
			Status:  "pass",
			Latency: latency.String(),
		}

		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			allHealthy = false

			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}

		status.Checks[check.Name()] = result
	}

	if !allHealthy {
		status.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion serves GET /version.
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, api.VersionInfo{
			Version:   version,
			BuildTime: buildTime,
			GitCommit: gitCommit,
			GoVersion: runtime.Version(),
		})
	}
}

// =============================================================================
// 🔧 Built-in probes
// =============================================================================

// StoreHealthCheck probes the audit store.
type StoreHealthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewStoreHealthCheck creates an audit store probe.
func NewStoreHealthCheck(name string, ping func(ctx context.Context) error) *StoreHealthCheck {
	return &StoreHealthCheck{
		name: name,
		ping: ping,
	}
}

func (c *StoreHealthCheck) Name() string {
	return c.name
}

func (c *StoreHealthCheck) Check(ctx context.Context) error {
	return c.ping(ctx)
}

// CacheHealthCheck probes the Redis cache.
type CacheHealthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewCacheHealthCheck creates a cache probe.
func NewCacheHealthCheck(name string, ping func(ctx context.Context) error) *CacheHealthCheck {
	return &CacheHealthCheck{
		name: name,
		ping: ping,
	}
}

func (c *CacheHealthCheck) Name() string {
	return c.name
}

func (c *CacheHealthCheck) Check(ctx context.Context) error {
	return c.ping(ctx)
}
