package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bt1zar/warden/api/handlers"
	"github.com/bt1zar/warden/config"
	"github.com/bt1zar/warden/internal/audit"
	"github.com/bt1zar/warden/internal/cache"
	"github.com/bt1zar/warden/internal/database"
	"github.com/bt1zar/warden/internal/metrics"
	"github.com/bt1zar/warden/internal/server"
	"github.com/bt1zar/warden/internal/telemetry"
	"github.com/bt1zar/warden/sandbox"
	"github.com/bt1zar/warden/scanner"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server wires the sidecar together: storage, cache, handlers, and the
// HTTP and metrics listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	telemetry *telemetry.Providers

	// Storage and caches
	store        *database.Store
	auditService *audit.Service
	cacheManager *cache.Manager

	// Server managers
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler   *handlers.HealthHandler
	validateHandler *handlers.ValidateHandler
	executeHandler  *handlers.ExecuteHandler
	auditHandler    *handlers.AuditHandler

	metricsCollector *metrics.Collector

	// Rate limiter lifecycle
	rateLimiterCancel context.CancelFunc
}

// NewServer creates the sidecar server.
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		telemetry: providers,
	}
}

// =============================================================================
// 🚀 Startup
// =============================================================================

// Start brings every component up in dependency order.
func (s *Server) Start() error {
	// 1. Metrics collector
	s.metricsCollector = metrics.NewCollector("warden", s.logger)

	// 2. Audit storage
	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}

	// 3. Scan report cache
	if err := s.initCache(); err != nil {
		return fmt.Errorf("failed to init cache: %w", err)
	}

	// 4. Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 5. HTTP server
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. Metrics server
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("audit_persisted", s.store != nil),
		zap.Bool("cache_enabled", s.cacheManager != nil),
	)

	return nil
}

// =============================================================================
// 🔧 Initialization
// =============================================================================

// initStorage opens the audit store and starts the audit recorder.
// Without persistence (disabled or unavailable) events are logged only.
func (s *Server) initStorage() error {
	bufCfg := audit.Config{BufferSize: s.cfg.Audit.BufferSize}

	if !s.cfg.Audit.Enabled {
		s.logger.Info("audit persistence disabled, events are logged only")
		svc, err := audit.NewService(nil, bufCfg, s.logger)
		if err != nil {
			return err
		}
		s.auditService = svc
		return nil
	}

	store, err := database.Open(s.cfg.Audit.DBPath, database.Config{}, s.logger)
	if err != nil {
		s.logger.Warn("audit store unavailable, falling back to log-only audit",
			zap.String("path", s.cfg.Audit.DBPath),
			zap.Error(err))
		svc, svcErr := audit.NewService(nil, bufCfg, s.logger)
		if svcErr != nil {
			return svcErr
		}
		s.auditService = svc
		return nil
	}

	svc, err := audit.NewService(store.DB(), bufCfg, s.logger)
	if err != nil {
		store.Close()
		return err
	}

	s.store = store
	s.auditService = svc
	return nil
}

// initCache connects the Redis scan report cache. The sidecar runs fine
// without it, scans are just recomputed.
func (s *Server) initCache() error {
	if !s.cfg.Cache.Enabled {
		s.logger.Info("scan report cache disabled")
		return nil
	}

	manager, err := cache.NewManager(cache.Config{
		Addr:                s.cfg.Cache.Addr,
		Password:            s.cfg.Cache.Password,
		DB:                  s.cfg.Cache.DB,
		DefaultTTL:          s.cfg.Cache.DefaultTTL,
		MaxRetries:          s.cfg.Cache.MaxRetries,
		PoolSize:            s.cfg.Cache.PoolSize,
		MinIdleConns:        s.cfg.Cache.MinIdleConns,
		HealthCheckInterval: s.cfg.Cache.HealthCheckInterval,
	}, s.logger)
	if err != nil {
		s.logger.Warn("cache unavailable, scan reports will not be cached", zap.Error(err))
		return nil
	}

	s.cacheManager = manager
	return nil
}

// initHandlers builds all HTTP handlers and their collaborators.
func (s *Server) initHandlers() error {
	// Health handler with readiness probes for the live dependencies.
	s.healthHandler = handlers.NewHealthHandler(s.logger, Version)
	if s.store != nil {
		s.healthHandler.RegisterCheck(handlers.NewStoreHealthCheck("audit_store", s.store.Ping))
	}
	if s.cacheManager != nil {
		s.healthHandler.RegisterCheck(handlers.NewCacheHealthCheck("cache", s.cacheManager.Ping))
	}

	// Validation handler: boundary checks plus the vulnerability scanner.
	sc := scanner.NewScanner(s.logger)
	s.validateHandler = handlers.NewValidateHandler(sc, s.logger).
		WithMetrics(s.metricsCollector).
		WithAudit(s.auditService).
		WithLimits(s.cfg.Scan.MaxCodeBytes)
	if s.cacheManager != nil {
		s.validateHandler = s.validateHandler.WithCache(s.cacheManager, s.cfg.Scan.CacheTTL)
	}

	// Execution handler: the sandboxed interpreter with enforced limits.
	executor := sandbox.NewExecutor(sandbox.Config{
		Timeout:        s.cfg.Sandbox.Timeout,
		MaxOutputBytes: s.cfg.Sandbox.MaxOutputBytes,
		MaxSteps:       s.cfg.Sandbox.MaxSteps,
		MaxConcurrent:  s.cfg.Sandbox.MaxConcurrent,
	}, s.logger).WithAudit(s.auditService)
	s.executeHandler = handlers.NewExecuteHandler(executor, s.logger).
		WithMetrics(s.metricsCollector).
		WithAudit(s.auditService).
		WithLimits(s.cfg.Sandbox.MaxCodeBytes, s.cfg.Sandbox.MaxTimeout).
		WithStreamOrigins(s.cfg.Server.CORSAllowedOrigins)

	// The audit query route answers 503 until persistence is up.
	var persisted *audit.Service
	if s.store != nil {
		persisted = s.auditService
	}
	s.auditHandler = handlers.NewAuditHandler(persisted, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP server
// =============================================================================

// startHTTPServer registers the routes, builds the middleware chain, and
// starts the sidecar listener.
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// Health and version endpoints
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// Sidecar API
	mux.HandleFunc("/validate/path", s.validateHandler.HandlePath)
	mux.HandleFunc("/validate/code", s.validateHandler.HandleCode)
	mux.HandleFunc("/validate/owasp", s.validateHandler.HandleOWASP)
	mux.HandleFunc("/execute", s.executeHandler.HandleExecute)
	mux.HandleFunc("/execute/stream", s.executeHandler.HandleStream)

	// Audit trail
	mux.HandleFunc("/audit/events", s.auditHandler.HandleEvents)

	// Middleware chain, outermost first.
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version"}
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.MaxBodyBytes > 0 {
		middlewares = append(middlewares, MaxBody(s.cfg.Server.MaxBodyBytes))
	}
	middlewares = append(middlewares,
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
	)
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares, JWTAuth(s.cfg.Auth, skipAuthPaths, s.logger))
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		// After auth so authenticated callers are limited per subject.
		rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
		s.rateLimiterCancel = rateLimiterCancel
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		MaxConnections:  s.cfg.Server.MaxConnections,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if s.cfg.Server.TLSEnabled() {
		if err := s.httpManager.StartTLS(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile); err != nil {
			return err
		}
	} else {
		if err := s.httpManager.Start(); err != nil {
			return err
		}
	}

	s.logger.Info("HTTP server started",
		zap.Int("port", s.cfg.Server.HTTPPort),
		zap.Bool("tls", s.cfg.Server.TLSEnabled()),
	)
	return nil
}

// =============================================================================
// 📊 Metrics server
// =============================================================================

// startMetricsServer exposes the Prometheus endpoint on its own port.
func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort <= 0 {
		s.logger.Info("metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 Shutdown
// =============================================================================

// WaitForShutdown blocks until a signal or server error, then shuts down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown stops every component in reverse dependency order. The audit
// recorder is flushed before its store closes.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 1. Stop the rate limiter cleanup goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. Stop the HTTP server
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. Stop the metrics server
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. Flush buffered audit events, then close the store
	if s.auditService != nil {
		if err := s.auditService.Close(); err != nil {
			s.logger.Error("Audit service shutdown error", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Audit store close error", zap.Error(err))
		}
	}

	// 5. Close the cache
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Cache close error", zap.Error(err))
		}
	}

	// 6. Flush telemetry
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
