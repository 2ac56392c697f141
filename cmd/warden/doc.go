/*
Package main provides the Warden sidecar executable.

# Overview

cmd/warden is the entry point of the Warden security sidecar. It exposes
boundary path validation, vulnerability scanning, and sandboxed script
execution over a local HTTP API, with subcommands for serving, health
probing, and version queries. The program supports YAML configuration
with environment overrides, structured logging (zap), Prometheus metrics,
and OpenTelemetry tracing.

# Core types

  - Server: wires storage, cache, handlers, and both listeners
  - Middleware: HTTP middleware signature func(http.Handler) http.Handler

# Capabilities

  - Subcommands: serve (start the sidecar), version, health
  - Middleware chain: Recovery, RequestID, SecurityHeaders, RequestLogger,
    CORS, MaxBody, MetricsMiddleware, OTelTracing, JWTAuth (Bearer),
    RateLimiter (per subject, falling back to per IP)
  - Audit persistence: SQLite-backed trail with log-only degradation
  - Metrics server: /metrics (Prometheus) on its own port
  - Graceful shutdown: signal → HTTP → metrics → audit flush → store →
    cache → telemetry
  - Build injection: Version, BuildTime, GitCommit via ldflags
*/
package main
