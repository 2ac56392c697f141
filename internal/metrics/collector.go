// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Metrics collector
// =============================================================================

// Collector registers and records Prometheus metrics for every surface of
// the service: the HTTP API, boundary path validation, code scanning,
// sandboxed execution, and the scan report cache.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Boundary metrics
	pathValidationsTotal *prometheus.CounterVec

	// Scanner metrics
	scansTotal           *prometheus.CounterVec
	scanDuration         prometheus.Histogram
	vulnerabilitiesTotal *prometheus.CounterVec
	complianceScore      prometheus.Histogram

	// Sandbox metrics
	executionsTotal      *prometheus.CounterVec
	executionDuration    *prometheus.HistogramVec
	executionOutputBytes prometheus.Histogram

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector. All metrics are registered on
// the default registry under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP metrics
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Boundary metrics
	c.pathValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_validations_total",
			Help:      "Total number of path boundary validations",
		},
		[]string{"outcome"}, // outcome: allowed, blocked
	)

	// Scanner metrics
	c.scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_scans_total",
			Help:      "Total number of code vulnerability scans",
		},
		[]string{"verdict"}, // verdict: clean, flagged
	)

	c.scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "code_scan_duration_seconds",
			Help:      "Code scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.vulnerabilitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vulnerabilities_detected_total",
			Help:      "Total number of vulnerabilities detected by scans",
		},
		[]string{"category", "severity"},
	)

	c.complianceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compliance_score",
			Help:      "Distribution of scan compliance scores (0-100)",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// Sandbox metrics
	c.executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandbox_executions_total",
			Help:      "Total number of sandboxed code executions",
		},
		[]string{"status"}, // status: success, failure, blocked, timeout
	)

	c.executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sandbox_execution_duration_seconds",
			Help:      "Sandboxed execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	c.executionOutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sandbox_output_bytes",
			Help:      "Captured stdout size per execution in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	// Cache metrics
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP metrics
// =============================================================================

// RecordHTTPRequest records a completed HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🛡️ Boundary metrics
// =============================================================================

// RecordPathValidation records the outcome of a boundary path validation.
func (c *Collector) RecordPathValidation(allowed bool) {
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}
	c.pathValidationsTotal.WithLabelValues(outcome).Inc()
}

// =============================================================================
// 🔍 Scanner metrics
// =============================================================================

// RecordScan records a completed vulnerability scan.
func (c *Collector) RecordScan(clean bool, duration time.Duration, score float64) {
	verdict := "flagged"
	if clean {
		verdict = "clean"
	}
	c.scansTotal.WithLabelValues(verdict).Inc()
	c.scanDuration.Observe(duration.Seconds())
	c.complianceScore.Observe(score)
}

// RecordVulnerability records a single finding from a scan.
func (c *Collector) RecordVulnerability(category, severity string) {
	c.vulnerabilitiesTotal.WithLabelValues(category, severity).Inc()
}

// =============================================================================
// 📦 Sandbox metrics
// =============================================================================

// RecordExecution records a completed sandboxed execution.
func (c *Collector) RecordExecution(status string, duration time.Duration, outputBytes int) {
	c.executionsTotal.WithLabelValues(status).Inc()
	c.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.executionOutputBytes.Observe(float64(outputBytes))
}

// =============================================================================
// 💾 Cache metrics
// =============================================================================

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 🔧 Helpers
// =============================================================================

// statusCode groups an HTTP status code into its class.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
