package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector tests
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.pathValidationsTotal)
	assert.NotNil(t, collector.scansTotal)
	assert.NotNil(t, collector.vulnerabilitiesTotal)
	assert.NotNil(t, collector.executionsTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)

	// Record the same request again.
	collector.RecordHTTPRequest("GET", "/test", 200, 50*time.Millisecond, 512, 1024)

	newCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_RecordPathValidation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordPathValidation(true)
	collector.RecordPathValidation(false)

	count := testutil.CollectAndCount(collector.pathValidationsTotal)
	assert.Equal(t, 2, count) // one series per outcome

	allowed := testutil.ToFloat64(collector.pathValidationsTotal.WithLabelValues("allowed"))
	assert.Equal(t, 1.0, allowed)

	blocked := testutil.ToFloat64(collector.pathValidationsTotal.WithLabelValues("blocked"))
	assert.Equal(t, 1.0, blocked)
}

func TestCollector_RecordScan(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordScan(false, 5*time.Millisecond, 60.0)
	collector.RecordScan(true, 2*time.Millisecond, 100.0)

	count := testutil.CollectAndCount(collector.scansTotal)
	assert.Equal(t, 2, count)

	flagged := testutil.ToFloat64(collector.scansTotal.WithLabelValues("flagged"))
	assert.Equal(t, 1.0, flagged)

	clean := testutil.ToFloat64(collector.scansTotal.WithLabelValues("clean"))
	assert.Equal(t, 1.0, clean)

	durationCount := testutil.CollectAndCount(collector.scanDuration)
	assert.Greater(t, durationCount, 0)

	scoreCount := testutil.CollectAndCount(collector.complianceScore)
	assert.Greater(t, scoreCount, 0)
}

func TestCollector_RecordVulnerability(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordVulnerability("SQL Injection", "critical")
	collector.RecordVulnerability("SQL Injection", "critical")
	collector.RecordVulnerability("Weak Cryptography", "medium")

	critical := testutil.ToFloat64(collector.vulnerabilitiesTotal.WithLabelValues("SQL Injection", "critical"))
	assert.Equal(t, 2.0, critical)

	medium := testutil.ToFloat64(collector.vulnerabilitiesTotal.WithLabelValues("Weak Cryptography", "medium"))
	assert.Equal(t, 1.0, medium)
}

func TestCollector_RecordExecution(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordExecution("success", 250*time.Millisecond, 1024)
	collector.RecordExecution("timeout", 60*time.Second, 0)

	count := testutil.CollectAndCount(collector.executionsTotal)
	assert.Equal(t, 2, count)

	success := testutil.ToFloat64(collector.executionsTotal.WithLabelValues("success"))
	assert.Equal(t, 1.0, success)

	timeout := testutil.ToFloat64(collector.executionsTotal.WithLabelValues("timeout"))
	assert.Equal(t, 1.0, timeout)

	outputCount := testutil.CollectAndCount(collector.executionOutputBytes)
	assert.Greater(t, outputCount, 0)
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordCacheHit("redis")
	collector.RecordCacheMiss("redis")

	hitCount := testutil.CollectAndCount(collector.cacheHits)
	assert.Greater(t, hitCount, 0)

	missCount := testutil.CollectAndCount(collector.cacheMisses)
	assert.Greater(t, missCount, 0)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.RecordPathValidation(id%2 == 0)
			collector.RecordExecution("success", 100*time.Millisecond, 64)
			collector.RecordCacheHit("redis")
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	httpCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, httpCount, 0)

	executions := testutil.ToFloat64(collector.executionsTotal.WithLabelValues("success"))
	assert.Equal(t, 10.0, executions)

	cacheCount := testutil.CollectAndCount(collector.cacheHits)
	assert.Greater(t, cacheCount, 0)
}

func TestCollector_MetricsRegistration(t *testing.T) {
	logger := zap.NewNop()

	// Custom registry alongside the default one.
	registry := prometheus.NewRegistry()

	collector := NewCollector(nextTestNamespace(), logger)

	registry.MustRegister(collector.httpRequestsTotal)
	registry.MustRegister(collector.httpRequestDuration)

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 0, 0)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(42))
}
