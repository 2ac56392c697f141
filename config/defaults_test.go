package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Each sub-config should be non-zero
	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, SandboxConfig{}, cfg.Sandbox)
	assert.NotEqual(t, ScanConfig{}, cfg.Scan)
	assert.NotEqual(t, CacheConfig{}, cfg.Cache)
	assert.NotEqual(t, AuditConfig{}, cfg.Audit)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8766, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 150*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 100, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.False(t, cfg.TLSEnabled())
}

func TestDefaultSandboxConfig(t *testing.T) {
	cfg := DefaultSandboxConfig()
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.MaxTimeout)
	assert.Equal(t, 1<<20, cfg.MaxOutputBytes)
	assert.Equal(t, uint64(10_000_000), cfg.MaxSteps)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, 1<<20, cfg.MaxCodeBytes)

	// Streamed executions must fit inside the write timeout.
	assert.Less(t, cfg.MaxTimeout, DefaultServerConfig().WriteTimeout)
}

func TestDefaultScanConfig(t *testing.T) {
	cfg := DefaultScanConfig()
	assert.Equal(t, 2<<20, cfg.MaxCodeBytes)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
}

func TestDefaultCacheConfig(t *testing.T) {
	cfg := DefaultCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, 5*time.Minute, cfg.DefaultTTL)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 2, cfg.MinIdleConns)
}

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()
	assert.False(t, cfg.Enabled)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, 256, cfg.BufferSize)
}

func TestDefaultAuthConfig(t *testing.T) {
	cfg := DefaultAuthConfig()
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Secret)
	assert.Empty(t, cfg.PublicKeyFile)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "warden", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.001)
}
