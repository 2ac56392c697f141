// =============================================================================
// 📦 Warden default configuration
// =============================================================================
// Sensible defaults for every configuration section.
// =============================================================================
package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Sandbox:   DefaultSandboxConfig(),
		Scan:      DefaultScanConfig(),
		Cache:     DefaultCacheConfig(),
		Audit:     DefaultAuditConfig(),
		Auth:      DefaultAuthConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8766,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    150 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxConnections:  0,
		MaxBodyBytes:    4 << 20,
		// The sidecar is reached from local tooling on changing ports.
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       100,
		RateLimitBurst:     200,
	}
}

// DefaultSandboxConfig returns the default sandbox configuration.
func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		Timeout:        60 * time.Second,
		MaxTimeout:     2 * time.Minute,
		MaxOutputBytes: 1 << 20,
		MaxSteps:       10_000_000,
		MaxConcurrent:  8,
		MaxCodeBytes:   1 << 20,
	}
}

// DefaultScanConfig returns the default scan configuration.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MaxCodeBytes: 2 << 20,
		CacheTTL:     10 * time.Minute,
	}
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:             false,
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		DefaultTTL:          5 * time.Minute,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:    false,
		DBPath:     "warden_audit.db",
		BufferSize: 256,
	}
}

// DefaultAuthConfig returns the default auth configuration.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled: false,
	}
}

// DefaultLogConfig returns the default log configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "warden",
		SampleRate:   0.1,
	}
}
