// =============================================================================
// 📦 Warden configuration loader
// =============================================================================
// Unified configuration loading, YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("warden.yaml").
//	    WithEnvPrefix("WARDEN").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 Core configuration structure
// =============================================================================

// Config is the complete Warden configuration.
type Config struct {
	// Server holds the HTTP listener settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Sandbox holds the code execution limits.
	Sandbox SandboxConfig `yaml:"sandbox" env:"SANDBOX"`

	// Scan holds the vulnerability scan settings.
	Scan ScanConfig `yaml:"scan" env:"SCAN"`

	// Cache holds the Redis result cache settings.
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Audit holds the audit trail settings.
	Audit AuditConfig `yaml:"audit" env:"AUDIT"`

	// Auth holds the optional JWT verification settings.
	Auth AuthConfig `yaml:"auth" env:"AUTH"`

	// Log holds the logging settings.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry holds the tracing and metrics export settings.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// HTTP port for the sidecar API.
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics port for the Prometheus endpoint.
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// Read timeout.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout. Must exceed the sandbox timeout or streamed
	// executions are cut off mid-run.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Idle connection timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// Graceful shutdown timeout.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Maximum concurrent connections, 0 means unlimited.
	MaxConnections int `yaml:"max_connections" env:"MAX_CONNECTIONS"`
	// Maximum request body size in bytes.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	// Allowed CORS origins. "*" allows every origin.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// Rate limit in requests per second per client IP, 0 disables.
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// Rate limit burst size.
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// TLS certificate file. TLS is enabled when both files are set.
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	// TLS private key file.
	TLSKeyFile string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// TLSEnabled reports whether a certificate pair is configured.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// SandboxConfig configures the script execution limits.
type SandboxConfig struct {
	// Default wall clock budget per execution. Requests may lower it.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Upper bound a request may raise the timeout to.
	MaxTimeout time.Duration `yaml:"max_timeout" env:"MAX_TIMEOUT"`
	// Captured output cap in bytes.
	MaxOutputBytes int `yaml:"max_output_bytes" env:"MAX_OUTPUT_BYTES"`
	// Abstract interpreter step cap per execution.
	MaxSteps uint64 `yaml:"max_steps" env:"MAX_STEPS"`
	// Number of in-flight executions allowed.
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	// Maximum accepted script size in bytes.
	MaxCodeBytes int `yaml:"max_code_bytes" env:"MAX_CODE_BYTES"`
}

// ScanConfig configures the vulnerability scanner endpoints.
type ScanConfig struct {
	// Maximum accepted payload size in bytes.
	MaxCodeBytes int `yaml:"max_code_bytes" env:"MAX_CODE_BYTES"`
	// TTL for cached scan reports.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// CacheConfig configures the Redis result cache.
type CacheConfig struct {
	// Enabled toggles the cache. The service runs without it.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Redis address.
	Addr string `yaml:"addr" env:"ADDR"`
	// Password.
	Password string `yaml:"password" env:"PASSWORD"`
	// Database number.
	DB int `yaml:"db" env:"DB"`
	// Default TTL for cached entries.
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
	// Maximum retries per command.
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// Connection pool size.
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Minimum idle connections.
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// Interval between background health pings, 0 disables.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// AuditConfig configures the append-only audit trail.
type AuditConfig struct {
	// Enabled toggles persistence. Disabled keeps log-only audit.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// SQLite database path.
	DBPath string `yaml:"db_path" env:"DB_PATH"`
	// Buffered events awaiting persistence before drops begin.
	BufferSize int `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// AuthConfig configures optional JWT bearer authentication.
type AuthConfig struct {
	// Enabled toggles token verification on the API routes.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// HMAC secret for HS256 tokens.
	Secret string `yaml:"secret" env:"SECRET"`
	// PEM encoded RSA public key for RS256 tokens.
	PublicKeyFile string `yaml:"public_key_file" env:"PUBLIC_KEY_FILE"`
	// Expected issuer, empty skips the check.
	Issuer string `yaml:"issuer" env:"ISSUER"`
	// Expected audience, empty skips the check.
	Audience string `yaml:"audience" env:"AUDIENCE"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Include caller information.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Include stack traces on errors.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	// Enabled toggles the OTLP exporters.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP endpoint.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Service name reported on spans.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Trace sampling rate.
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 Loader
// =============================================================================

// Loader loads configuration using the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "WARDEN",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the configuration file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation hook.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the configuration.
// Precedence: defaults → YAML file → environment variables.
func (l *Loader) Load() (*Config, error) {
	// 1. Start from defaults.
	cfg := DefaultConfig()

	// 2. Overlay the file when one is configured.
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. Overlay environment variables.
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. Run validators.
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile overlays configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv overlays configuration from environment variables.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv recursively fills struct fields from the environment.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// Recurse into nested sections.
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue parses value into a single field.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration accepts duration syntax.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 Helpers
// =============================================================================

// MustLoad loads configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics port must differ from HTTP port")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, "tls_cert_file and tls_key_file must be set together")
	}

	if c.Sandbox.Timeout <= 0 {
		errs = append(errs, "sandbox timeout must be positive")
	}
	if c.Sandbox.MaxTimeout < c.Sandbox.Timeout {
		errs = append(errs, "sandbox max_timeout must be at least the default timeout")
	}
	if c.Sandbox.MaxConcurrent <= 0 {
		errs = append(errs, "sandbox max_concurrent must be positive")
	}

	if c.Audit.Enabled && c.Audit.DBPath == "" {
		errs = append(errs, "audit db_path required when audit is enabled")
	}

	if c.Auth.Enabled && c.Auth.Secret == "" && c.Auth.PublicKeyFile == "" {
		errs = append(errs, "auth requires a secret or a public key file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
