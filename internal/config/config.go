// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables, an optional .env file and
// config.yaml using Viper.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Gateway routing configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// CORS configuration
	CORS CORSConfig `json:"cors" mapstructure:"cors"`

	// RateLimit configuration
	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`

	// Metrics configuration
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Providers is built from the environment only, never from config files.
	Providers []domain.ProviderConfig `json:"providers" mapstructure:"-"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GatewayConfig holds routing configuration.
type GatewayConfig struct {
	// DefaultProvider is the provider used when a request names none.
	DefaultProvider string `json:"default_provider" mapstructure:"default_provider"`

	// RequestTimeoutSeconds bounds one routed upstream call.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`

	// ProbeTimeoutSeconds bounds one liveness probe.
	ProbeTimeoutSeconds int `json:"probe_timeout_seconds" mapstructure:"probe_timeout_seconds"`

	// CatalogPath overrides the embedded model catalog when set.
	CatalogPath string `json:"catalog_path" mapstructure:"catalog_path"`
}

// RequestTimeout returns RequestTimeoutSeconds as a duration.
func (g GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeoutSeconds) * time.Second
}

// ProbeTimeout returns ProbeTimeoutSeconds as a duration.
func (g GatewayConfig) ProbeTimeout() time.Duration {
	return time.Duration(g.ProbeTimeoutSeconds) * time.Second
}

// CORSConfig holds the browser origin allow-list.
type CORSConfig struct {
	// AllowedOrigins accepts exact origins and single-label wildcards such as
	// https://*.office.com.
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// RateLimitConfig holds per-client rate limiting configuration.
type RateLimitConfig struct {
	// RedisAddr enables rate limiting when non-empty.
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr"`

	// RequestsPerMinute is the per-client budget.
	RequestsPerMinute int `json:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// Enabled reports whether a Redis backend is configured.
func (r RateLimitConfig) Enabled() bool {
	return r.RedisAddr != ""
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`

	// Console enables the colored per-request console output.
	Console bool `json:"console" mapstructure:"console"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
// Returns an error if configuration loading fails.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
// This should be used when you need to specify a non-default configuration file path.
// Returns an error if configuration loading fails.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if required fields are missing.
func (c *Configuration) Validate() error {
	var validationErrors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	// Validate gateway configuration
	if c.Gateway.RequestTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "gateway.request_timeout_seconds must be positive")
	}
	if c.Gateway.ProbeTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "gateway.probe_timeout_seconds must be positive")
	}

	// Validate providers
	if len(c.Providers) == 0 {
		validationErrors = append(validationErrors, "providers cannot be empty, at least one provider is required")
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if err := p.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("providers[%d]: %v", i, err))
		}
		if seen[p.Name] {
			validationErrors = append(validationErrors, fmt.Sprintf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
	}

	if c.Gateway.DefaultProvider == "" {
		validationErrors = append(validationErrors, "gateway.default_provider is required")
	} else if len(c.Providers) > 0 && !seen[c.Gateway.DefaultProvider] {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"gateway.default_provider '%s' is not configured, must be one of: %s",
			c.Gateway.DefaultProvider, strings.Join(c.ProviderNames(), ", "),
		))
	}

	// Validate rate limit configuration
	if c.RateLimit.Enabled() && c.RateLimit.RequestsPerMinute <= 0 {
		validationErrors = append(validationErrors, "rate_limit.requests_per_minute must be positive when rate_limit.redis_addr is set")
	}

	// Validate metrics configuration
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		validationErrors = append(validationErrors, "metrics.path must start with '/'")
	}

	// Validate logging configuration
	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ProviderNames returns the configured provider names in declaration order.
func (c *Configuration) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		names = append(names, p.Name)
	}
	return names
}

// GetProvider returns a provider by its name.
func (c *Configuration) GetProvider(name string) (domain.ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return domain.ProviderConfig{}, false
}

// Secrets returns every non-empty provider credential, for log redaction.
func (c *Configuration) Secrets() []string {
	secrets := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Credential != "" {
			secrets = append(secrets, p.Credential)
		}
	}
	return secrets
}
