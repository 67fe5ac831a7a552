// Package config provides configuration management using the Singleton pattern.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "HPN_GATEWAY"

	// DotEnvFile is loaded before the environment is read. Missing is fine.
	DotEnvFile = ".env"

	// providerEnvPrefix introduces generic provider variables:
	// HPN_GATEWAY_PROVIDER_<NAME>_{FAMILY,BASE_URL,AUTH_MODE,CREDENTIAL,API_VERSION}.
	providerEnvPrefix = envPrefix + "_PROVIDER_"
)

// Well-known provider environment variables.
const (
	EnvLocalURL        = "LOCAL_LLM_URL"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvOpenAIBaseURL   = "OPENAI_BASE_URL"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureKey        = "AZURE_OPENAI_KEY"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"
	EnvGeminiKey       = "GEMINI_API_KEY"
)

const (
	defaultLocalURL        = "http://localhost:11434"
	defaultOpenAIURL       = "https://api.openai.com/v1"
	defaultGeminiURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultAzureAPIVersion = "2024-02-01"
)

// DefaultAllowedOrigins are the browser origins permitted out of the box:
// the local add-in dev server and Office web hosts.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://localhost:3000",
	"https://*.officeapps.live.com",
	"https://*.office.com",
}

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. Environment variables (prefixed with HPN_GATEWAY_, plus the well-known names)
// 2. .env file in the working directory
// 3. config.yaml
// 4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, &ConfigError{
			Op:  "dotenv",
			Err: fmt.Errorf("failed to load %s: %w", DotEnvFile, err),
		}
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure Viper
	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	// Add config search paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hpn-llm-gateway")
		v.AddConfigPath("$HOME/.hpn-llm-gateway")
	}

	// Enable environment variable override
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, &ConfigError{Op: "bind_env", Err: err}
	}

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "[CONFIG] Config file not found, using defaults and environment variables\n")
		} else {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	// Unmarshal configuration
	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	// Providers come from the environment only so credentials never live in files.
	providers, err := loadProvidersFromEnv(os.Environ())
	if err != nil {
		return nil, &ConfigError{
			Op:       "load_providers",
			Provider: ProviderOf(err),
			Err:      err,
		}
	}
	cfg.Providers = providers

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads environment variables from path. Missing files are ignored
// and variables already set in the environment win.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Gateway defaults
	v.SetDefault("gateway.default_provider", "local")
	v.SetDefault("gateway.request_timeout_seconds", 30)
	v.SetDefault("gateway.probe_timeout_seconds", 5)
	v.SetDefault("gateway.catalog_path", "")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", DefaultAllowedOrigins)

	// Rate limit defaults
	v.SetDefault("rate_limit.redis_addr", "")
	v.SetDefault("rate_limit.requests_per_minute", 60)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.console", false)
}

// bindLegacyEnv keeps the unprefixed variable names deployments already use.
// The prefixed name is listed first and wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":              {envPrefix + "_SERVER_PORT", "GATEWAY_PORT"},
		"gateway.default_provider": {envPrefix + "_GATEWAY_DEFAULT_PROVIDER", "LLM_PROVIDER"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// loadProvidersFromEnv builds the provider list from well-known variables and
// generic HPN_GATEWAY_PROVIDER_* variables. A generic provider replaces a
// well-known one of the same name. The result is ordered local, openai, azure,
// gemini, then generic providers by name.
func loadProvidersFromEnv(environ []string) ([]domain.ProviderConfig, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}

	providers, err := wellKnownProviders(env)
	if err != nil {
		return nil, err
	}

	generic, err := genericProviders(env)
	if err != nil {
		return nil, err
	}

	for _, g := range generic {
		replaced := false
		for i := range providers {
			if providers[i].Name == g.Name {
				providers[i] = g
				replaced = true
				break
			}
		}
		if !replaced {
			providers = append(providers, g)
		}
	}

	return providers, nil
}

func wellKnownProviders(env map[string]string) ([]domain.ProviderConfig, error) {
	localURL := env[EnvLocalURL]
	if localURL == "" {
		localURL = defaultLocalURL
	}

	providers := []domain.ProviderConfig{{
		Name:     "local",
		Family:   domain.FamilyOllama,
		BaseURL:  localURL,
		AuthMode: domain.AuthNone,
	}}

	if key := env[EnvOpenAIKey]; key != "" {
		baseURL := env[EnvOpenAIBaseURL]
		if baseURL == "" {
			baseURL = defaultOpenAIURL
		}
		providers = append(providers, domain.ProviderConfig{
			Name:       "openai",
			Family:     domain.FamilyOpenAI,
			BaseURL:    baseURL,
			AuthMode:   domain.AuthBearer,
			Credential: key,
		})
	}

	endpoint, key := env[EnvAzureEndpoint], env[EnvAzureKey]
	switch {
	case endpoint != "" && key != "":
		version := env[EnvAzureAPIVersion]
		if version == "" {
			version = defaultAzureAPIVersion
		}
		providers = append(providers, domain.ProviderConfig{
			Name:       "azure",
			Family:     domain.FamilyAzure,
			BaseURL:    endpoint,
			AuthMode:   domain.AuthAPIKey,
			Credential: key,
			APIVersion: version,
		})
	case endpoint != "":
		return nil, &MissingKeyError{Provider: "azure", Key: EnvAzureKey}
	case key != "":
		return nil, &MissingKeyError{Provider: "azure", Key: EnvAzureEndpoint}
	}

	if key := env[EnvGeminiKey]; key != "" {
		providers = append(providers, domain.ProviderConfig{
			Name:       "gemini",
			Family:     domain.FamilyGemini,
			BaseURL:    defaultGeminiURL,
			AuthMode:   domain.AuthAPIKey,
			Credential: key,
		})
	}

	return providers, nil
}

// providerFields maps generic variable suffixes to setters.
var providerFields = []struct {
	suffix string
	set    func(*domain.ProviderConfig, string)
}{
	{"_FAMILY", func(p *domain.ProviderConfig, v string) { p.Family = domain.Family(strings.ToLower(v)) }},
	{"_BASE_URL", func(p *domain.ProviderConfig, v string) { p.BaseURL = v }},
	{"_AUTH_MODE", func(p *domain.ProviderConfig, v string) { p.AuthMode = domain.AuthMode(strings.ToLower(v)) }},
	{"_CREDENTIAL", func(p *domain.ProviderConfig, v string) { p.Credential = v }},
	{"_API_VERSION", func(p *domain.ProviderConfig, v string) { p.APIVersion = v }},
}

func genericProviders(env map[string]string) ([]domain.ProviderConfig, error) {
	byName := make(map[string]*domain.ProviderConfig)

	for key, value := range env {
		if !strings.HasPrefix(key, providerEnvPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, providerEnvPrefix)

		for _, field := range providerFields {
			if !strings.HasSuffix(rest, field.suffix) {
				continue
			}
			name := strings.ToLower(strings.TrimSuffix(rest, field.suffix))
			if name == "" {
				break
			}
			p, ok := byName[name]
			if !ok {
				p = &domain.ProviderConfig{Name: name}
				byName[name] = p
			}
			field.set(p, value)
			break
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]domain.ProviderConfig, 0, len(names))
	for _, name := range names {
		p := byName[name]
		if !p.Family.IsValid() {
			return nil, &InvalidValueError{
				Provider:      name,
				Key:           providerEnvPrefix + strings.ToUpper(name) + "_FAMILY",
				Value:         p.Family,
				AllowedValues: familyNames(),
			}
		}
		if p.AuthMode == "" {
			p.AuthMode = p.Family.DefaultAuthMode()
		}
		providers = append(providers, *p)
	}

	return providers, nil
}

func familyNames() []string {
	names := make([]string, 0, len(domain.Families))
	for _, f := range domain.Families {
		names = append(names, string(f))
	}
	return names
}
