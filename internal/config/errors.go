package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError wraps a failure in one stage of loading. Provider is set when
// the failure belongs to a single provider's environment variables.
type ConfigError struct {
	Op       string // dotenv, bind_env, read, unmarshal or load_providers
	Provider string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("config %s: provider %q: %v", e.Op, e.Provider, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError collects every problem found by Configuration.Validate.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid gateway configuration: " + e.Errors[0]
	}
	return fmt.Sprintf("invalid gateway configuration (%d problems):\n  - %s",
		len(e.Errors), strings.Join(e.Errors, "\n  - "))
}

// HasError reports whether any problem mentions field.
func (e *ValidationError) HasError(field string) bool {
	for _, msg := range e.Errors {
		if strings.Contains(msg, field) {
			return true
		}
	}
	return false
}

// MissingKeyError means a provider was half configured: one of its required
// environment variables is set and Key is not.
type MissingKeyError struct {
	Provider string
	Key      string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("provider %q needs %s to be set", e.Provider, e.Key)
}

// InvalidValueError rejects a provider variable holding an unsupported value.
type InvalidValueError struct {
	Provider      string
	Key           string
	Value         any
	AllowedValues []string
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("provider %q: %s=%v is not supported", e.Provider, e.Key, e.Value)
	if len(e.AllowedValues) > 0 {
		msg += " (use one of: " + strings.Join(e.AllowedValues, ", ") + ")"
	}
	return msg
}

// ProviderOf returns the provider a configuration error is about, or "".
func ProviderOf(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Provider != "" {
		return cfgErr.Provider
	}
	var missing *MissingKeyError
	if errors.As(err, &missing) {
		return missing.Provider
	}
	var invalid *InvalidValueError
	if errors.As(err, &invalid) {
		return invalid.Provider
	}
	return ""
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsMissingKeyError reports whether err wraps a *MissingKeyError.
func IsMissingKeyError(err error) bool {
	var target *MissingKeyError
	return errors.As(err, &target)
}

// IsInvalidValueError reports whether err wraps an *InvalidValueError.
func IsInvalidValueError(err error) bool {
	var target *InvalidValueError
	return errors.As(err, &target)
}
