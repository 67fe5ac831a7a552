package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a gateway failure. Each kind maps to one HTTP status.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindUnknownProvider     ErrorKind = "unknown_provider"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindUpstreamError       ErrorKind = "upstream_error"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindInternal            ErrorKind = "server_error"
)

// GatewayError is the single error type surfaced by the router and adapters.
type GatewayError struct {
	Kind     ErrorKind
	Provider string
	Message  string

	// UpstreamStatus and UpstreamBody are set for KindUpstreamError only.
	UpstreamStatus int
	UpstreamBody   string

	Err error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a KindValidation error.
func NewValidationError(msg string) *GatewayError {
	return &GatewayError{Kind: KindValidation, Message: msg}
}

// NewUnknownProviderError returns a KindUnknownProvider error for name.
func NewUnknownProviderError(name string) *GatewayError {
	return &GatewayError{
		Kind:     KindUnknownProvider,
		Provider: name,
		Message:  fmt.Sprintf("provider %q is not configured", name),
	}
}

// NewUpstreamUnavailable wraps a transport-level failure.
func NewUpstreamUnavailable(provider string, err error) *GatewayError {
	return &GatewayError{
		Kind:     KindUpstreamUnavailable,
		Provider: provider,
		Message:  "provider is unreachable",
		Err:      err,
	}
}

// NewUpstreamError records a non-2xx upstream response.
func NewUpstreamError(provider string, status int, body string) *GatewayError {
	return &GatewayError{
		Kind:           KindUpstreamError,
		Provider:       provider,
		Message:        fmt.Sprintf("provider returned status %d", status),
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

// NewMalformedResponse records a 2xx response that could not be normalized.
func NewMalformedResponse(provider, msg string, err error) *GatewayError {
	return &GatewayError{
		Kind:     KindMalformedResponse,
		Provider: provider,
		Message:  msg,
		Err:      err,
	}
}

// AsGatewayError extracts a *GatewayError from err's chain.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	if gwErr, ok := AsGatewayError(err); ok {
		return gwErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a *GatewayError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
