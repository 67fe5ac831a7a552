// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

// AIProvider defines the interface for AI provider adapters.
// All provider implementations must satisfy this interface.
type AIProvider interface {
	// ChatCompletion performs exactly one upstream call for req and returns the
	// normalized result. Failures are *domain.GatewayError values.
	ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)

	// Probe performs a cheap liveness request. A nil error means the provider
	// answered with a status below 500.
	Probe(ctx context.Context) error

	// Name returns the configured provider name.
	Name() string

	// Family returns the wire protocol family.
	Family() domain.Family
}

// Embedder is implemented by adapters whose upstream serves text embeddings.
type Embedder interface {
	// Embeddings performs exactly one upstream call and returns one vector
	// per input, in input order.
	Embeddings(ctx context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error)
}
