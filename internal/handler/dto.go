package handler

import (
	"encoding/json"

	"github.com/hpn/hpn-llm-gateway/internal/adapter"
)

// ChatCompletionRequest is the inbound OpenAI-compatible request body with the
// gateway's provider extension.
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []adapter.OpenAIMessage `json:"messages"`
	Temperature *float64                `json:"temperature,omitempty"`
	MaxTokens   *int                    `json:"max_tokens,omitempty"`

	// Provider routes this request to a named provider without changing the default.
	Provider string `json:"provider,omitempty"`

	// Stream is accepted for compatibility; true is rejected.
	Stream bool `json:"stream,omitempty"`
}

// EmbeddingsRequest is the body of POST /v1/embeddings. Input is a string or
// an array of strings.
type EmbeddingsRequest struct {
	Model    string          `json:"model"`
	Input    json.RawMessage `json:"input"`
	Provider string          `json:"provider,omitempty"`
}

// EmbeddingsResponse is the OpenAI-style embeddings list.
type EmbeddingsResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  EmbeddingsUsage `json:"usage"`
}

// EmbeddingData is one vector, indexed by input position.
type EmbeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsUsage holds token accounting for an embeddings call.
type EmbeddingsUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// SwitchProviderRequest is the body of POST /v1/provider/switch.
type SwitchProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// SwitchProviderResponse reports whether the switch happened and the default
// provider afterwards.
type SwitchProviderResponse struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider"`
}

// StatusResponse is the body of GET /.
type StatusResponse struct {
	Status          string          `json:"status"`
	Service         string          `json:"service"`
	Version         string          `json:"version"`
	DefaultProvider string          `json:"default_provider"`
	Providers       map[string]bool `json:"providers"`
}

// ModelList is the OpenAI-style body of GET /v1/models.
type ModelList struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}

// ModelEntry is one catalog model and the configured providers serving it.
type ModelEntry struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	OwnedBy   string   `json:"owned_by"`
	Providers []string `json:"providers"`
}
