// Package client is a Go client for the LLM gateway HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where a locally started gateway listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultModel is sent when a request leaves Model empty.
	DefaultModel = "gpt-3.5-turbo"

	maxResponseBytes = 4 << 20
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion request. Provider routes this request
// only; empty means the gateway's current default.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Provider    string    `json:"provider,omitempty"`
}

// Usage holds token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the flattened result of a chat completion.
type ChatResponse struct {
	ID           string
	Content      string
	Model        string
	FinishReason string
	Usage        Usage

	// Provider is the requested provider, or empty when the default was used.
	Provider     string
	RequestID    string
	ResponseTime time.Duration
}

// Status is the gateway health report.
type Status struct {
	Status          string          `json:"status"`
	Service         string          `json:"service"`
	Version         string          `json:"version"`
	DefaultProvider string          `json:"default_provider"`
	Providers       map[string]bool `json:"providers"`
}

// Model is one catalog entry.
type Model struct {
	ID        string   `json:"id"`
	OwnedBy   string   `json:"owned_by"`
	Providers []string `json:"providers"`
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode     int
	Type           string
	Message        string
	UpstreamStatus int
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway returned status %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// IsAPIErrorType reports whether err is an *APIError of the given type,
// such as "unknown_provider" or "rate_limit_error".
func IsAPIErrorType(err error, errType string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == errType
}

// Client talks to one gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a client for the gateway at baseURL. An empty baseURL uses
// DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatCompletion sends req to POST /v1/chat/completions.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = DefaultModel
	}

	start := time.Now()
	var wire struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message      Message `json:"message"`
			FinishReason string  `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	header, err := c.do(ctx, http.MethodPost, "/v1/chat/completions", req, &wire)
	if err != nil {
		return nil, err
	}
	if len(wire.Choices) == 0 {
		return nil, errors.New("gateway response has no choices")
	}

	return &ChatResponse{
		ID:           wire.ID,
		Content:      wire.Choices[0].Message.Content,
		Model:        wire.Model,
		FinishReason: wire.Choices[0].FinishReason,
		Usage:        wire.Usage,
		Provider:     req.Provider,
		RequestID:    header.Get("X-Request-ID"),
		ResponseTime: time.Since(start),
	}, nil
}

// Ask sends prompt as a single user message to model.
func (c *Client) Ask(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.ChatCompletion(ctx, ChatRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// DefaultEmbeddingModel is sent when Embeddings is called with an empty model.
const DefaultEmbeddingModel = "text-embedding-ada-002"

// Embeddings sends input to POST /v1/embeddings and returns one vector per
// input string, in input order.
func (c *Client) Embeddings(ctx context.Context, model string, input ...string) ([][]float64, error) {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if len(input) == 0 {
		return nil, errors.New("embeddings need at least one input")
	}

	var wire struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	payload := map[string]any{"model": model, "input": input}
	if _, err := c.do(ctx, http.MethodPost, "/v1/embeddings", payload, &wire); err != nil {
		return nil, err
	}
	if len(wire.Data) != len(input) {
		return nil, fmt.Errorf("gateway returned %d embeddings for %d inputs", len(wire.Data), len(input))
	}

	out := make([][]float64, len(input))
	for _, d := range wire.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("gateway returned embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// SwitchProvider makes name the gateway's default provider. It returns false
// when the gateway does not know name.
func (c *Client) SwitchProvider(ctx context.Context, name string) (bool, error) {
	var resp struct {
		Success  bool   `json:"success"`
		Provider string `json:"provider"`
	}
	body := map[string]string{"provider": name}
	if _, err := c.do(ctx, http.MethodPost, "/v1/provider/switch", body, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// Status fetches GET /.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if _, err := c.do(ctx, http.MethodGet, "/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Models fetches GET /v1/models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var list struct {
		Data []Model `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/v1/models", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) (http.Header, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}

func parseAPIError(status int, body []byte) error {
	var wire struct {
		Error struct {
			Type           string `json:"type"`
			Message        string `json:"message"`
			UpstreamStatus int    `json:"upstream_status"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Type != "" {
		apiErr.Type = wire.Error.Type
		apiErr.Message = wire.Error.Message
		apiErr.UpstreamStatus = wire.Error.UpstreamStatus
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
