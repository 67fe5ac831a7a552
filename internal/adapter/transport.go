package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of an upstream body is read.
	maxResponseBytes = 4 << 20

	// maxErrorBodyBytes bounds the upstream body kept on an UpstreamError.
	maxErrorBodyBytes = 2 << 10
)

// Option is a functional option shared by all adapters.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithModelAliases sets the client-facing to provider model name table.
func WithModelAliases(aliases map[string]string) Option {
	return func(c *client) {
		c.aliases = make(map[string]string, len(aliases))
		for k, v := range aliases {
			c.aliases[k] = v
		}
	}
}

// client carries everything the family adapters share: identity, auth and
// the single-shot JSON transport.
type client struct {
	name         string
	family       domain.Family
	baseURL      string
	authMode     domain.AuthMode
	credential   string
	apiKeyHeader string
	aliases      map[string]string
	httpClient   *http.Client
}

func newClient(cfg domain.ProviderConfig, apiKeyHeader string, opts []Option) client {
	c := client{
		name:         cfg.Name,
		family:       cfg.Family,
		baseURL:      strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		authMode:     cfg.AuthMode,
		credential:   cfg.Credential,
		apiKeyHeader: apiKeyHeader,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
	}
	if c.authMode == "" {
		c.authMode = cfg.Family.DefaultAuthMode()
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Name returns the provider identifier.
func (c *client) Name() string {
	return c.name
}

// Family returns the provider wire family.
func (c *client) Family() domain.Family {
	return c.family
}

// mapModelName converts a client-facing model name to the provider's name.
// Unknown names pass through unchanged.
func (c *client) mapModelName(model string) string {
	if mapped, ok := c.aliases[model]; ok && mapped != "" {
		return mapped
	}
	return model
}

// endpoint joins path onto the base URL, keeping any query in path.
func (c *client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *client) applyAuth(req *http.Request) {
	if c.credential == "" {
		return
	}
	switch c.authMode {
	case domain.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.credential)
	case domain.AuthAPIKey:
		req.Header.Set(c.apiKeyHeader, c.credential)
	}
}

// postJSON performs the one outbound call of a chat completion. Transport
// failures become UpstreamUnavailable and non-2xx statuses UpstreamError.
func (c *client) postJSON(ctx context.Context, endpointURL string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.GatewayError{
			Kind:     domain.KindValidation,
			Provider: c.name,
			Message:  "failed to encode upstream request",
			Err:      err,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewUpstreamUnavailable(c.name, fmt.Errorf("failed to create http request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	c.applyAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewUpstreamUnavailable(c.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewUpstreamUnavailable(c.name, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewUpstreamError(c.name, resp.StatusCode, truncate(string(respBody), maxErrorBodyBytes))
	}

	return respBody, nil
}

// probe issues a GET and treats any status below 500 as alive.
func (c *client) probe(ctx context.Context, endpointURL string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	c.applyAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.NewUpstreamUnavailable(c.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.NewUpstreamError(c.name, resp.StatusCode, "")
	}
	return nil
}

// decode unmarshals a 2xx body, mapping failures to MalformedResponse.
func (c *client) decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewMalformedResponse(c.name, "failed to decode provider response", err)
	}
	return nil
}

func (c *client) checkMessages(req domain.ChatRequest) error {
	if len(req.Messages) == 0 {
		return &domain.GatewayError{
			Kind:     domain.KindValidation,
			Provider: c.name,
			Message:  "messages must not be empty",
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
