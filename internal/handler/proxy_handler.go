// Package handler provides the gateway's HTTP handlers and middleware.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hpn/hpn-llm-gateway/internal/adapter"
	"github.com/hpn/hpn-llm-gateway/internal/catalog"
	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/hpn/hpn-llm-gateway/internal/gateway"
	"github.com/hpn/hpn-llm-gateway/internal/security"
)

const (
	// ServiceName is reported by the status endpoint.
	ServiceName = "LLM Gateway"

	// statusHealthy is the status field of a serving gateway.
	statusHealthy = "healthy"

	// Context keys shared with the middleware.
	ctxKeyRequestID = "request_id"
	ctxKeyProvider  = "provider"
)

// Gateway is the routing core the handlers delegate to.
type Gateway interface {
	Route(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error)
	Embed(ctx context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error)
	SwitchDefaultProvider(name string) bool
	DefaultProvider() string
	Providers() []string
	Status(ctx context.Context) map[string]bool
}

// ModelLister supplies the model catalog for GET /v1/models.
type ModelLister interface {
	Models() []catalog.Model
}

// ProxyHandler serves the OpenAI-compatible API on top of a Gateway.
type ProxyHandler struct {
	gateway  Gateway
	models   ModelLister
	logger   *slog.Logger
	redactor *security.Redactor
	version  string
	now      func() time.Time
}

// ProxyHandlerOption is a functional option for configuring ProxyHandler.
type ProxyHandlerOption func(*ProxyHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ProxyHandlerOption {
	return func(h *ProxyHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRedactor sets the redactor applied to client-visible error messages.
func WithRedactor(r *security.Redactor) ProxyHandlerOption {
	return func(h *ProxyHandler) {
		if r != nil {
			h.redactor = r
		}
	}
}

// WithVersion sets the version reported by the status endpoint.
func WithVersion(version string) ProxyHandlerOption {
	return func(h *ProxyHandler) {
		h.version = version
	}
}

// WithModels sets the catalog served by GET /v1/models.
func WithModels(models ModelLister) ProxyHandlerOption {
	return func(h *ProxyHandler) {
		h.models = models
	}
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(gw Gateway, opts ...ProxyHandlerOption) *ProxyHandler {
	h := &ProxyHandler{
		gateway:  gw,
		logger:   slog.Default(),
		redactor: security.NewRedactor(),
		version:  "dev",
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleChatCompletion handles POST /v1/chat/completions.
func (h *ProxyHandler) HandleChatCompletion(c *gin.Context) {
	var body ChatCompletionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(c, domain.NewValidationError("request body is required"))
			return
		}
		h.writeError(c, domain.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	if body.Stream {
		h.writeError(c, domain.NewValidationError("stream is not supported"))
		return
	}

	ctx, info := h.routeContext(c)
	result, err := h.gateway.Route(ctx, toChatRequest(body))
	c.Set(ctxKeyProvider, info.Provider)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toOpenAIResponse(result))
}

// HandleEmbeddings handles POST /v1/embeddings. input may be a string or an
// array of strings.
func (h *ProxyHandler) HandleEmbeddings(c *gin.Context) {
	var body EmbeddingsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(c, domain.NewValidationError("request body is required"))
			return
		}
		h.writeError(c, domain.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	req, err := toEmbeddingRequest(body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx, info := h.routeContext(c)
	result, err := h.gateway.Embed(ctx, req)
	c.Set(ctxKeyProvider, info.Provider)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmbeddingsResponse(result))
}

// routeContext carries the request id to the router and collects the
// provider it resolves.
func (h *ProxyHandler) routeContext(c *gin.Context) (context.Context, *gateway.RouteInfo) {
	ctx := gateway.WithRequestID(c.Request.Context(), c.GetString(ctxKeyRequestID))
	return gateway.WithRouteInfo(ctx)
}

// HandleSwitchProvider handles POST /v1/provider/switch.
// The provider is read from the JSON body or the provider query parameter.
// The response is always 200; success reports whether the default changed.
func (h *ProxyHandler) HandleSwitchProvider(c *gin.Context) {
	name := strings.TrimSpace(c.Query("provider"))
	if name == "" {
		var body SwitchProviderRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			h.writeError(c, domain.NewValidationError("provider is required"))
			return
		}
		name = strings.TrimSpace(body.Provider)
	}

	ok := h.gateway.SwitchDefaultProvider(name)
	c.JSON(http.StatusOK, SwitchProviderResponse{
		Success:  ok,
		Provider: h.gateway.DefaultProvider(),
	})
}

// HandleStatus handles GET /.
func (h *ProxyHandler) HandleStatus(c *gin.Context) {
	providers := h.gateway.Status(c.Request.Context())

	c.JSON(http.StatusOK, StatusResponse{
		Status:          statusHealthy,
		Service:         ServiceName,
		Version:         h.version,
		DefaultProvider: h.gateway.DefaultProvider(),
		Providers:       providers,
	})
}

// HandleModels handles GET /v1/models. Each model lists only the configured
// providers that serve it.
func (h *ProxyHandler) HandleModels(c *gin.Context) {
	list := ModelList{Object: "list", Data: []ModelEntry{}}
	if h.models == nil {
		c.JSON(http.StatusOK, list)
		return
	}

	configured := make(map[string]bool)
	for _, name := range h.gateway.Providers() {
		configured[name] = true
	}

	for _, m := range h.models.Models() {
		entry := ModelEntry{
			ID:        m.ID,
			Object:    "model",
			OwnedBy:   m.OwnedBy,
			Providers: []string{},
		}
		for _, name := range m.ProviderNames() {
			if configured[name] {
				entry.Providers = append(entry.Providers, name)
			}
		}
		list.Data = append(list.Data, entry)
	}

	c.JSON(http.StatusOK, list)
}

func (h *ProxyHandler) writeError(c *gin.Context, err error) {
	status, body := errorBody(err, h.redactor)
	if status == http.StatusInternalServerError {
		h.logger.Error("unexpected handler error",
			slog.String("request_id", c.GetString(ctxKeyRequestID)),
			slog.String("error", err.Error()),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func (h *ProxyHandler) toOpenAIResponse(result domain.ChatResult) adapter.OpenAIResponse {
	return adapter.OpenAIResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: h.now().Unix(),
		Model:   result.ModelUsed,
		Choices: []adapter.OpenAIChoice{{
			Index: 0,
			Message: adapter.OpenAIMessage{
				Role:    string(domain.RoleAssistant),
				Content: result.Content,
			},
			FinishReason: result.FinishReason,
		}},
		Usage: adapter.OpenAIUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}
}

// toChatRequest converts the wire body into a domain request. Validation is
// left to the router.
func toChatRequest(body ChatCompletionRequest) domain.ChatRequest {
	model := strings.TrimSpace(body.Model)
	if model == "" {
		model = domain.DefaultModel
	}

	msgs := make([]domain.Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		msgs = append(msgs, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}

	req := domain.NewChatRequest(model, msgs)
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	req.MaxTokens = body.MaxTokens
	req.ProviderOverride = strings.TrimSpace(body.Provider)

	return req
}

// toEmbeddingRequest accepts input as a single string or an array of strings.
func toEmbeddingRequest(body EmbeddingsRequest) (domain.EmbeddingRequest, error) {
	req := domain.EmbeddingRequest{
		Model:            strings.TrimSpace(body.Model),
		ProviderOverride: strings.TrimSpace(body.Provider),
	}

	raw := bytes.TrimSpace(body.Input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return req, domain.NewValidationError("input is required")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		req.Input = []string{single}
		return req, nil
	}
	if err := json.Unmarshal(raw, &req.Input); err != nil {
		return req, domain.NewValidationError("input must be a string or an array of strings")
	}
	return req, nil
}

func toEmbeddingsResponse(result domain.EmbeddingResult) EmbeddingsResponse {
	resp := EmbeddingsResponse{
		Object: "list",
		Data:   make([]EmbeddingData, 0, len(result.Embeddings)),
		Model:  result.ModelUsed,
		Usage: EmbeddingsUsage{
			PromptTokens: result.Usage.PromptTokens,
			TotalTokens:  result.Usage.TotalTokens,
		},
	}
	for i, v := range result.Embeddings {
		resp.Data = append(resp.Data, EmbeddingData{Object: "embedding", Index: i, Embedding: v})
	}
	return resp
}

// requestIDFrom returns the inbound X-Request-ID or a fresh one.
func requestIDFrom(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(HeaderRequestID)); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}
