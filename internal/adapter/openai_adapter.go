package adapter

import (
	"context"
	"net/url"
	"strings"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

const (
	// DefaultOpenAIBaseURL is the default OpenAI API endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultAzureAPIVersion is used when an azure provider has no api_version.
	DefaultAzureAPIVersion = "2024-02-01"
)

// OpenAIAdapter implements AIProvider for OpenAI-compatible endpoints and for
// Azure OpenAI, which shares the payload shape but addresses deployments.
type OpenAIAdapter struct {
	client
	apiVersion string
}

var _ AIProvider = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates an adapter for FamilyOpenAI.
func NewOpenAIAdapter(cfg domain.ProviderConfig, opts ...Option) *OpenAIAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	cfg.Family = domain.FamilyOpenAI
	return &OpenAIAdapter{client: newClient(cfg, "api-key", opts)}
}

// NewAzureAdapter creates an adapter for FamilyAzure.
func NewAzureAdapter(cfg domain.ProviderConfig, opts ...Option) *OpenAIAdapter {
	cfg.Family = domain.FamilyAzure
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAzureAPIVersion
	}
	return &OpenAIAdapter{
		client:     newClient(cfg, "api-key", opts),
		apiVersion: version,
	}
}

// ChatCompletion sends req to the chat completions endpoint.
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	if err := a.checkMessages(req); err != nil {
		return domain.ChatResult{}, err
	}

	model := a.mapModelName(req.Model)
	body, err := a.postJSON(ctx, a.chatURL(model), a.mapToOpenAIRequest(req, model))
	if err != nil {
		return domain.ChatResult{}, err
	}

	var wire openAIWireResponse
	if err := a.decode(body, &wire); err != nil {
		return domain.ChatResult{}, err
	}
	return a.mapToChatResult(wire, model)
}

// Probe lists models, which every OpenAI-compatible server exposes.
func (a *OpenAIAdapter) Probe(ctx context.Context) error {
	if a.family == domain.FamilyAzure {
		return a.probe(ctx, a.endpoint("/openai/models", url.Values{"api-version": {a.apiVersion}}))
	}
	return a.probe(ctx, a.endpoint("/models", nil))
}

func (a *OpenAIAdapter) chatURL(model string) string {
	if a.family == domain.FamilyAzure {
		return a.endpoint("/openai/deployments/"+url.PathEscape(model)+"/chat/completions",
			url.Values{"api-version": {a.apiVersion}})
	}
	if strings.HasSuffix(a.baseURL, "/chat/completions") {
		return a.baseURL
	}
	return a.endpoint("/chat/completions", nil)
}

// mapToOpenAIRequest converts the neutral request to the OpenAI wire shape.
func (a *OpenAIAdapter) mapToOpenAIRequest(req domain.ChatRequest, model string) OpenAIRequest {
	temperature := req.Temperature
	out := OpenAIRequest{
		Messages:    make([]OpenAIMessage, 0, len(req.Messages)),
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
	}
	// Azure takes the deployment from the URL.
	if a.family != domain.FamilyAzure {
		out.Model = model
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, OpenAIMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (a *OpenAIAdapter) mapToChatResult(wire openAIWireResponse, model string) (domain.ChatResult, error) {
	if len(wire.Choices) == 0 {
		return domain.ChatResult{}, domain.NewMalformedResponse(a.name, "response has no choices", nil)
	}
	choice := wire.Choices[0]
	if choice.Message == nil || choice.Message.Content == nil {
		return domain.ChatResult{}, domain.NewMalformedResponse(a.name, "response choice has no message content", nil)
	}

	result := domain.ChatResult{
		Content:      *choice.Message.Content,
		ModelUsed:    wire.Model,
		FinishReason: choice.FinishReason,
	}
	if result.ModelUsed == "" {
		result.ModelUsed = model
	}
	if wire.Usage != nil {
		result.Usage = domain.NormalizeUsage(wire.Usage.PromptTokens, wire.Usage.CompletionTokens, wire.Usage.TotalTokens)
	}
	return result, nil
}
