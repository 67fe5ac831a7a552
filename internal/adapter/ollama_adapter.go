package adapter

import (
	"context"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

// DefaultOllamaBaseURL is where a local Ollama server listens by default.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaAdapter implements AIProvider for a local Ollama server.
type OllamaAdapter struct {
	client
}

var _ AIProvider = (*OllamaAdapter)(nil)

// NewOllamaAdapter creates an adapter for FamilyOllama.
func NewOllamaAdapter(cfg domain.ProviderConfig, opts ...Option) *OllamaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	cfg.Family = domain.FamilyOllama
	return &OllamaAdapter{client: newClient(cfg, "Authorization", opts)}
}

// ChatCompletion calls /api/chat with streaming disabled.
func (o *OllamaAdapter) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	if err := o.checkMessages(req); err != nil {
		return domain.ChatResult{}, err
	}

	model := o.mapModelName(req.Model)
	body, err := o.postJSON(ctx, o.endpoint("/api/chat", nil), o.mapToOllamaRequest(req, model))
	if err != nil {
		return domain.ChatResult{}, err
	}

	var resp OllamaChatResponse
	if err := o.decode(body, &resp); err != nil {
		return domain.ChatResult{}, err
	}
	return o.mapToChatResult(resp, model)
}

// Probe asks the server for its version.
func (o *OllamaAdapter) Probe(ctx context.Context) error {
	return o.probe(ctx, o.endpoint("/api/version", nil))
}

func (o *OllamaAdapter) mapToOllamaRequest(req domain.ChatRequest, model string) OllamaChatRequest {
	out := OllamaChatRequest{
		Model:    model,
		Messages: make([]OllamaMessage, 0, len(req.Messages)),
		Stream:   false,
		Options: OllamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, OllamaMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (o *OllamaAdapter) mapToChatResult(resp OllamaChatResponse, model string) (domain.ChatResult, error) {
	if resp.Message == nil || resp.Message.Content == nil {
		return domain.ChatResult{}, domain.NewMalformedResponse(o.name, "response has no message content", nil)
	}

	result := domain.ChatResult{
		Content:      *resp.Message.Content,
		ModelUsed:    resp.Model,
		FinishReason: o.mapFinishReason(resp.DoneReason),
		// Ollama reports prompt and completion counts only.
		Usage: domain.NormalizeUsage(resp.PromptEvalCount, resp.EvalCount, 0),
	}
	if result.ModelUsed == "" {
		result.ModelUsed = model
	}
	return result, nil
}

// mapFinishReason converts Ollama done reasons to OpenAI format.
func (o *OllamaAdapter) mapFinishReason(reason string) string {
	switch reason {
	case "length":
		return "length"
	default:
		return "stop"
	}
}

// ============================================================================
// Ollama API Types
// ============================================================================

// OllamaChatRequest represents an Ollama /api/chat request.
type OllamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  OllamaOptions   `json:"options"`
}

// OllamaMessage is one chat turn.
type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaOptions carries sampling parameters.
type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  *int    `json:"num_predict,omitempty"`
}

// OllamaChatResponse represents a non-streamed /api/chat response.
type OllamaChatResponse struct {
	Model   string `json:"model"`
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
