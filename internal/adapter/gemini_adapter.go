package adapter

import (
	"context"
	"net/url"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

// DefaultGeminiBaseURL is the default Gemini API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAdapter implements AIProvider for Google Gemini API.
// It translates neutral requests to Gemini format and vice versa.
type GeminiAdapter struct {
	client
}

var _ AIProvider = (*GeminiAdapter)(nil)

// NewGeminiAdapter creates an adapter for FamilyGemini. The key travels in the
// x-goog-api-key header so it never appears in URLs or logs.
func NewGeminiAdapter(cfg domain.ProviderConfig, opts ...Option) *GeminiAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	cfg.Family = domain.FamilyGemini
	return &GeminiAdapter{client: newClient(cfg, "x-goog-api-key", opts)}
}

// ChatCompletion performs a chat completion request using Gemini API.
func (g *GeminiAdapter) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	if err := g.checkMessages(req); err != nil {
		return domain.ChatResult{}, err
	}

	model := g.mapModelName(req.Model)
	endpointURL := g.endpoint("/models/"+url.PathEscape(model)+":generateContent", nil)

	body, err := g.postJSON(ctx, endpointURL, g.mapToGeminiRequest(req))
	if err != nil {
		return domain.ChatResult{}, err
	}

	var geminiResp GeminiResponse
	if err := g.decode(body, &geminiResp); err != nil {
		return domain.ChatResult{}, err
	}
	return g.mapToChatResult(geminiResp, model)
}

// Probe lists models.
func (g *GeminiAdapter) Probe(ctx context.Context) error {
	return g.probe(ctx, g.endpoint("/models", nil))
}

// mapToGeminiRequest converts a neutral request to Gemini format.
func (g *GeminiAdapter) mapToGeminiRequest(req domain.ChatRequest) GeminiRequest {
	temperature := req.Temperature
	geminiReq := GeminiRequest{
		Contents: make([]GeminiContent, 0, len(req.Messages)),
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	var systemParts []GeminiPart
	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			// Gemini has no system role; every system message joins systemInstruction.
			systemParts = append(systemParts, GeminiPart{Text: msg.Content})
		case domain.RoleUser:
			geminiReq.Contents = append(geminiReq.Contents, GeminiContent{
				Role:  "user",
				Parts: []GeminiPart{{Text: msg.Content}},
			})
		case domain.RoleAssistant:
			geminiReq.Contents = append(geminiReq.Contents, GeminiContent{
				Role:  "model",
				Parts: []GeminiPart{{Text: msg.Content}},
			})
		}
	}

	switch {
	case len(systemParts) > 0 && len(geminiReq.Contents) == 0:
		// contents may not be empty, so a system-only prompt becomes the user turn.
		geminiReq.Contents = append(geminiReq.Contents, GeminiContent{Role: "user", Parts: systemParts})
	case len(systemParts) > 0:
		geminiReq.SystemInstruction = &GeminiContent{Parts: systemParts}
	}

	return geminiReq
}

// mapToChatResult converts the first Gemini candidate to a ChatResult.
func (g *GeminiAdapter) mapToChatResult(resp GeminiResponse, model string) (domain.ChatResult, error) {
	if len(resp.Candidates) == 0 {
		return domain.ChatResult{}, domain.NewMalformedResponse(g.name, "response has no candidates", nil)
	}
	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return domain.ChatResult{}, domain.NewMalformedResponse(g.name, "candidate has no content parts", nil)
	}

	var content string
	for _, part := range candidate.Content.Parts {
		content += part.Text
	}

	result := domain.ChatResult{
		Content:      content,
		ModelUsed:    resp.ModelVersion,
		FinishReason: g.mapFinishReason(candidate.FinishReason),
	}
	if result.ModelUsed == "" {
		result.ModelUsed = model
	}
	if resp.UsageMetadata != nil {
		result.Usage = domain.NormalizeUsage(
			resp.UsageMetadata.PromptTokenCount,
			resp.UsageMetadata.CandidatesTokenCount,
			resp.UsageMetadata.TotalTokenCount,
		)
	}
	return result, nil
}

// mapFinishReason converts Gemini finish reasons to OpenAI format.
func (g *GeminiAdapter) mapFinishReason(reason string) string {
	switch reason {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return "stop"
	}
}

// ============================================================================
// Gemini API Types
// ============================================================================

// GeminiRequest represents a Gemini generateContent request.
type GeminiRequest struct {
	Contents          []GeminiContent        `json:"contents"`
	SystemInstruction *GeminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  GeminiGenerationConfig `json:"generationConfig"`
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of a content block.
type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

// GeminiGenerationConfig contains generation parameters.
type GeminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse represents a Gemini generateContent response.
type GeminiResponse struct {
	Candidates    []GeminiCandidate    `json:"candidates"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
}

// GeminiCandidate represents a single generated candidate.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

// GeminiUsageMetadata contains token usage information.
type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
