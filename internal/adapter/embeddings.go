package adapter

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

var (
	_ Embedder = (*OpenAIAdapter)(nil)
	_ Embedder = (*OllamaAdapter)(nil)
	_ Embedder = (*GeminiAdapter)(nil)
)

// Embeddings calls /embeddings, or the deployment's embeddings route on azure.
func (a *OpenAIAdapter) Embeddings(ctx context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error) {
	if err := a.checkInput(req); err != nil {
		return domain.EmbeddingResult{}, err
	}

	model := a.mapModelName(req.Model)
	wireReq := OpenAIEmbeddingRequest{Input: req.Input}
	if a.family != domain.FamilyAzure {
		wireReq.Model = model
	}

	body, err := a.postJSON(ctx, a.embeddingsURL(model), wireReq)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	var wire OpenAIEmbeddingResponse
	if err := a.decode(body, &wire); err != nil {
		return domain.EmbeddingResult{}, err
	}

	sort.SliceStable(wire.Data, func(i, j int) bool { return wire.Data[i].Index < wire.Data[j].Index })
	vectors := make([][]float64, 0, len(wire.Data))
	for _, d := range wire.Data {
		vectors = append(vectors, d.Embedding)
	}

	if err := a.checkVectors(req, vectors); err != nil {
		return domain.EmbeddingResult{}, err
	}

	result := domain.EmbeddingResult{Embeddings: vectors, ModelUsed: wire.Model}
	if result.ModelUsed == "" {
		result.ModelUsed = model
	}
	if wire.Usage != nil {
		result.Usage = domain.NormalizeUsage(wire.Usage.PromptTokens, 0, wire.Usage.TotalTokens)
	}
	return result, nil
}

func (a *OpenAIAdapter) embeddingsURL(model string) string {
	if a.family == domain.FamilyAzure {
		return a.endpoint("/openai/deployments/"+url.PathEscape(model)+"/embeddings",
			url.Values{"api-version": {a.apiVersion}})
	}
	return strings.TrimSuffix(a.baseURL, "/chat/completions") + "/embeddings"
}

// Embeddings calls /api/embed, which accepts a batch of inputs.
func (o *OllamaAdapter) Embeddings(ctx context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error) {
	if err := o.checkInput(req); err != nil {
		return domain.EmbeddingResult{}, err
	}

	model := o.mapModelName(req.Model)
	body, err := o.postJSON(ctx, o.endpoint("/api/embed", nil), OllamaEmbedRequest{Model: model, Input: req.Input})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	var resp OllamaEmbedResponse
	if err := o.decode(body, &resp); err != nil {
		return domain.EmbeddingResult{}, err
	}

	if err := o.checkVectors(req, resp.Embeddings); err != nil {
		return domain.EmbeddingResult{}, err
	}

	result := domain.EmbeddingResult{
		Embeddings: resp.Embeddings,
		ModelUsed:  resp.Model,
		Usage:      domain.NormalizeUsage(resp.PromptEvalCount, 0, 0),
	}
	if result.ModelUsed == "" {
		result.ModelUsed = model
	}
	return result, nil
}

// Embeddings calls :batchEmbedContents with one request per input.
func (g *GeminiAdapter) Embeddings(ctx context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error) {
	if err := g.checkInput(req); err != nil {
		return domain.EmbeddingResult{}, err
	}

	model := g.mapModelName(req.Model)
	wireReq := GeminiBatchEmbedRequest{Requests: make([]GeminiEmbedRequest, 0, len(req.Input))}
	for _, text := range req.Input {
		wireReq.Requests = append(wireReq.Requests, GeminiEmbedRequest{
			Model:   "models/" + model,
			Content: GeminiContent{Parts: []GeminiPart{{Text: text}}},
		})
	}

	endpointURL := g.endpoint("/models/"+url.PathEscape(model)+":batchEmbedContents", nil)
	body, err := g.postJSON(ctx, endpointURL, wireReq)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	var resp GeminiBatchEmbedResponse
	if err := g.decode(body, &resp); err != nil {
		return domain.EmbeddingResult{}, err
	}

	vectors := make([][]float64, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		vectors = append(vectors, e.Values)
	}
	if err := g.checkVectors(req, vectors); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embeddings: vectors, ModelUsed: model}, nil
}

func (c *client) checkInput(req domain.EmbeddingRequest) error {
	if len(req.Input) == 0 {
		return &domain.GatewayError{
			Kind:     domain.KindValidation,
			Provider: c.name,
			Message:  "input must not be empty",
		}
	}
	return nil
}

// checkVectors requires one non-empty vector per input.
func (c *client) checkVectors(req domain.EmbeddingRequest, vectors [][]float64) error {
	if len(vectors) != len(req.Input) {
		return domain.NewMalformedResponse(c.name,
			fmt.Sprintf("response has %d embeddings for %d inputs", len(vectors), len(req.Input)), nil)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return domain.NewMalformedResponse(c.name, fmt.Sprintf("embedding %d is empty", i), nil)
		}
	}
	return nil
}

// OpenAIEmbeddingRequest is the /embeddings request body.
type OpenAIEmbeddingRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

// OpenAIEmbeddingResponse is the /embeddings response body.
type OpenAIEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage *struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// OllamaEmbedRequest is the /api/embed request body.
type OllamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// OllamaEmbedResponse is the /api/embed response body.
type OllamaEmbedResponse struct {
	Model           string      `json:"model"`
	Embeddings      [][]float64 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// GeminiBatchEmbedRequest is the batchEmbedContents request body.
type GeminiBatchEmbedRequest struct {
	Requests []GeminiEmbedRequest `json:"requests"`
}

// GeminiEmbedRequest embeds one piece of content.
type GeminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content GeminiContent `json:"content"`
}

// GeminiBatchEmbedResponse is the batchEmbedContents response body.
type GeminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}
