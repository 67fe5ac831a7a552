package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
)

func geminiConfig(baseURL string) domain.ProviderConfig {
	return domain.ProviderConfig{
		Name:       "gemini",
		Family:     domain.FamilyGemini,
		BaseURL:    baseURL,
		AuthMode:   domain.AuthAPIKey,
		Credential: "test-api-key",
	}
}

func TestGeminiAdapter_mapToGeminiRequest(t *testing.T) {
	adapter := NewGeminiAdapter(geminiConfig(""))

	tests := []struct {
		name     string
		input    domain.ChatRequest
		validate func(*testing.T, GeminiRequest)
	}{
		{
			name: "simple user message",
			input: domain.NewChatRequest("gpt-4", []domain.Message{
				{Role: domain.RoleUser, Content: "Hello, world!"},
			}),
			validate: func(t *testing.T, req GeminiRequest) {
				if len(req.Contents) != 1 {
					t.Fatalf("len(Contents) = %d, want 1", len(req.Contents))
				}
				if req.Contents[0].Role != "user" {
					t.Errorf("Contents[0].Role = %s, want user", req.Contents[0].Role)
				}
				if req.Contents[0].Parts[0].Text != "Hello, world!" {
					t.Errorf("Contents[0].Parts[0].Text = %s, want 'Hello, world!'", req.Contents[0].Parts[0].Text)
				}
			},
		},
		{
			name: "assistant role maps to model",
			input: domain.NewChatRequest("gpt-4", []domain.Message{
				{Role: domain.RoleUser, Content: "Hi"},
				{Role: domain.RoleAssistant, Content: "Hello!"},
				{Role: domain.RoleUser, Content: "How are you?"},
			}),
			validate: func(t *testing.T, req GeminiRequest) {
				if len(req.Contents) != 3 {
					t.Fatalf("len(Contents) = %d, want 3", len(req.Contents))
				}
				if req.Contents[1].Role != "model" {
					t.Errorf("Contents[1].Role = %s, want model", req.Contents[1].Role)
				}
			},
		},
		{
			name: "system messages become systemInstruction",
			input: domain.NewChatRequest("gpt-4", []domain.Message{
				{Role: domain.RoleSystem, Content: "You are a helpful assistant."},
				{Role: domain.RoleSystem, Content: "Be brief."},
				{Role: domain.RoleUser, Content: "Hi"},
			}),
			validate: func(t *testing.T, req GeminiRequest) {
				if len(req.Contents) != 1 {
					t.Errorf("len(Contents) = %d, want 1 (system not in contents)", len(req.Contents))
				}
				if req.SystemInstruction == nil {
					t.Fatal("SystemInstruction is nil, expected system messages")
				}
				if len(req.SystemInstruction.Parts) != 2 {
					t.Errorf("len(SystemInstruction.Parts) = %d, want 2", len(req.SystemInstruction.Parts))
				}
			},
		},
		{
			name: "system-only prompt is sent as a user turn",
			input: domain.NewChatRequest("gpt-4", []domain.Message{
				{Role: domain.RoleSystem, Content: "Summarize the quarterly report."},
				{Role: domain.RoleSystem, Content: "Use bullet points."},
			}),
			validate: func(t *testing.T, req GeminiRequest) {
				if len(req.Contents) != 1 {
					t.Fatalf("len(Contents) = %d, want 1", len(req.Contents))
				}
				if req.Contents[0].Role != "user" {
					t.Errorf("Contents[0].Role = %s, want user", req.Contents[0].Role)
				}
				if len(req.Contents[0].Parts) != 2 {
					t.Errorf("len(Contents[0].Parts) = %d, want 2", len(req.Contents[0].Parts))
				}
				if req.SystemInstruction != nil {
					t.Errorf("SystemInstruction = %+v, want nil", req.SystemInstruction)
				}
			},
		},
		{
			name: "generation config mapping",
			input: func() domain.ChatRequest {
				req := domain.NewChatRequest("gpt-4", []domain.Message{{Role: domain.RoleUser, Content: "test"}})
				req.Temperature = 0.8
				req.MaxTokens = ptrInt(100)
				return req
			}(),
			validate: func(t *testing.T, req GeminiRequest) {
				if req.GenerationConfig.Temperature == nil || *req.GenerationConfig.Temperature != 0.8 {
					t.Error("Temperature not mapped correctly")
				}
				if req.GenerationConfig.MaxOutputTokens == nil || *req.GenerationConfig.MaxOutputTokens != 100 {
					t.Error("MaxOutputTokens not mapped correctly")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adapter.mapToGeminiRequest(tt.input)
			tt.validate(t, result)
		})
	}
}

func TestGeminiAdapter_mapToChatResult(t *testing.T) {
	adapter := NewGeminiAdapter(geminiConfig(""))

	geminiResp := GeminiResponse{
		Candidates: []GeminiCandidate{
			{
				Content: GeminiContent{
					Parts: []GeminiPart{{Text: "Hello "}, {Text: "from Gemini!"}},
				},
				FinishReason: "MAX_TOKENS",
			},
		},
		UsageMetadata: &GeminiUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 20,
			TotalTokenCount:      30,
		},
	}

	result, err := adapter.mapToChatResult(geminiResp, "gemini-1.5-flash")
	if err != nil {
		t.Fatalf("mapToChatResult() error = %v", err)
	}
	if result.Content != "Hello from Gemini!" {
		t.Errorf("Content = %q, want 'Hello from Gemini!'", result.Content)
	}
	if result.ModelUsed != "gemini-1.5-flash" {
		t.Errorf("ModelUsed = %q, want gemini-1.5-flash", result.ModelUsed)
	}
	if result.FinishReason != "length" {
		t.Errorf("FinishReason = %q, want length", result.FinishReason)
	}
	if result.Usage.TotalTokens != 30 {
		t.Errorf("Usage.TotalTokens = %d, want 30", result.Usage.TotalTokens)
	}
}

func TestGeminiAdapter_mapToChatResult_Malformed(t *testing.T) {
	adapter := NewGeminiAdapter(geminiConfig(""))

	tests := []struct {
		name string
		resp GeminiResponse
	}{
		{name: "no candidates", resp: GeminiResponse{}},
		{name: "no parts", resp: GeminiResponse{Candidates: []GeminiCandidate{{FinishReason: "STOP"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.mapToChatResult(tt.resp, "gemini-pro")
			if !domain.IsKind(err, domain.KindMalformedResponse) {
				t.Errorf("error = %v, want malformed_response", err)
			}
		})
	}
}

func TestGeminiAdapter_mapFinishReason(t *testing.T) {
	adapter := NewGeminiAdapter(geminiConfig(""))

	tests := []struct {
		input    string
		expected string
	}{
		{"STOP", "stop"},
		{"MAX_TOKENS", "length"},
		{"SAFETY", "content_filter"},
		{"RECITATION", "content_filter"},
		{"OTHER", "stop"},
		{"UNKNOWN_REASON", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := adapter.mapFinishReason(tt.input); got != tt.expected {
				t.Errorf("mapFinishReason(%s) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGeminiAdapter_ChatCompletion_UsesHeaderKeyAndAlias(t *testing.T) {
	var gotPath, gotKey, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "pong"}}},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	adapter := NewGeminiAdapter(geminiConfig(server.URL),
		WithModelAliases(map[string]string{"gpt-4": "gemini-1.5-pro"}))

	result, err := adapter.ChatCompletion(context.Background(), domain.NewChatRequest("gpt-4", []domain.Message{
		{Role: domain.RoleUser, Content: "ping"},
	}))
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if gotPath != "/models/gemini-1.5-pro:generateContent" {
		t.Errorf("path = %s, want /models/gemini-1.5-pro:generateContent", gotPath)
	}
	if gotKey != "test-api-key" {
		t.Errorf("x-goog-api-key = %q, want test-api-key", gotKey)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, key must not travel in the URL", gotQuery)
	}
	if result.Content != "pong" {
		t.Errorf("Content = %q, want pong", result.Content)
	}
	if result.Usage != (domain.Usage{}) {
		t.Errorf("Usage = %+v, want zero value when upstream omits usage", result.Usage)
	}
}

func ptrInt(i int) *int {
	return &i
}
