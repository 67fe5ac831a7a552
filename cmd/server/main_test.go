package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-llm-gateway/internal/adapter"
	"github.com/hpn/hpn-llm-gateway/internal/config"
	"github.com/hpn/hpn-llm-gateway/internal/handler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpenAIKey = "sk-test-0123456789abcdefghijklmnop"

// upstreamRecorder remembers what the mock providers received.
type upstreamRecorder struct {
	mu     sync.Mutex
	models []string
	auth   []string
}

func (r *upstreamRecorder) record(model, auth string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, model)
	r.auth = append(r.auth, auth)
}

func (r *upstreamRecorder) last() (model, auth string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.models) == 0 {
		return "", ""
	}
	return r.models[len(r.models)-1], r.auth[len(r.auth)-1]
}

// setupMockOllama creates a mock Ollama server.
func setupMockOllama(t *testing.T, rec *upstreamRecorder) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"version":"0.1.32"}`)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		rec.record(req.Model, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"message":           map[string]string{"role": "assistant", "content": "echo"},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 26,
			"eval_count":        5,
		})
	})

	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		rec.record(req.Model, r.Header.Get("Authorization"))

		embeddings := make([][]float64, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float64{0.1, 0.2, 0.3}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"embeddings":        embeddings,
			"prompt_eval_count": 4,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setupMockOpenAI creates a mock OpenAI-compatible server. A prompt of
// "fail" makes it answer 401 with the caller's key echoed in the body.
func setupMockOpenAI(t *testing.T, rec *upstreamRecorder) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"object":"list","data":[]}`)
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req adapter.OpenAIRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		rec.record(req.Model, r.Header.Get("Authorization"))

		if len(req.Messages) > 0 && req.Messages[0].Content == "fail" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided: `+testOpenAIKey+`"}}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-upstream",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": "from openai"}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setupGateway loads configuration from the environment and wires the app
// exactly as main does.
func setupGateway(t *testing.T, env map[string]string) (*app, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	for _, key := range []string{
		config.EnvAzureEndpoint, config.EnvAzureKey, config.EnvGeminiKey,
		"GATEWAY_PORT", "LLM_PROVIDER", "HPN_GATEWAY_GATEWAY_DEFAULT_PROVIDER",
		"HPN_GATEWAY_RATE_LIMIT_REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.GetConfig()
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := newLogger(cfg.Logging, &logs, cfg.Secrets())

	application, err := buildApp(cfg, logger, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	return application, &logs
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEndToEndFlow(t *testing.T) {
	ollamaRec, openaiRec := &upstreamRecorder{}, &upstreamRecorder{}
	ollama := setupMockOllama(t, ollamaRec)
	openai := setupMockOpenAI(t, openaiRec)

	application, logs := setupGateway(t, map[string]string{
		config.EnvLocalURL:      ollama.URL,
		config.EnvOpenAIKey:     testOpenAIKey,
		config.EnvOpenAIBaseURL: openai.URL,
	})
	h := application.engine

	t.Run("default provider with model alias", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/v1/chat/completions",
			`{"model":"gpt-3.5-turbo","messages":[{"role":"user","content":"hi"}]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp adapter.OpenAIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Choices, 1)
		assert.Equal(t, "echo", resp.Choices[0].Message.Content)
		assert.Equal(t, 31, resp.Usage.TotalTokens)

		model, auth := ollamaRec.last()
		assert.Equal(t, "llama2", model)
		assert.Empty(t, auth)
	})

	t.Run("per-request override", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/v1/chat/completions",
			`{"model":"gpt-4","provider":"openai","messages":[{"role":"user","content":"hi"}]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "from openai")

		model, auth := openaiRec.last()
		assert.Equal(t, "gpt-4", model)
		assert.Equal(t, "Bearer "+testOpenAIKey, auth)
		assert.Equal(t, "local", application.router.DefaultProvider())
	})

	t.Run("embeddings through the catalog alias", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/v1/embeddings",
			`{"model":"text-embedding-ada-002","input":["one","two"]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp handler.EmbeddingsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, resp.Data[1].Embedding)
		assert.Equal(t, 4, resp.Usage.PromptTokens)

		model, _ := ollamaRec.last()
		assert.Equal(t, "nomic-embed-text", model)
	})

	t.Run("unknown provider overrides", func(t *testing.T) {
		for _, name := range []string{"bogus-1", "bogus-2", "bogus-3"} {
			rec := doJSON(t, h, http.MethodPost, "/v1/chat/completions",
				`{"provider":"`+name+`","messages":[{"role":"user","content":"hi"}]}`)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("switch default", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/v1/provider/switch", `{"provider":"openai"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"provider":"openai"}`, rec.Body.String())

		rec = doJSON(t, h, http.MethodPost, "/chat/completions",
			`{"messages":[{"role":"user","content":"hi"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "from openai")
	})

	t.Run("upstream error never leaks the credential", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/v1/chat/completions",
			`{"provider":"openai","messages":[{"role":"user","content":"fail"}]}`)
		require.Equal(t, http.StatusBadGateway, rec.Code)

		var body adapter.OpenAIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "upstream_error", body.Error.Type)
		assert.Equal(t, http.StatusUnauthorized, body.Error.UpstreamStatus)
		assert.NotContains(t, rec.Body.String(), testOpenAIKey)
	})

	t.Run("status", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var status handler.StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "openai", status.DefaultProvider)
		assert.Equal(t, map[string]bool{"local": true, "openai": true}, status.Providers)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `llm_gateway_requests_total{kind="",outcome="succeeded",provider="local"} 2`)
		assert.Contains(t, body, `llm_gateway_requests_total{kind="unknown_provider",outcome="failed",provider="unresolved"} 3`)
		assert.NotContains(t, body, "bogus-")
		assert.Contains(t, body, `llm_gateway_requests_total{kind="upstream_error",outcome="failed",provider="openai"} 1`)
		assert.Contains(t, body, `llm_gateway_provider_switches_total{to="openai"} 1`)
		assert.Contains(t, body, `llm_gateway_provider_up{provider="local"} 1`)
	})

	assert.NotContains(t, logs.String(), testOpenAIKey)
	assert.Contains(t, logs.String(), "request completed")
}

func TestEndToEndFlow_RateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	ollama := setupMockOllama(t, &upstreamRecorder{})

	application, _ := setupGateway(t, map[string]string{
		config.EnvLocalURL:                          ollama.URL,
		config.EnvOpenAIKey:                         "",
		"HPN_GATEWAY_RATE_LIMIT_REDIS_ADDR":         mr.Addr(),
		"HPN_GATEWAY_RATE_LIMIT_REQUESTS_PER_MINUTE": "1",
	})
	h := application.engine

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	first := doJSON(t, h, http.MethodPost, "/v1/chat/completions", body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := doJSON(t, h, http.MethodPost, "/v1/chat/completions", body)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "rate_limit_error")
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestBuildApp_UnknownDefault(t *testing.T) {
	t.Setenv("HPN_GATEWAY_GATEWAY_DEFAULT_PROVIDER", "local")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.GetConfig()
	require.NoError(t, err)

	cfg.Gateway.DefaultProvider = "missing"
	_, err = buildApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.ErrorContains(t, err, "missing")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf, []string{"plain-secret-value"})

	logger.Info("dropped")
	logger.Warn("upstream said", slog.String("detail", "bad key plain-secret-value"))

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.NotContains(t, out, "plain-secret-value")
	assert.Contains(t, out, "[REDACTED]")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
}

func TestStartupNotes(t *testing.T) {
	cfg := &config.Configuration{}
	assert.Empty(t, startupNotes(cfg))

	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.RateLimit.RedisAddr = "localhost:6379"
	cfg.RateLimit.RequestsPerMinute = 60
	cfg.CORS.AllowedOrigins = []string{"https://*.example.com"}
	cfg.Gateway.CatalogPath = "/etc/gateway/catalog.yaml"

	assert.Equal(t, []string{
		"Prometheus metrics at /metrics",
		"Rate limit 60 req/min per client (redis localhost:6379)",
		"CORS origins: https://*.example.com",
		"Model catalog from /etc/gateway/catalog.yaml",
	}, startupNotes(cfg))
}

func TestTerminalColumns_FallsBackToEnv(t *testing.T) {
	t.Setenv("COLUMNS", "72")
	assert.Positive(t, terminalColumns())

	t.Setenv("COLUMNS", "")
	assert.GreaterOrEqual(t, terminalColumns(), 0)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
