package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-llm-gateway/internal/adapter"
	"github.com/hpn/hpn-llm-gateway/internal/catalog"
	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/hpn/hpn-llm-gateway/internal/gateway"
	"github.com/hpn/hpn-llm-gateway/internal/handler"
	"github.com/hpn/hpn-llm-gateway/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
	err  error
}

func (p fakeProvider) Name() string                { return p.name }
func (p fakeProvider) Family() domain.Family       { return domain.FamilyOllama }
func (p fakeProvider) Probe(context.Context) error { return nil }

func (p fakeProvider) ChatCompletion(_ context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	if p.err != nil {
		return domain.ChatResult{}, p.err
	}
	return domain.ChatResult{
		Content:      p.name + " says: " + req.Messages[len(req.Messages)-1].Content,
		ModelUsed:    req.Model,
		FinishReason: "stop",
		Usage:        domain.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}, nil
}

func (p fakeProvider) Embeddings(_ context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error) {
	if p.err != nil {
		return domain.EmbeddingResult{}, p.err
	}
	vectors := make([][]float64, len(req.Input))
	for i, in := range req.Input {
		vectors[i] = []float64{float64(i), float64(len(in))}
	}
	return domain.EmbeddingResult{Embeddings: vectors, ModelUsed: req.Model}, nil
}

func newGateway(t *testing.T, providers ...adapter.AIProvider) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router, err := gateway.New(providers, providers[0].Name(), gateway.WithLogger(logger))
	require.NoError(t, err)

	cat, err := catalog.Default()
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(handler.RequestIDMiddleware())
	handler.RegisterRoutes(engine, handler.NewProxyHandler(router,
		handler.WithLogger(logger),
		handler.WithModels(cat),
		handler.WithVersion("test"),
	), handler.RouteOptions{})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ChatCompletion(t *testing.T) {
	srv := newGateway(t, fakeProvider{name: "local"}, fakeProvider{name: "openai"})
	c := client.New(srv.URL+"/", client.WithTimeout(5*time.Second))

	resp, err := c.ChatCompletion(context.Background(), client.ChatRequest{
		Messages: []client.Message{{Role: "user", Content: "hello"}},
		Provider: "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, "openai says: hello", resp.Content)
	assert.Equal(t, client.DefaultModel, resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, client.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, resp.Usage)
	assert.Equal(t, "openai", resp.Provider)
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.RequestID)
}

func TestClient_Ask(t *testing.T) {
	srv := newGateway(t, fakeProvider{name: "local"})
	c := client.New(srv.URL)

	got, err := c.Ask(context.Background(), "gpt-4", "ping")
	require.NoError(t, err)
	assert.Equal(t, "local says: ping", got)
}

func TestClient_Errors(t *testing.T) {
	srv := newGateway(t, fakeProvider{name: "local", err: domain.NewUpstreamError("local", 429, "slow down")})
	c := client.New(srv.URL)

	_, err := c.Ask(context.Background(), "", "hi")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream_error", apiErr.Type)
	assert.Equal(t, 429, apiErr.UpstreamStatus)
	assert.True(t, client.IsAPIErrorType(err, "upstream_error"))

	_, err = c.ChatCompletion(context.Background(), client.ChatRequest{
		Messages: []client.Message{{Role: "user", Content: "hi"}},
		Provider: "nope",
	})
	assert.True(t, client.IsAPIErrorType(err, "unknown_provider"))
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := client.New(srv.URL).Status(context.Background())

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Type)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestClient_SwitchStatusModels(t *testing.T) {
	srv := newGateway(t, fakeProvider{name: "local"}, fakeProvider{name: "azure"})
	c := client.New(srv.URL)
	ctx := context.Background()

	ok, err := c.SwitchProvider(ctx, "azure")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SwitchProvider(ctx, "gemini")
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "azure", status.DefaultProvider)
	assert.Equal(t, map[string]bool{"local": true, "azure": true}, status.Providers)

	models, err := c.Models(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, models)
	for _, m := range models {
		if m.ID == "gpt-3.5-turbo" {
			assert.Equal(t, []string{"azure", "local"}, m.Providers)
		}
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.New(url).Status(context.Background())
	require.Error(t, err)

	var apiErr *client.APIError
	assert.NotErrorAs(t, err, &apiErr)
}

func TestClient_Embeddings(t *testing.T) {
	srv := newGateway(t, fakeProvider{name: "local"})
	c := client.New(srv.URL)

	vectors, err := c.Embeddings(context.Background(), "", "a", "bcd")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 3}}, vectors)

	_, err = c.Embeddings(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_EmbeddingsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"index":0,"embedding":[1]}]}`)
	}))
	t.Cleanup(srv.Close)

	_, err := client.New(srv.URL).Embeddings(context.Background(), "m", "a", "b")
	assert.ErrorContains(t, err, "1 embeddings for 2 inputs")
}

func TestOffice(t *testing.T) {
	srv := newGateway(t, fakeProvider{name: "local"})
	office := client.NewOffice(client.New(srv.URL))
	ctx := context.Background()

	got, err := office.ImproveText(ctx, "their going too the store")
	require.NoError(t, err)
	assert.Contains(t, got, "Original text: their going too the store")
	assert.Contains(t, got, "Grammar and spelling")

	got, err = office.AnalyzeDocument(ctx, "Q3 revenue grew 12%.")
	require.NoError(t, err)
	assert.Contains(t, got, "Content: Q3 revenue grew 12%.")

	got, err = office.AnalyzeData(ctx, "month,sales\njan,10")
	require.NoError(t, err)
	assert.Contains(t, got, "Data: month,sales")

	got, err = office.DraftEmail(ctx, client.Email{Purpose: "reschedule the review", KeyPoints: "move to Friday"})
	require.NoError(t, err)
	assert.Contains(t, got, "Purpose: reschedule the review")
	assert.Contains(t, got, "Tone: professional")
	assert.Contains(t, got, "Recipient: colleague")
}
