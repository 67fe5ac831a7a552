package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/hpn/hpn-llm-gateway/internal/gateway"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prevOut, prevNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() { Output, color.NoColor = prevOut, prevNoColor })

	return &buf
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"/v1/models", 30, "/v1/models"},
		{"/v1/chat/completions?provider=azure", 20, "/v1/chat/completi..."},
	}

	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.max); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
	}
}

func TestPrintRequest(t *testing.T) {
	buf := captureOutput(t)

	PrintRequest("POST", "/v1/chat/completions", 200, 42*time.Millisecond, "local")

	out := buf.String()
	for _, want := range []string{" POST ", "/v1/chat/completions", " 200 ", "42ms", "via:local"} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintRequest output %q missing %q", out, want)
		}
	}
}

func TestPrintStartupInfo(t *testing.T) {
	buf := captureOutput(t)

	PrintStartupInfo("127.0.0.1:8000", []ProviderInfo{
		{Name: "openai", Family: domain.FamilyOpenAI, BaseURL: "https://api.openai.com/v1"},
		{Name: "local", Family: domain.FamilyOllama, BaseURL: "http://localhost:11434"},
	}, "local")

	out := buf.String()
	if !strings.Contains(out, "http://127.0.0.1:8000") {
		t.Errorf("missing listen address: %s", out)
	}
	if strings.Index(out, "• local") > strings.Index(out, "• openai") {
		t.Errorf("providers must be sorted by name: %s", out)
	}
	if !strings.Contains(out, "★ default") {
		t.Errorf("default provider not marked: %s", out)
	}
	if !strings.Contains(out, "/v1/provider/switch") {
		t.Errorf("endpoint table incomplete: %s", out)
	}
}

func TestConsoleObserver(t *testing.T) {
	buf := captureOutput(t)
	var obs ConsoleObserver

	obs.ObserveRoute("local", gateway.OutcomeSucceeded, "", 10*time.Millisecond,
		domain.Usage{PromptTokens: 26, CompletionTokens: 5, TotalTokens: 31})
	obs.ObserveRoute("azure", gateway.OutcomeFailed, domain.KindUpstreamUnavailable, time.Second, domain.Usage{})
	obs.ObserveRoute("", gateway.OutcomeFailed, domain.KindValidation, 0, domain.Usage{})
	obs.ObserveSwitch("local", "openai")

	out := buf.String()
	for _, want := range []string{"31 tokens", "UPSTREAM", "azure upstream_unavailable", "[SWITCHING] local → openai"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "validation_error") {
		t.Errorf("client errors must not be printed as upstream failures: %s", out)
	}
}

func TestPrintBanner(t *testing.T) {
	buf := captureOutput(t)

	PrintBanner("v1.2.3")

	if !strings.Contains(buf.String(), "v1.2.3") {
		t.Errorf("banner missing version: %s", buf.String())
	}
}

func TestPrintStartupBanner(t *testing.T) {
	tests := []struct {
		name     string
		columns  int
		wantMini bool
	}{
		{name: "unknown width", columns: 0, wantMini: false},
		{name: "wide terminal", columns: 200, wantMini: false},
		{name: "exact fit", columns: bannerWidth + 2, wantMini: false},
		{name: "narrow terminal", columns: 80, wantMini: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOutput(t)

			PrintStartupBanner("v1.2.3", tt.columns)

			out := buf.String()
			if !strings.Contains(out, "v1.2.3") {
				t.Errorf("banner missing version: %s", out)
			}
			if gotMini := strings.Contains(out, "HPN GATEWAY"); gotMini != tt.wantMini {
				t.Errorf("mini banner = %v, want %v: %s", gotMini, tt.wantMini, out)
			}
		})
	}
}

func TestPrintGatewayInfo(t *testing.T) {
	buf := captureOutput(t)

	PrintGatewayInfo("metrics exposed at /metrics")

	if got, want := buf.String(), "[GATEWAY] metrics exposed at /metrics\n"; got != want {
		t.Errorf("PrintGatewayInfo() = %q, want %q", got, want)
	}
}
