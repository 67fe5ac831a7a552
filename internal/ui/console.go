// Package ui provides cyberpunk-styled console output for the HPN LLM Gateway.
// It creates a visually impressive terminal experience with colorized logs,
// status badges, and ASCII art.
package ui

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/hpn/hpn-llm-gateway/internal/gateway"
	"github.com/mattn/go-runewidth"
)

// Output is where all console output goes. Tests swap it for a buffer.
var Output io.Writer = color.Output

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS - Cyberpunk Theme
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	// Special colors
	neonBlue = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST   = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET    = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
	methodPUT    = color.New(color.BgHiYellow, color.FgBlack, color.Bold)
	methodDELETE = color.New(color.BgHiRed, color.FgBlack, color.Bold)
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS BADGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintSwitching logs a default provider switch with warning styling.
// Format: ⚠️ [SWITCHING] local → openai
func PrintSwitching(from, to string) {
	fmt.Fprint(Output, "⚠️  ")
	warningBadge.Fprint(Output, "[SWITCHING]")
	fmt.Fprint(Output, " ")
	mutedText.Fprint(Output, from)
	warningText.Fprint(Output, " → ")
	accentText.Fprintln(Output, to)
}

// PrintProviderFailure logs a failed upstream call.
// Format: 💀 [UPSTREAM] azure upstream_unavailable
func PrintProviderFailure(provider string, kind domain.ErrorKind) {
	fmt.Fprint(Output, "💀 ")
	errorBadge.Fprint(Output, " UPSTREAM ")
	fmt.Fprint(Output, " ")
	errorText.Fprint(Output, provider)
	mutedText.Fprintf(Output, " %s\n", kind)
}

// PrintTokens logs token usage for a completed request.
// Format: ⚡ local | 26 prompt + 5 completion = 31 tokens | 812ms
func PrintTokens(provider string, usage domain.Usage, latency time.Duration) {
	neonBlue.Fprint(Output, "⚡ ")
	fmt.Fprintf(Output, "%s | ", provider)
	mutedText.Fprintf(Output, "%d prompt + %d completion = ", usage.PromptTokens, usage.CompletionTokens)
	successText.Fprintf(Output, "%d tokens", usage.TotalTokens)
	fmt.Fprint(Output, " | ")
	printLatency(latency)
	fmt.Fprintln(Output)
}

// PrintGatewayInfo logs general gateway information.
// Format: [GATEWAY] message
func PrintGatewayInfo(msg string) {
	infoBadge.Fprint(Output, "[GATEWAY]")
	fmt.Fprint(Output, " ")
	infoText.Fprintln(Output, msg)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// PrintRequest logs a request with styled output.
// Color-codes status, method, and latency for quick visual parsing.
func PrintRequest(method, path string, status int, latency time.Duration, provider string) {
	// Timestamp
	mutedText.Fprintf(Output, "%s ", time.Now().Format("15:04:05"))

	// Method badge
	printMethodBadge(method)
	fmt.Fprint(Output, " ")

	// Path
	fmt.Fprintf(Output, "%-30s ", truncatePath(path, 30))

	// Status badge
	printStatusBadge(status)
	fmt.Fprint(Output, " ")

	// Latency with color gradient
	printLatency(latency)
	fmt.Fprint(Output, " ")

	if provider != "" {
		mutedText.Fprintf(Output, "via:%s", provider)
	}

	fmt.Fprintln(Output)
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Fprintf(Output, " %s ", method)
	case "GET":
		methodGET.Fprintf(Output, " %s ", method)
	case "PUT":
		methodPUT.Fprintf(Output, " %s ", method)
	case "DELETE":
		methodDELETE.Fprintf(Output, " %s ", method)
	default:
		debugBadge.Fprintf(Output, " %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Fprintf(Output, " %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Fprintf(Output, " %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Fprintf(Output, " %d ", status)
	default:
		errorBadge.Fprintf(Output, " %d ", status)
	}
}

// printLatency prints latency with color gradient.
// Green: < 500ms, Yellow: < 3s, Red: >= 3s
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%5dms", ms)

	switch {
	case ms < 500:
		successText.Fprint(Output, latencyStr)
	case ms < 3000:
		warningText.Fprint(Output, latencyStr)
	default:
		errorText.Fprint(Output, latencyStr)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// truncatePath truncates a path to maxLen display columns.
func truncatePath(path string, maxLen int) string {
	return runewidth.Truncate(path, maxLen, "...")
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// ProviderInfo is one row of the startup provider table.
type ProviderInfo struct {
	Name    string
	Family  domain.Family
	BaseURL string
}

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(addr string, providers []ProviderInfo, defaultProvider string) {
	fmt.Fprintln(Output)
	infoBadge.Fprint(Output, "[GATEWAY]")
	fmt.Fprint(Output, " Server starting on ")
	neonBlue.Fprintf(Output, "http://%s\n", addr)

	infoBadge.Fprint(Output, "[GATEWAY]")
	fmt.Fprint(Output, " Providers: ")
	if len(providers) > 0 {
		successText.Fprintf(Output, "%d", len(providers))
	} else {
		errorText.Fprint(Output, "0")
	}
	fmt.Fprint(Output, " | Default: ")
	accentText.Fprintln(Output, defaultProvider)

	fmt.Fprintln(Output)
	printProviders(providers, defaultProvider)
	printEndpoints()
}

// printProviders prints the configured providers as a table.
func printProviders(providers []ProviderInfo, defaultProvider string) {
	sorted := make([]ProviderInfo, len(providers))
	copy(sorted, providers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, p := range sorted {
		mutedText.Fprint(Output, "  • ")
		fmt.Fprint(Output, runewidth.FillRight(p.Name, 12))
		infoText.Fprint(Output, runewidth.FillRight(string(p.Family), 8))
		mutedText.Fprint(Output, p.BaseURL)
		if p.Name == defaultProvider {
			accentText.Fprint(Output, "  ★ default")
		}
		fmt.Fprintln(Output)
	}
	fmt.Fprintln(Output)
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	rows := []struct {
		method, path, desc string
	}{
		{"POST", "/v1/chat/completions", "Chat completion (OpenAI-compatible)"},
		{"POST", "/v1/embeddings", "Text embeddings (OpenAI-compatible)"},
		{"POST", "/v1/provider/switch", "Switch default provider"},
		{"GET", "/v1/models", "List catalog models"},
		{"GET", "/", "Health and provider status"},
	}

	mutedText.Fprintln(Output, "  ┌──────────────────────────────────────────────────────────────────┐")
	for _, r := range rows {
		mutedText.Fprint(Output, "  │ ")
		printMethodBadge(r.method)
		fmt.Fprintf(Output, "%s %-22s ", runewidth.FillRight("", 4-len(r.method)), r.path)
		mutedText.Fprint(Output, runewidth.FillRight(r.desc, 35))
		mutedText.Fprintln(Output, " │")
	}
	mutedText.Fprintln(Output, "  └──────────────────────────────────────────────────────────────────┘")
	fmt.Fprintln(Output)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Fprintln(Output)
	warningBadge.Fprint(Output, "[SHUTDOWN]")
	warningText.Fprintln(Output, " Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Fprint(Output, " OK ")
	fmt.Fprint(Output, " ")
	successText.Fprintln(Output, "Gateway stopped. Goodbye! 👋")
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// ConsoleObserver prints routing events to the console.
type ConsoleObserver struct{}

var _ gateway.Observer = ConsoleObserver{}

func (ConsoleObserver) ObserveRoute(provider string, outcome gateway.Outcome, kind domain.ErrorKind, d time.Duration, usage domain.Usage) {
	if outcome == gateway.OutcomeSucceeded {
		PrintTokens(provider, usage, d)
		return
	}
	if kind != domain.KindValidation && kind != domain.KindUnknownProvider {
		PrintProviderFailure(provider, kind)
	}
}

func (ConsoleObserver) ObserveSwitch(from, to string) {
	PrintSwitching(from, to)
}

func (ConsoleObserver) ObserveProbe(string, bool) {}
