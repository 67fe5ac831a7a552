// Package security keeps provider credentials out of logs and client-facing
// error bodies.
package security

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// RedactedPlaceholder replaces every masked value.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns contains regex patterns for common credential formats.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI and Anthropic keys: sk-..., sk-proj-..., sk-ant-...
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	// Google AI keys: AIza...
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{30,}`),
	// Bearer tokens in header dumps
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]{20,}`),
	// Keys in query strings: key=..., api-key=...
	regexp.MustCompile(`(?i)(api[-_]?)?key=[a-zA-Z0-9_-]{16,}`),
	// Long opaque strings that look like keys (40+ chars)
	regexp.MustCompile(`[a-zA-Z0-9_-]{40,}`),
}

// Redact replaces substrings matching known credential formats.
func Redact(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// Redactor masks a fixed set of configured secrets verbatim, then applies the
// pattern-based Redact. A nil *Redactor applies patterns only.
type Redactor struct {
	secrets []string
}

// NewRedactor returns a Redactor for secrets. Empty values are ignored.
func NewRedactor(secrets ...string) *Redactor {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	// Longest first so a secret containing another is masked whole.
	sort.Slice(kept, func(i, j int) bool { return len(kept[i]) > len(kept[j]) })
	return &Redactor{secrets: kept}
}

// Redact masks configured secrets and known credential formats in s.
func (r *Redactor) Redact(s string) string {
	if r != nil {
		for _, secret := range r.secrets {
			s = strings.ReplaceAll(s, secret, RedactedPlaceholder)
		}
	}
	return Redact(s)
}

// RedactedHandler wraps an slog.Handler and redacts sensitive data from log records.
type RedactedHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewRedactedHandler creates a handler that wraps inner and masks secrets and
// credential-shaped values in every record.
func NewRedactedHandler(inner slog.Handler, secrets ...string) *RedactedHandler {
	return &RedactedHandler{inner: inner, redactor: NewRedactor(secrets...)}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle processes a log record, redacting sensitive data.
func (h *RedactedHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactor.Redact(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *RedactedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactedHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactedHandler) WithGroup(name string) slog.Handler {
	return &RedactedHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *RedactedHandler) redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(a.Key)) {
		return slog.String(a.Key, RedactedPlaceholder)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.Redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		if ss, ok := v.Any().([]string); ok {
			redacted := make([]string, len(ss))
			for i, s := range ss {
				redacted[i] = h.redactor.Redact(s)
			}
			return slog.Any(a.Key, redacted)
		}
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.redactor.Redact(err.Error()))
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

var sensitiveKeys = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"secret",
	"password",
	"bearer",
	"credential",
}

// isSensitiveKey checks if an attribute key is known to contain sensitive data.
// Token counters such as total_tokens are not sensitive.
func isSensitiveKey(key string) bool {
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return key == "token" || strings.HasSuffix(key, "_token") || strings.HasSuffix(key, "-token")
}
