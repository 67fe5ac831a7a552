// Package gateway routes chat completion and embeddings requests to a
// provider adapter.
//
// The provider set is fixed at construction. The only mutable state is the
// default provider, held in an atomic pointer so readers never block and never
// observe a partial update.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpn/hpn-llm-gateway/internal/adapter"
	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRequestTimeout bounds a single routed call.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultProbeTimeout bounds each liveness probe.
	DefaultProbeTimeout = 5 * time.Second

	// maxConcurrentProbes caps simultaneous probes in Status.
	maxConcurrentProbes = 8
)

// ErrNoProviders is returned by New when no adapter is supplied.
var ErrNoProviders = errors.New("at least one provider is required")

// Outcome labels the terminal state of a routed request.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Observer receives routing events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRoute(provider string, outcome Outcome, kind domain.ErrorKind, duration time.Duration, usage domain.Usage)
	ObserveSwitch(from, to string)
	ObserveProbe(provider string, reachable bool)
}

type nopObserver struct{}

func (nopObserver) ObserveRoute(string, Outcome, domain.ErrorKind, time.Duration, domain.Usage) {}
func (nopObserver) ObserveSwitch(string, string)                                                {}
func (nopObserver) ObserveProbe(string, bool)                                                   {}

// multiObserver fans events out to several observers in order.
type multiObserver []Observer

// Observers combines observers into one. Nil entries are skipped.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) ObserveRoute(provider string, outcome Outcome, kind domain.ErrorKind, d time.Duration, usage domain.Usage) {
	for _, o := range m {
		o.ObserveRoute(provider, outcome, kind, d, usage)
	}
}

func (m multiObserver) ObserveSwitch(from, to string) {
	for _, o := range m {
		o.ObserveSwitch(from, to)
	}
}

func (m multiObserver) ObserveProbe(provider string, reachable bool) {
	for _, o := range m {
		o.ObserveProbe(provider, reachable)
	}
}

// selection is the immutable snapshot behind the default-provider pointer.
type selection struct {
	name     string
	provider adapter.AIProvider
}

// Router selects a provider per request and forwards the call.
type Router struct {
	providers map[string]adapter.AIProvider
	names     []string

	current atomic.Pointer[selection]

	// switchMu serializes writers so the logged old/new pair is exact.
	switchMu sync.Mutex

	requestTimeout time.Duration
	probeTimeout   time.Duration
	logger         *slog.Logger
	observer       Observer
}

// Option is a functional option for configuring Router.
type Option func(*Router)

// WithRequestTimeout sets the per-call timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.requestTimeout = d
		}
	}
}

// WithProbeTimeout sets the per-probe timeout used by Status.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the routing event observer.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		if o != nil {
			r.observer = o
		}
	}
}

// New creates a Router over providers with defaultName as the initial default.
// Provider names must be unique.
func New(providers []adapter.AIProvider, defaultName string, opts ...Option) (*Router, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	r := &Router{
		providers:      make(map[string]adapter.AIProvider, len(providers)),
		requestTimeout: DefaultRequestTimeout,
		probeTimeout:   DefaultProbeTimeout,
		logger:         slog.Default(),
		observer:       nopObserver{},
	}

	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider is nil")
		}
		if _, exists := r.providers[p.Name()]; exists {
			return nil, fmt.Errorf("duplicate provider name %q", p.Name())
		}
		r.providers[p.Name()] = p
		r.names = append(r.names, p.Name())
	}
	sort.Strings(r.names)

	def, ok := r.providers[defaultName]
	if !ok {
		return nil, fmt.Errorf("default provider %q is not configured", defaultName)
	}
	r.current.Store(&selection{name: defaultName, provider: def})

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Route validates req, resolves its provider and delegates the call.
// Adapter errors are returned unchanged; successful results are not modified.
func (r *Router) Route(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	start := time.Now()
	requestID := RequestIDFromContext(ctx)

	if err := req.Validate(); err != nil {
		return domain.ChatResult{}, r.reject(requestID, req.ProviderOverride, start, err)
	}

	name, provider, err := r.resolve(req.ProviderOverride)
	if err != nil {
		return domain.ChatResult{}, r.reject(requestID, req.ProviderOverride, start, err)
	}
	recordRoute(ctx, name)

	r.logger.Debug("dispatching request",
		slog.String("request_id", requestID),
		slog.String("provider", name),
		slog.String("model", req.Model),
		slog.Int("messages", len(req.Messages)),
	)

	callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	result, err := provider.ChatCompletion(callCtx, req)
	if err != nil {
		return domain.ChatResult{}, r.fail(requestID, name, start, err)
	}

	r.succeed(requestID, name, result.ModelUsed, start, result.Usage)
	return result, nil
}

// Embed routes an embeddings request the same way Route routes a chat. A
// provider whose adapter has no embeddings support rejects it as invalid.
func (r *Router) Embed(ctx context.Context, req domain.EmbeddingRequest) (domain.EmbeddingResult, error) {
	start := time.Now()
	requestID := RequestIDFromContext(ctx)

	if err := req.Validate(); err != nil {
		return domain.EmbeddingResult{}, r.reject(requestID, req.ProviderOverride, start, err)
	}

	name, provider, err := r.resolve(req.ProviderOverride)
	if err != nil {
		return domain.EmbeddingResult{}, r.reject(requestID, req.ProviderOverride, start, err)
	}
	recordRoute(ctx, name)

	embedder, ok := provider.(adapter.Embedder)
	if !ok {
		err := &domain.GatewayError{
			Kind:     domain.KindValidation,
			Provider: name,
			Message:  "provider does not serve embeddings",
		}
		return domain.EmbeddingResult{}, r.fail(requestID, name, start, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	result, err := embedder.Embeddings(callCtx, req)
	if err != nil {
		return domain.EmbeddingResult{}, r.fail(requestID, name, start, err)
	}

	r.succeed(requestID, name, result.ModelUsed, start, result.Usage)
	return result, nil
}

func (r *Router) succeed(requestID, provider, model string, start time.Time, usage domain.Usage) {
	duration := time.Since(start)
	r.observer.ObserveRoute(provider, OutcomeSucceeded, "", duration, usage)
	r.logger.Info("request succeeded",
		slog.String("request_id", requestID),
		slog.String("provider", provider),
		slog.String("model", model),
		slog.Int("total_tokens", usage.TotalTokens),
		slog.Duration("latency", duration),
	)
}

// reject records a request that never reached a provider. Observers get an
// empty provider because requested is client input, not a configured name.
func (r *Router) reject(requestID, requested string, start time.Time, err error) error {
	return r.finish(requestID, "", requested, start, err)
}

// fail records a request that failed at a resolved provider.
func (r *Router) fail(requestID, provider string, start time.Time, err error) error {
	if _, ok := domain.AsGatewayError(err); !ok {
		err = domain.NewUpstreamUnavailable(provider, err)
	}
	return r.finish(requestID, provider, provider, start, err)
}

func (r *Router) finish(requestID, observed, logged string, start time.Time, err error) error {
	duration := time.Since(start)
	kind := domain.KindOf(err)

	r.observer.ObserveRoute(observed, OutcomeFailed, kind, duration, domain.Usage{})

	level := slog.LevelWarn
	if kind != domain.KindValidation && kind != domain.KindUnknownProvider {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, "request failed",
		slog.String("request_id", requestID),
		slog.String("provider", logged),
		slog.String("error_kind", string(kind)),
		slog.String("error", err.Error()),
		slog.Duration("latency", duration),
	)

	return err
}

// resolve picks the override when set, else the current default.
func (r *Router) resolve(override string) (string, adapter.AIProvider, error) {
	if override != "" {
		p, ok := r.providers[override]
		if !ok {
			return "", nil, domain.NewUnknownProviderError(override)
		}
		return override, p, nil
	}
	sel := r.current.Load()
	return sel.name, sel.provider, nil
}

// SwitchDefaultProvider makes name the default. It returns false and changes
// nothing when name is not configured.
func (r *Router) SwitchDefaultProvider(name string) bool {
	p, ok := r.providers[name]
	if !ok {
		r.logger.Warn("switch to unknown provider ignored", slog.String("provider", name))
		return false
	}

	r.switchMu.Lock()
	prev := r.current.Swap(&selection{name: name, provider: p})
	r.switchMu.Unlock()

	r.observer.ObserveSwitch(prev.name, name)
	r.logger.Info("default provider switched",
		slog.String("from", prev.name),
		slog.String("to", name),
	)
	return true
}

// DefaultProvider returns the current default provider name.
func (r *Router) DefaultProvider() string {
	return r.current.Load().name
}

// Providers returns the configured provider names in sorted order.
func (r *Router) Providers() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Status probes every provider concurrently. A failed or timed-out probe is
// reported as false; Status itself never fails.
func (r *Router) Status(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(r.names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for _, name := range r.names {
		provider := r.providers[name]
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, r.probeTimeout)
			defer cancel()

			err := provider.Probe(probeCtx)
			reachable := err == nil
			if err != nil {
				r.logger.Debug("provider probe failed",
					slog.String("provider", name),
					slog.String("error", err.Error()),
				)
			}
			r.observer.ObserveProbe(name, reachable)

			mu.Lock()
			results[name] = reachable
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
