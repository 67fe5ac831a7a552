// Package metrics exposes gateway routing events as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hpn/hpn-llm-gateway/internal/domain"
	"github.com/hpn/hpn-llm-gateway/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "llm_gateway"

// unresolved labels requests rejected before a provider was chosen.
const unresolved = "unresolved"

// PrometheusRecorder reports routing metrics using Prometheus primitives.
// It implements gateway.Observer.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	tokens      *prometheus.CounterVec
	switches    *prometheus.CounterVec
	providerUp  *prometheus.GaugeVec
	rateLimited prometheus.Counter
}

var _ gateway.Observer = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the gateway collectors on registry.
func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &PrometheusRecorder{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total routed chat completion requests by provider, outcome and error kind",
		}, []string{"provider", "outcome", "kind"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Routed request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by providers, by type",
		}, []string{"provider", "type"}),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_switches_total",
			Help:      "Default provider switches by target provider",
		}, []string{"to"}),
		providerUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_up",
			Help:      "Whether the last liveness probe reached the provider (1) or not (0)",
		}, []string{"provider"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter",
		}),
	}

	collectors := []prometheus.Collector{r.requests, r.durations, r.tokens, r.switches, r.providerUp, r.rateLimited}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveRoute(provider string, outcome gateway.Outcome, kind domain.ErrorKind, duration time.Duration, usage domain.Usage) {
	if provider == "" {
		provider = unresolved
	}

	r.requests.WithLabelValues(provider, string(outcome), string(kind)).Inc()
	r.durations.WithLabelValues(provider).Observe(duration.Seconds())

	if usage.PromptTokens > 0 {
		r.tokens.WithLabelValues(provider, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		r.tokens.WithLabelValues(provider, "completion").Add(float64(usage.CompletionTokens))
	}
}

func (r *PrometheusRecorder) ObserveSwitch(_, to string) {
	r.switches.WithLabelValues(to).Inc()
}

func (r *PrometheusRecorder) ObserveProbe(provider string, reachable bool) {
	v := 0.0
	if reachable {
		v = 1
	}
	r.providerUp.WithLabelValues(provider).Set(v)
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func (r *PrometheusRecorder) ObserveRateLimited() {
	r.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
