package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-llm-gateway/internal/adapter"
	"github.com/hpn/hpn-llm-gateway/internal/catalog"
	"github.com/hpn/hpn-llm-gateway/internal/config"
	"github.com/hpn/hpn-llm-gateway/internal/gateway"
	"github.com/hpn/hpn-llm-gateway/internal/handler"
	"github.com/hpn/hpn-llm-gateway/internal/metrics"
	"github.com/hpn/hpn-llm-gateway/internal/ratelimit"
	"github.com/hpn/hpn-llm-gateway/internal/security"
	"github.com/hpn/hpn-llm-gateway/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// app is the fully wired gateway, ready to be served.
type app struct {
	engine    *gin.Engine
	router    *gateway.Router
	providers []ui.ProviderInfo
	redis     *redis.Client
}

// Close releases the Redis connection pool, if any.
func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// newLogger creates a structured logger that masks every configured secret.
func newLogger(cfg config.LoggingConfig, w io.Writer, secrets []string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(security.NewRedactedHandler(inner, secrets...))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildApp wires configuration into adapters, the router and the HTTP stack.
// registry may be nil when metrics are disabled.
func buildApp(cfg *config.Configuration, logger *slog.Logger, registry *prometheus.Registry) (*app, error) {
	// Model catalog
	cat, err := loadCatalog(cfg.Gateway.CatalogPath)
	if err != nil {
		return nil, err
	}

	// Provider adapters
	providers := make([]adapter.AIProvider, 0, len(cfg.Providers))
	infos := make([]ui.ProviderInfo, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := adapter.Build(pc,
			adapter.WithTimeout(cfg.Gateway.RequestTimeout()),
			adapter.WithModelAliases(cat.Aliases(pc.Name)),
		)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		providers = append(providers, p)
		infos = append(infos, ui.ProviderInfo{Name: pc.Name, Family: pc.Family, BaseURL: pc.BaseURL})
	}

	// Observers
	var observers []gateway.Observer
	var recorder *metrics.PrometheusRecorder
	if cfg.Metrics.Enabled && registry != nil {
		recorder, err = metrics.NewPrometheusRecorder(registry)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		observers = append(observers, recorder)
	}
	if cfg.Logging.Console {
		observers = append(observers, ui.ConsoleObserver{})
	}

	// Router
	router, err := gateway.New(providers, cfg.Gateway.DefaultProvider,
		gateway.WithRequestTimeout(cfg.Gateway.RequestTimeout()),
		gateway.WithProbeTimeout(cfg.Gateway.ProbeTimeout()),
		gateway.WithLogger(logger),
		gateway.WithObserver(gateway.Observers(observers...)),
	)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	a := &app{router: router, providers: infos}

	// HTTP stack
	engine := gin.New()
	engine.Use(handler.RequestIDMiddleware())
	engine.Use(handler.RecoveryMiddleware(logger))
	engine.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins))
	engine.Use(handler.LoggingMiddleware(logger))
	if cfg.Logging.Console {
		engine.Use(handler.ConsoleMiddleware())
	}

	if cfg.RateLimit.Enabled() {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		limiter := ratelimit.NewLimiter(a.redis, int64(cfg.RateLimit.RequestsPerMinute), time.Minute)

		var onReject func()
		if recorder != nil {
			onReject = recorder.ObserveRateLimited
		}
		engine.Use(handler.RateLimitMiddleware(limiter, logger, onReject))

		logger.Info("rate limiting enabled",
			slog.String("redis_addr", cfg.RateLimit.RedisAddr),
			slog.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute),
		)
	}

	proxyHandler := handler.NewProxyHandler(router,
		handler.WithLogger(logger),
		handler.WithRedactor(security.NewRedactor(cfg.Secrets()...)),
		handler.WithModels(cat),
		handler.WithVersion(version),
	)

	routeOpts := handler.RouteOptions{}
	if recorder != nil {
		routeOpts.MetricsPath = cfg.Metrics.Path
		routeOpts.MetricsHandler = recorder.Handler()
	}
	handler.RegisterRoutes(engine, proxyHandler, routeOpts)

	a.engine = engine
	return a, nil
}

// startupNotes lists the optional features cfg turns on, one console line each.
func startupNotes(cfg *config.Configuration) []string {
	var notes []string
	if cfg.Metrics.Enabled {
		notes = append(notes, "Prometheus metrics at "+cfg.Metrics.Path)
	}
	if cfg.RateLimit.Enabled() {
		notes = append(notes, fmt.Sprintf("Rate limit %d req/min per client (redis %s)",
			cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RedisAddr))
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		notes = append(notes, "CORS origins: "+strings.Join(cfg.CORS.AllowedOrigins, ", "))
	}
	if cfg.Gateway.CatalogPath != "" {
		notes = append(notes, "Model catalog from "+cfg.Gateway.CatalogPath)
	}
	return notes
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return cat, nil
}
