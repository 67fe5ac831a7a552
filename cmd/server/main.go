// Package main is the entry point for the hpn-llm-gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/hpn-llm-gateway/internal/config"
	"github.com/hpn/hpn-llm-gateway/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// =========================================================================
	// 1. Load configuration (Singleton)
	// =========================================================================
	cfg, err := config.GetConfigWithPath(*configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger (credentials redacted)
	// =========================================================================
	logger := newLogger(cfg.Logging, os.Stdout, cfg.Secrets())
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("address", cfg.Server.Addr()),
		slog.String("default_provider", cfg.Gateway.DefaultProvider),
		slog.Any("providers", cfg.ProviderNames()),
		slog.Bool("metrics", cfg.Metrics.Enabled),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled()),
	)

	// =========================================================================
	// 3. Wire adapters, router and HTTP stack
	// =========================================================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	application, err := buildApp(cfg, logger, registry)
	if err != nil {
		logger.Error("failed to initialize gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer application.Close()

	// =========================================================================
	// 4. Start HTTP server with graceful shutdown
	// =========================================================================
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      application.engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	ui.PrintStartupBanner(version, terminalColumns())
	ui.PrintStartupInfo(srv.Addr, application.providers, application.router.DefaultProvider())
	for _, note := range startupNotes(cfg) {
		ui.PrintGatewayInfo(note)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// =========================================================================
	// 5. Graceful shutdown on SIGTERM/SIGINT
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			application.Close()
			os.Exit(1)
		}
	}

	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		return
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// terminalColumns returns the stdout width, falling back to $COLUMNS, or 0
// when neither is known.
func terminalColumns() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	n, _ := strconv.Atoi(os.Getenv("COLUMNS"))
	return n
}
