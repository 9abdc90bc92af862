package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	authimpl "github.com/husen-82/android-stt-ver2.0/external/auth"
	configloader "github.com/husen-82/android-stt-ver2.0/external/config"
	"github.com/husen-82/android-stt-ver2.0/external/httpapi"
	journalimpl "github.com/husen-82/android-stt-ver2.0/external/journal"
	recognizerimpl "github.com/husen-82/android-stt-ver2.0/external/recognizer"
	"github.com/husen-82/android-stt-ver2.0/internal/config"
	"github.com/husen-82/android-stt-ver2.0/internal/metrics"
	"github.com/husen-82/android-stt-ver2.0/internal/ratelimit"
	"github.com/husen-82/android-stt-ver2.0/internal/transcriber"
	"github.com/samber/do/v2"
)

const (
	shutdownTimeout      = 15 * time.Second
	limiterSweepInterval = 10 * time.Minute
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metrics.RegisterDI(injector)
	journalimpl.RegisterDI(injector)
	authimpl.RegisterDI(injector)
	recognizerimpl.RegisterDI(injector)
	transcriber.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	server, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}
	limiter, err := do.Invoke[*ratelimit.Limiter](injector)
	if err != nil {
		slog.Error("failed to resolve rate limiter", "error", err)
		os.Exit(1)
	}

	janitorDone := make(chan struct{})
	go limiter.RunJanitor(janitorDone, limiterSweepInterval)
	defer close(janitorDone)

	done := make(chan struct{})
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
