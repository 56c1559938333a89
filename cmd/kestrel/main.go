// Kestrel - Real-time transaction risk scoring with hot-swappable models.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/update"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("KESTREL_MODE") == "distributed" {
		cfg = domain.DistributedConfig()
		slog.Info("running in distributed mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"snapshots_dir", cfg.Model.SnapshotsDir,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Model holder and compiler
	holder := model.NewHolder()
	compiler, err := model.NewCompiler()
	if err != nil {
		slog.Error("failed to initialize model compiler", "error", err)
		os.Exit(1)
	}

	// Update coordinator: bounded queue, worker pool, bus subscription
	coordinator := update.NewCoordinator(compiler, holder, cfg.Model.SnapshotsDir, cfg.Model.UpdateQueueSize)
	coordinator.Start(cfg.Model.UpdateWorkers)
	if err := coordinator.Bind(ctx, busImpl); err != nil {
		slog.Error("failed to bind update coordinator", "error", err)
		os.Exit(1)
	}

	// Bootstrap the initial model; the service starts on the empty model
	// when the bootstrap file is missing or invalid.
	if cfg.Model.BootstrapFile != "" {
		if err := coordinator.Bootstrap(cfg.Model.BootstrapFile); err != nil {
			slog.Warn("model bootstrap failed, starting with empty model", "error", err)
		}
	}

	// Scoring engine and velocity recorder
	engine := scoring.NewEngine()
	recorder := velocity.NewRecorder(cacheImpl)

	// Initialize Server
	srv := api.NewServer(cfg.Server, cfg.Security, holder, engine, repo, cacheImpl, busImpl, recorder, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"model_version", holder.Current().Version,
	)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the update path first so no publish races the teardown
	coordinator.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// applyEnvOverrides layers environment variables over the base config.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("KESTREL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KESTREL_SNAPSHOTS_DIR"); v != "" {
		cfg.Model.SnapshotsDir = v
	}
	if v := os.Getenv("KESTREL_BOOTSTRAP_FILE"); v != "" {
		cfg.Model.BootstrapFile = v
	}
	if v := os.Getenv("KESTREL_ADMIN_API_KEY"); v != "" {
		cfg.Security.AdminAPIKey = v
	}
	if v := os.Getenv("KESTREL_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("KESTREL_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("KESTREL_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("KESTREL_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("KESTREL_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("KESTREL_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
}
