// Command adapterd serves the Venus adapter over HTTP against a sandboxed
// deployment described by a TOML or YAML file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"venusadapter/config"
	"venusadapter/observability"
	"venusadapter/observability/logging"
	telemetry "venusadapter/observability/otel"
	"venusadapter/services/adapterd/receipts"
	"venusadapter/services/adapterd/sandbox"
	"venusadapter/services/adapterd/server"
	"venusadapter/storage"
)

func main() {
	var (
		cfgPath  string
		logLevel string
	)
	flag.StringVar(&cfgPath, "config", "", "path to a sandbox definition (built-in dev world when empty)")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if err := run(cfgPath, logLevel); err != nil {
		log.Fatalf("adapterd: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := sandbox.DevConfig()
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, config.Validate(cfg)
}

func run(cfgPath, logLevel string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	daemon := cfg.Daemon

	logger, logCloser := logging.Setup(logging.Options{
		Service:    "adapterd",
		Env:        daemon.Environment,
		Level:      logging.ParseLevel(logLevel),
		File:       daemon.Log.File,
		MaxSizeMB:  daemon.Log.MaxSizeMB,
		MaxBackups: daemon.Log.MaxBackups,
		MaxAgeDays: daemon.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "adapterd",
		Environment: daemon.Environment,
		Endpoint:    daemon.Telemetry.OTLPEndpoint,
		Insecure:    daemon.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		SampleRatio: daemon.Telemetry.SampleRatio,
		Traces:      true,
		Metrics:     true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	db, err := storage.Open(daemon.Storage, daemon.DataDir)
	if err != nil {
		return err
	}
	world, err := sandbox.Open(cfg, db, logger.With("component", "sandbox"))
	if err != nil {
		_ = db.Close()
		return err
	}
	defer world.Close()
	logger.Info("sandbox ready",
		"storage", daemon.Storage,
		"genesis", world.Genesis(),
		"block", world.Ledger().BlockNumber(),
		"markets", len(cfg.Markets))

	store, err := receipts.Open(daemon.Receipts.Driver, daemon.Receipts.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("receipts store open",
		"driver", daemon.Receipts.Driver,
		logging.MaskField("dsn", daemon.Receipts.DSN))

	var (
		metrics  *observability.AdapterMetrics
		gatherer prometheus.Gatherer = prometheus.NewRegistry()
	)
	if daemon.Telemetry.Metrics {
		metrics = observability.Adapter()
		gatherer = prometheus.DefaultGatherer
	}

	srv, err := server.New(server.Config{
		World:    world,
		Receipts: store,
		Logger:   logger,
		Metrics:  metrics,
		Gatherer: gatherer,
		Auth: server.AuthConfig{
			Enabled: daemon.Auth.Enabled,
			Secret:  daemon.Auth.Secret,
			Issuer:  daemon.Auth.Issuer,
		},
		RateLimit: server.RateLimit{
			RequestsPerSecond: daemon.RateLimit.RequestsPerSecond,
			Burst:             daemon.RateLimit.Burst,
		},
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              daemon.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("adapterd listening", "addr", daemon.Listen, "auth", daemon.Auth.Enabled)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}

	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), daemon.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forcing server stop", "error", err)
		_ = httpServer.Close()
	}
	return nil
}
