// Package main implements the boundcache daemon. It hosts the namespaced
// caches named in its configuration, rehydrates them from the durable store,
// keeps their snapshots current and serves their metrics and health.
//
// The daemon has no client protocol: nothing outside the process reads or
// writes the hosted caches. While running it loads each snapshot, sweeps
// expired entries on the cleanup interval, exports entry and memory gauges,
// and writes a pruned snapshot on shutdown. Applications that need a serving
// cache embed pkg/cache directly; the daemon is useful for snapshot
// maintenance, for -inspect and for watching persisted state in metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/boundcache/config"
	"github.com/c360/boundcache/errors"
	"github.com/c360/boundcache/metric"
	"github.com/c360/boundcache/natsclient"
	"github.com/c360/boundcache/storage/durable"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "boundcache"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid",
			"store", cfg.Store.Type,
			"caches", len(cfg.Caches))
		return nil
	}

	slog.Info("Starting boundcache",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"store", cfg.Store.Type)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	natsClient, err := setupNATS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() { _ = natsClient.Close(context.Background()) }()
	}

	store, err := durable.Open(ctx, cfg.Store, natsClient)
	if err != nil {
		return errors.WrapFatal(err, "main", "run", "open durable store")
	}

	if cliCfg.Inspect != "" {
		return inspectSnapshot(ctx, os.Stdout, store, cfg.Store.Codec, cliCfg.Inspect, time.Now())
	}

	var nc connectionStatus
	if natsClient != nil {
		nc = natsClient
	}
	return serve(ctx, cfg, store, nc, logger, cliCfg.ShutdownTimeout)
}

// initializeCLI parses and validates flags and handles -version and -help.
func initializeCLI(args []string) (*CLIConfig, bool, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp(os.Stderr, fs)
		return nil, true, nil
	}

	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads every layer, applies flag overrides and
// validates the result.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	for _, layer := range cliCfg.Layers() {
		loader.AddLayer(layer)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}
	if cliCfg.MetricsPort >= 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupNATS connects to NATS when the store needs it and returns nil
// otherwise.
func setupNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	if cfg.Store.Type != durable.TypeNATS {
		return nil, nil
	}

	natsClient, err := natsclient.NewClient(cfg.NATS.URL(), natsOptions(cfg.NATS, logger)...)
	if err != nil {
		return nil, errors.WrapFatal(err, "main", "setupNATS", "create NATS client")
	}

	logger.Info("Connecting to NATS", "url", cfg.NATS.URL())
	if err := natsClient.Connect(ctx); err != nil {
		return nil, errors.WrapFatal(err, "main", "setupNATS", "connect to NATS")
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := natsClient.WaitForConnection(connCtx); err != nil {
		_ = natsClient.Close(context.Background())
		return nil, errors.WrapFatal(err, "main", "setupNATS", "wait for NATS connection")
	}

	return natsClient, nil
}

// natsOptions maps the nats config section onto client options. Zero
// durations keep the client defaults.
func natsOptions(cfg config.NATSConfig, logger *slog.Logger) []natsclient.ClientOption {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithName(cfg.Name),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithHealthChangeCallback(logHealthChange(logger)),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.ReconnectWait))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(cfg.Timeout))
	}
	if cfg.PingInterval > 0 {
		opts = append(opts, natsclient.WithPingInterval(cfg.PingInterval))
	}
	if cfg.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(cfg.DrainTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.Token))
	}
	return opts
}

func logHealthChange(logger *slog.Logger) func(bool) {
	return func(healthy bool) {
		if healthy {
			logger.Info("NATS connection healthy")
			return
		}
		logger.Warn("NATS connection lost, snapshots to the nats store will fail until it returns")
	}
}

// serve hosts the configured caches until ctx is cancelled.
func serve(
	ctx context.Context,
	cfg *config.Config,
	store durable.Store,
	nc connectionStatus,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
) error {
	registry := metric.NewMetricsRegistry()

	caches, err := openCaches(ctx, cfg, store, registry, logger)
	if err != nil {
		return err
	}

	var server *metric.Server
	if cfg.Metrics.Port > 0 {
		server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		server.SetHealthHandler(newHealthChecker(caches, nc))
		if err := server.Start(); err != nil {
			_ = closeCaches(context.Background(), caches)
			return errors.WrapFatal(err, "main", "serve", "start metrics server")
		}
		slog.Info("Metrics server listening", "addr", server.Addr(), "path", cfg.Metrics.Path)
	}

	slog.Info("boundcache started", "caches", len(caches))

	<-ctx.Done()
	slog.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := shutdown(shutdownCtx, server, caches); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("boundcache shutdown complete")
	return nil
}

// shutdown stops the metrics server and flushes every cache.
func shutdown(ctx context.Context, server *metric.Server, caches []hostedCache) error {
	var errs []error
	if server != nil {
		if err := server.Stop(ctx); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
			errs = append(errs, err)
		}
	}
	if err := closeCaches(ctx, caches); err != nil {
		slog.Error("Error closing caches", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
