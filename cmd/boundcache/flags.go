package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string // comma-separated layers, later layers win
	LogLevel        string // empty keeps the configured level
	LogFormat       string // empty keeps the configured format
	MetricsPort     int    // negative keeps the configured port
	ShutdownTimeout time.Duration
	Inspect         string
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

// Layers returns the configuration files named by ConfigPath.
func (c *CLIConfig) Layers() []string {
	var layers []string
	for _, p := range strings.Split(c.ConfigPath, ",") {
		if p = strings.TrimSpace(p); p != "" {
			layers = append(layers, p)
		}
	}
	return layers
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("BOUNDCACHE_CONFIG", "configs/boundcache.yaml"),
		"Comma-separated configuration files, JSON or YAML (env: BOUNDCACHE_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("BOUNDCACHE_CONFIG", "configs/boundcache.yaml"),
		"Comma-separated configuration files, JSON or YAML (env: BOUNDCACHE_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("BOUNDCACHE_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: BOUNDCACHE_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("BOUNDCACHE_LOG_FORMAT", ""),
		"Log format: json, text (env: BOUNDCACHE_LOG_FORMAT)")

	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("BOUNDCACHE_METRICS_PORT", -1),
		"Metrics port, 0 to disable (env: BOUNDCACHE_METRICS_PORT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("BOUNDCACHE_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: BOUNDCACHE_SHUTDOWN_TIMEOUT)")

	fs.StringVar(&cfg.Inspect, "inspect", "",
		"Print the persisted snapshot of a namespace and exit")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs.Output(), fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	layers := cfg.Layers()
	if len(layers) == 0 {
		return fmt.Errorf("no config file given")
	}
	for _, path := range layers {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file not found: %s", path)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - bounded TTL/LRU caches with durable snapshots

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Run with a base config and an override layer
  %s --config=configs/boundcache.yaml,/etc/boundcache/prod.json

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Show what a namespace has persisted
  %s --inspect=sessions

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
