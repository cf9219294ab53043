package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/boundcache/errors"
	"github.com/c360/boundcache/metric"
	"github.com/c360/boundcache/pkg/cache"
	"github.com/c360/boundcache/storage/durable"
)

// DefaultEnvPrefix prefixes every environment override read by Loader.
const DefaultEnvPrefix = "BOUNDCACHE"

// Config represents the complete daemon configuration.
type Config struct {
	Version string                  `json:"version,omitempty"`
	Log     LogConfig               `json:"log"`
	Metrics MetricsConfig           `json:"metrics"`
	NATS    NATSConfig              `json:"nats"`
	Store   durable.StoreConfig     `json:"store"`
	Caches  map[string]cache.Config `json:"caches,omitempty"` // keyed by namespace
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// MetricsConfig controls the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int    `json:"port"`
	Path string `json:"path"`
}

// NATSConfig defines the connection used by the nats store.
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
	PingInterval  time.Duration `json:"ping_interval,omitempty"`
	DrainTimeout  time.Duration `json:"drain_timeout,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// URL returns the configured servers as the comma-separated list nats.Connect
// accepts, or the local default.
func (n NATSConfig) URL() string {
	if len(n.URLs) == 0 {
		return "nats://localhost:4222"
	}
	return strings.Join(n.URLs, ",")
}

// Defaults returns the configuration used before any layer is applied.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "boundcache",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
		},
		Store: durable.StoreConfig{
			Type:  durable.TypeMemory,
			Codec: "json",
		},
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	invalid := func(msg string) error {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", msg)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return invalid(fmt.Sprintf("metrics.port out of range: %d", c.Metrics.Port))
	}
	if c.Metrics.Port > 0 && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid(fmt.Sprintf("metrics.path must start with '/', got %q", c.Metrics.Path))
	}
	if c.Metrics.Port > 0 && path.Clean(c.Metrics.Path) == metric.HealthPath {
		return invalid(fmt.Sprintf("metrics.path cannot be %s", metric.HealthPath))
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Store.Type == durable.TypeNATS && len(c.NATS.URLs) == 0 {
		return invalid("nats.urls is required for the nats store")
	}

	for name, cacheCfg := range c.Caches {
		if strings.TrimSpace(name) == "" {
			return invalid("cache namespace cannot be empty")
		}
		if err := cacheCfg.Validate(); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "caches."+name)
		}
	}

	return nil
}

// String returns a JSON representation of the config with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.NATS.Password != "" {
		masked.NATS.Password = "****"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "****"
	}
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}

// Loader handles configuration loading with layers and overrides.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: DefaultEnvPrefix,
	}
}

// AddLayer adds a JSON or YAML configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the prefix of environment overrides.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the defaults, every layer and the environment overrides.
// Each cache entry is merged over cache.DefaultConfig, so a layer only needs
// to name the fields it changes.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Defaults())
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		merged = deepMergeMaps(merged, raw)
	}

	if err := applyCacheDefaults(merged); err != nil {
		return nil, err
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "Load", "encode merged config")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode merged config")
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// loadRaw reads a layer into a generic map. YAML and JSON are told apart by
// extension.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	format, err := layerFormat(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if err := checkDepth(raw, 1); err != nil {
		return nil, err
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// toMap converts a value to its generic JSON map form.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// applyCacheDefaults merges every caches.<name> entry over the default cache
// config.
func applyCacheDefaults(merged map[string]any) error {
	caches, ok := merged["caches"].(map[string]any)
	if !ok {
		return nil
	}

	defaults, err := toMap(cache.DefaultConfig())
	if err != nil {
		return errors.Wrap(err, "Loader", "Load", "encode cache defaults")
	}

	for name, raw := range caches {
		entry, ok := raw.(map[string]any)
		if !ok {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Loader", "Load",
				fmt.Sprintf("caches.%s must be an object", name))
		}
		caches[name] = deepMergeMaps(defaults, entry)
	}
	return nil
}

// parseDurations converts NATS duration strings to nanoseconds. Cache
// durations are decoded by cache.Config itself.
func parseDurations(data map[string]any) error {
	nats, ok := data["nats"].(map[string]any)
	if !ok {
		return nil
	}
	for _, field := range []string{"reconnect_wait", "timeout", "ping_interval", "drain_timeout"} {
		s, ok := nats[field].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("nats.%s: %w", field, err)
		}
		nats[field] = d.Nanoseconds()
	}
	return nil
}

// applyEnvOverrides applies PREFIX_* environment variables.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	lookup := func(name string) (string, bool, error) {
		key := l.envPrefix + "_" + name
		val := os.Getenv(key)
		if val == "" {
			return "", false, nil
		}
		if err := validateEnvVar(key, val); err != nil {
			return "", false, errors.WrapInvalid(err, "Loader", "applyEnvOverrides", key)
		}
		return val, true, nil
	}

	scalars := []struct {
		name   string
		target *string
	}{
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"METRICS_PATH", &cfg.Metrics.Path},
		{"NATS_USERNAME", &cfg.NATS.Username},
		{"NATS_PASSWORD", &cfg.NATS.Password},
		{"NATS_TOKEN", &cfg.NATS.Token},
		{"STORE_TYPE", &cfg.Store.Type},
		{"STORE_CODEC", &cfg.Store.Codec},
		{"STORE_DIR", &cfg.Store.Dir},
		{"STORE_BUCKET", &cfg.Store.Bucket},
		{"STORE_PREFIX", &cfg.Store.Prefix},
	}
	for _, s := range scalars {
		val, ok, err := lookup(s.name)
		if err != nil {
			return err
		}
		if ok {
			*s.target = val
		}
	}

	lists := []struct {
		name   string
		target *[]string
	}{
		{"NATS_URLS", &cfg.NATS.URLs},
		{"STORE_SERVERS", &cfg.Store.Servers},
	}
	for _, s := range lists {
		val, ok, err := lookup(s.name)
		if err != nil {
			return err
		}
		if ok {
			*s.target = splitList(val)
		}
	}

	if val, ok, err := lookup("METRICS_PORT"); err != nil {
		return err
	} else if ok {
		port, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", l.envPrefix+"_METRICS_PORT")
		}
		cfg.Metrics.Port = port
	}

	return nil
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
