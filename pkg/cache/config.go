package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/boundcache/errors"
)

const (
	// DefaultMaxEntries is the entry-count bound used when none is configured.
	DefaultMaxEntries = 1000

	// DefaultMaxMemoryBytes is the approximate memory bound (50 MiB).
	DefaultMaxMemoryBytes int64 = 50 * 1024 * 1024

	// DefaultTTL applies to entries stored without their own TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultCleanupInterval is how often expired entries are swept.
	DefaultCleanupInterval = 60 * time.Second

	// DefaultMaxPersistEntries caps the entries written to a snapshot.
	DefaultMaxPersistEntries = 100

	// DefaultPersistTimeout bounds each durable store call.
	DefaultPersistTimeout = 2 * time.Second
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled" schema:"editable,type:bool,description:Enable caching"`

	// MaxEntries is the hard cap on live entries.
	MaxEntries int `json:"max_entries" schema:"editable,type:int,description:Maximum number of cache entries,min:1"`

	// MaxMemoryBytes is the hard cap on the summed approximate entry size.
	MaxMemoryBytes int64 `json:"max_memory_bytes" schema:"editable,type:int,description:Maximum approximate memory in bytes,min:1"`

	// DefaultTTL applies to entries stored without their own TTL.
	DefaultTTL time.Duration `json:"default_ttl" schema:"editable,type:string,description:Default time-to-live for entries"`

	// CleanupInterval is how often the background sweep removes expired entries.
	CleanupInterval time.Duration `json:"cleanup_interval" schema:"editable,type:string,description:How often to sweep expired entries"`

	// Persist writes live entries to the durable store after each mutation.
	Persist bool `json:"persist" schema:"editable,type:bool,description:Persist entries to the durable store"`

	// MaxPersistEntries caps the entries kept in a snapshot, most recent first.
	MaxPersistEntries int `json:"max_persist_entries" schema:"editable,type:int,description:Maximum entries per snapshot,min:1"`

	// PersistTimeout bounds each durable store read or write.
	PersistTimeout time.Duration `json:"persist_timeout" schema:"editable,type:string,description:Timeout for durable store calls"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MaxEntries:        DefaultMaxEntries,
		MaxMemoryBytes:    DefaultMaxMemoryBytes,
		DefaultTTL:        DefaultTTL,
		CleanupInterval:   DefaultCleanupInterval,
		Persist:           false,
		MaxPersistEntries: DefaultMaxPersistEntries,
		PersistTimeout:    DefaultPersistTimeout,
	}
}

// WithDefaults fills zero-valued bounds and durations from DefaultConfig.
// Enabled and Persist are left as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxEntries == 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.MaxMemoryBytes == 0 {
		c.MaxMemoryBytes = d.MaxMemoryBytes
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = d.DefaultTTL
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.MaxPersistEntries == 0 {
		c.MaxPersistEntries = d.MaxPersistEntries
	}
	if c.PersistTimeout == 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	return c
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	invalid := func(msg string) error {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate", msg)
	}

	if c.MaxEntries <= 0 {
		return invalid(fmt.Sprintf("max_entries must be positive, got %d", c.MaxEntries))
	}
	if c.MaxMemoryBytes <= 0 {
		return invalid(fmt.Sprintf("max_memory_bytes must be positive, got %d", c.MaxMemoryBytes))
	}
	if c.DefaultTTL <= 0 {
		return invalid(fmt.Sprintf("default_ttl must be positive, got %v", c.DefaultTTL))
	}
	if c.CleanupInterval <= 0 {
		return invalid(fmt.Sprintf("cleanup_interval must be positive, got %v", c.CleanupInterval))
	}
	if c.Persist {
		if c.MaxPersistEntries <= 0 {
			return invalid(fmt.Sprintf("max_persist_entries must be positive, got %d", c.MaxPersistEntries))
		}
		if c.PersistTimeout <= 0 {
			return invalid(fmt.Sprintf("persist_timeout must be positive, got %v", c.PersistTimeout))
		}
	}

	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
// Returns a no-op cache if config.Enabled is false.
func NewFromConfig[V any](ctx context.Context, namespace string, config Config, options ...Option[V]) (Cache[V], error) {
	if !config.Enabled {
		return NewNoop[V](), nil
	}
	return New[V](ctx, namespace, config, options...)
}

// UnmarshalJSON accepts duration strings ("1h", "5m", "30s") in addition to
// nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config

	aux := &struct {
		DefaultTTL      json.RawMessage `json:"default_ttl,omitempty"`
		CleanupInterval json.RawMessage `json:"cleanup_interval,omitempty"`
		PersistTimeout  json.RawMessage `json:"persist_timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		raw    json.RawMessage
		name   string
		target *time.Duration
	}{
		{aux.DefaultTTL, "default_ttl", &c.DefaultTTL},
		{aux.CleanupInterval, "cleanup_interval", &c.CleanupInterval},
		{aux.PersistTimeout, "persist_timeout", &c.PersistTimeout},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		d, err := parseDurationField(f.raw, f.name)
		if err != nil {
			return err
		}
		*f.target = d
	}

	return nil
}

// MarshalJSON writes durations as strings so configs round-trip readably.
func (c Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		DefaultTTL      string `json:"default_ttl"`
		CleanupInterval string `json:"cleanup_interval"`
		PersistTimeout  string `json:"persist_timeout"`
		Alias
	}{
		DefaultTTL:      c.DefaultTTL.String(),
		CleanupInterval: c.CleanupInterval.String(),
		PersistTimeout:  c.PersistTimeout.String(),
		Alias:           Alias(c),
	})
}

// parseDurationField parses a JSON duration that is either a duration string
// or integer nanoseconds.
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '1h') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
