package durable

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/boundcache/errors"
	"github.com/c360/boundcache/natsclient"
)

// Store persists one opaque record per namespace. It has the same method set
// as cache.DurableStore, so every implementation here can be passed to
// cache.WithStore.
type Store interface {
	Read(ctx context.Context, namespace string) ([]byte, error)
	Write(ctx context.Context, namespace string, data []byte) error
	Delete(ctx context.Context, namespace string) error
}

// Store types accepted by Open.
const (
	TypeMemory    = "memory"
	TypeFile      = "file"
	TypeNATS      = "nats"
	TypeMemcached = "memcached"
)

// Defaults applied by StoreConfig.WithDefaults.
const (
	DefaultBucket          = "boundcache"
	DefaultMemcachedPrefix = "boundcache:"
	DefaultMemcachedTTL    = 24 * time.Hour
)

// StoreConfig selects and configures a durable store.
type StoreConfig struct {
	// Type is one of memory, file, nats or memcached. Empty means memory.
	Type string `json:"type" yaml:"type"`

	// Codec names the snapshot encoding: json (default) or msgpack.
	Codec string `json:"codec,omitempty" yaml:"codec,omitempty"`

	// Dir holds one snapshot file per namespace (file).
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Bucket is the JetStream KV bucket (nats).
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Servers lists memcached host:port addresses (memcached).
	Servers []string `json:"servers,omitempty" yaml:"servers,omitempty"`

	// Prefix is prepended to memcached keys (memcached).
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// ExpirationSeconds bounds how long memcached keeps a snapshot (memcached).
	ExpirationSeconds int `json:"expiration_seconds,omitempty" yaml:"expiration_seconds,omitempty"`
}

// WithDefaults fills empty fields for the selected type.
func (c StoreConfig) WithDefaults() StoreConfig {
	if c.Type == "" {
		c.Type = TypeMemory
	}
	if c.Codec == "" {
		c.Codec = "json"
	}
	switch c.Type {
	case TypeNATS:
		if c.Bucket == "" {
			c.Bucket = DefaultBucket
		}
	case TypeMemcached:
		if c.Prefix == "" {
			c.Prefix = DefaultMemcachedPrefix
		}
		if c.ExpirationSeconds == 0 {
			c.ExpirationSeconds = int(DefaultMemcachedTTL / time.Second)
		}
	}
	return c
}

// Validate checks the fields required by the selected type.
func (c StoreConfig) Validate() error {
	invalid := func(msg string) error {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "StoreConfig", "Validate", msg)
	}

	switch c.Type {
	case "", TypeMemory:
	case TypeFile:
		if c.Dir == "" {
			return invalid("file store requires dir")
		}
	case TypeNATS:
	case TypeMemcached:
		if len(c.Servers) == 0 {
			return invalid("memcached store requires at least one server")
		}
		if c.ExpirationSeconds < 0 {
			return invalid(fmt.Sprintf("expiration_seconds cannot be negative, got %d", c.ExpirationSeconds))
		}
		if limit := int(MaxMemcachedRelativeExpiration / time.Second); c.ExpirationSeconds > limit {
			return invalid(fmt.Sprintf("expiration_seconds cannot exceed %d (30 days), got %d", limit, c.ExpirationSeconds))
		}
	default:
		return invalid(fmt.Sprintf("unknown store type %q", c.Type))
	}

	switch c.Codec {
	case "", "json", "msgpack":
	default:
		return invalid(fmt.Sprintf("unknown codec %q", c.Codec))
	}

	return nil
}

// Open builds the store described by cfg. nc must be connected when cfg.Type
// is nats and is ignored otherwise.
func Open(ctx context.Context, cfg StoreConfig, nc *natsclient.Client) (Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeFile:
		return NewFileStore(cfg.Dir)
	case TypeNATS:
		if nc == nil {
			return nil, errors.WrapInvalid(errors.ErrNoConnection, "durable", "Open", "nats store requires a client")
		}
		return NewNATSStore(ctx, nc, cfg.Bucket)
	case TypeMemcached:
		return NewMemcachedStore(cfg.Servers, cfg.Prefix, time.Duration(cfg.ExpirationSeconds)*time.Second), nil
	default:
		return NewMemoryStore(), nil
	}
}

func notFound(store, method, namespace string) error {
	return errors.WrapInvalid(errors.ErrKeyNotFound, store, method, fmt.Sprintf("namespace %q", namespace))
}
