package cache

import (
	"log/slog"
	"time"

	"github.com/c360/boundcache/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Stats are always collected; metrics are optional.
type cacheOptions[V any] struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	evictCallback EvictCallback[V]
	logger        *slog.Logger
	store         DurableStore
	codec         Codec
	sizer         func(V) int64
	clock         func() time.Time
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// Ignored when registry is nil or prefix is empty.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked for every entry that leaves
// the cache.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithLogger sets the logger used for persistence warnings and oversized
// values. Defaults to slog.Default().
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(opts *cacheOptions[V]) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithStore sets the durable store used when Config.Persist is true.
func WithStore[V any](store DurableStore) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.store = store
	}
}

// WithCodec sets the snapshot encoding. Defaults to JSONCodec.
func WithCodec[V any](codec Codec) Option[V] {
	return func(opts *cacheOptions[V]) {
		if codec != nil {
			opts.codec = codec
		}
	}
}

// WithSizer replaces the JSON-length size estimate.
func WithSizer[V any](sizer func(V) int64) Option[V] {
	return func(opts *cacheOptions[V]) {
		if sizer != nil {
			opts.sizer = sizer
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock[V any](clock func() time.Time) Option[V] {
	return func(opts *cacheOptions[V]) {
		if clock != nil {
			opts.clock = clock
		}
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{
		logger: slog.Default(),
		codec:  JSONCodec{},
		clock:  time.Now,
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	if opts.sizer == nil {
		opts.sizer = func(v V) int64 { return EstimateSize(v) }
	}

	return opts
}
