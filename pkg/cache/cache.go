package cache

import (
	"context"
	"time"

	"github.com/c360/boundcache/errors"
)

// Cache is the interface satisfied by Bounded and by the no-op cache returned
// for disabled configurations. Memoize and MemoizeAsync accept it.
type Cache[V any] interface {
	// Get returns the value for key and true, or the zero value and false when
	// the key is absent or expired.
	Get(key string) (V, bool)

	// Set stores value under key with the default TTL. It reports whether a
	// new key was created.
	Set(key string, value V) (bool, error)

	// SetWithTTL stores value under key with an entry-specific TTL.
	// A ttl <= 0 uses the default TTL.
	SetWithTTL(key string, value V, ttl time.Duration) (bool, error)

	// Has reports whether key is present and not expired without touching
	// hit/miss counters or recency.
	Has(key string) bool

	// Peek returns the live value for key without touching hit/miss
	// counters or recency.
	Peek(key string) (V, bool)

	// Delete removes key and reports whether it was present.
	Delete(key string) (bool, error)

	// Clear removes every entry and resets statistics.
	Clear() error

	// Size returns the number of resident entries.
	Size() int

	// Keys returns live keys, most recently used first.
	Keys() []string

	// Stats returns a snapshot consistent with the resident entries.
	Stats() StatsSummary

	// Close stops background work and flushes persistence.
	Close() error
}

// DurableStore persists one opaque record per namespace.
// Read returns an error wrapping errors.ErrKeyNotFound when the namespace has
// no record.
type DurableStore interface {
	Read(ctx context.Context, namespace string) ([]byte, error)
	Write(ctx context.Context, namespace string, data []byte) error
	Delete(ctx context.Context, namespace string) error
}

// EvictCallback is called after an entry leaves the cache through eviction,
// expiry, deletion or Clear. It runs outside the cache lock.
type EvictCallback[V any] func(key string, value V)

// Entry is the record kept for each resident key.
type Entry[V any] struct {
	Key            string
	Value          V
	CreatedAt      time.Time
	TTL            time.Duration
	AccessCount    int64
	LastAccessedAt time.Time
	SizeBytes      int64
}

// IsExpired reports whether more than TTL has elapsed since CreatedAt.
// An entry aged exactly TTL is still live.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Touch records a successful read at now.
func (e *Entry[V]) Touch(now time.Time) {
	e.AccessCount++
	if now.Before(e.CreatedAt) {
		now = e.CreatedAt
	}
	e.LastAccessedAt = now
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}

// NewNoop creates a cache that stores nothing and always misses.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) SetWithTTL(_ string, _ V, _ time.Duration) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Has(_ string) bool {
	return false
}

func (c *noopCache[V]) Peek(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Delete(_ string) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Clear() error {
	return nil
}

func (c *noopCache[V]) Size() int {
	return 0
}

func (c *noopCache[V]) Keys() []string {
	return nil
}

func (c *noopCache[V]) Stats() StatsSummary {
	return StatsSummary{}
}

func (c *noopCache[V]) Close() error {
	return nil
}
