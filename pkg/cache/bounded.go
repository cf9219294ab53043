package cache

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/boundcache/errors"
)

// Bounded is a thread-safe cache bounded by entry count and by approximate
// memory. Entries expire after their TTL and the least recently used entry is
// evicted first when either bound would be exceeded.
//
// Every exported method runs to completion under one mutex. Eviction
// callbacks, durable store writes, and warnings happen after it is released.
type Bounded[V any] struct {
	mu        sync.Mutex
	namespace string
	cfg       Config
	items     map[string]*list.Element
	order     *list.List // front is most recently used
	memory    int64
	stats     *Statistics
	metrics   *cacheMetrics
	evictFn   EvictCallback[V]
	logger    *slog.Logger
	now       func() time.Time
	sizer     func(V) int64

	store     DurableStore
	codec     Codec
	persistMu sync.Mutex // orders snapshot writes

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ Cache[string] = (*Bounded[string])(nil)

// New creates a bounded cache for namespace. Zero-valued config fields take
// their defaults. When cfg.Persist is set, entries saved by an earlier
// instance with the same namespace are loaded from the store given with
// WithStore. The background sweep stops on Close or when ctx is done.
func New[V any](ctx context.Context, namespace string, cfg Config, options ...Option[V]) (*Bounded[V], error) {
	if namespace == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "cache", "New", "namespace cannot be empty")
	}

	cfg = cfg.WithDefaults()
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := applyOptions(options...)
	if cfg.Persist && opts.store == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "cache", "New", "persist enabled without a durable store")
	}

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "New", "metrics registration")
		}
	}

	c := &Bounded[V]{
		namespace: namespace,
		cfg:       cfg,
		items:     make(map[string]*list.Element),
		order:     list.New(),
		stats:     NewStatistics(),
		metrics:   metrics,
		evictFn:   opts.evictCallback,
		logger:    opts.logger.With("component", "cache", "namespace", namespace),
		now:       opts.clock,
		sizer:     opts.sizer,
		codec:     opts.codec,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	if cfg.Persist {
		c.store = opts.store
		c.load(ctx)
	}

	go c.cleanup(ctx)

	return c, nil
}

// Namespace returns the name the cache was created with.
func (c *Bounded[V]) Namespace() string {
	return c.namespace
}

// Config returns the effective configuration.
func (c *Bounded[V]) Config() Config {
	return c.cfg
}

// Get retrieves a value, expiring it if its TTL has lapsed, and marks it as
// most recently used.
func (c *Bounded[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.recordMiss()
		c.mu.Unlock()
		return zero, false
	}

	entry := element.Value.(*Entry[V])
	now := c.now()
	if entry.IsExpired(now) {
		c.removeLocked(element)
		c.recordEvictionsLocked(1)
		c.recordMiss()
		c.mu.Unlock()
		c.notify([]*Entry[V]{entry})
		return zero, false
	}

	entry.Touch(now)
	c.order.MoveToFront(element)
	c.recordHit()
	value := entry.Value
	c.mu.Unlock()

	return value, true
}

// Set stores a value with the default TTL.
func (c *Bounded[V]) Set(key string, value V) (bool, error) {
	return c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores a value with an entry-specific TTL (<= 0 means the
// default). It returns true when the key was not already live.
//
// A value whose estimated size alone exceeds MaxMemoryBytes is not stored;
// any previous value for the key is removed so it cannot be read stale.
func (c *Bounded[V]) SetWithTTL(key string, value V, ttl time.Duration) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	size := c.sizer(value)
	if size < 0 {
		size = 0
	}

	c.mu.Lock()
	now := c.now()

	var removed []*Entry[V]
	var previous *Entry[V]
	if element, ok := c.items[key]; ok {
		old := c.removeLocked(element)
		if old.IsExpired(now) {
			removed = append(removed, old)
			c.recordEvictionsLocked(1)
		} else {
			previous = old
		}
	}
	existed := previous != nil

	if size > c.cfg.MaxMemoryBytes {
		if existed {
			removed = append(removed, previous)
			c.recordDelete()
		}
		c.updateResidentLocked()
		c.mu.Unlock()

		c.logger.Warn("Value exceeds cache memory bound, not cached",
			"key", key, "size_bytes", size, "max_memory_bytes", c.cfg.MaxMemoryBytes)
		c.notify(removed)
		if existed {
			c.persist()
		}
		return false, nil
	}

	removed = append(removed, c.makeRoomLocked(size, now)...)

	entry := &Entry[V]{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		TTL:            ttl,
		AccessCount:    1,
		LastAccessedAt: now,
		SizeBytes:      size,
	}
	c.insertLocked(entry)
	c.recordSet()
	c.updateResidentLocked()
	c.mu.Unlock()

	c.notify(removed)
	c.persist()

	return !existed, nil
}

// Has reports whether key is live. It never changes hit/miss counters or
// recency, but an expired entry found here is removed and counted as an
// eviction.
func (c *Bounded[V]) Has(key string) bool {
	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false
	}

	entry := element.Value.(*Entry[V])
	if entry.IsExpired(c.now()) {
		c.removeLocked(element)
		c.recordEvictionsLocked(1)
		c.mu.Unlock()
		c.notify([]*Entry[V]{entry})
		return false
	}
	c.mu.Unlock()

	return true
}

// Delete removes an entry by key.
func (c *Bounded[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}

	entry := c.removeLocked(element)
	c.recordDelete()
	c.updateResidentLocked()
	c.mu.Unlock()

	c.notify([]*Entry[V]{entry})
	c.persist()

	return true, nil
}

// Clear removes all entries, resets statistics, and deletes the durable
// record when persistence is enabled.
func (c *Bounded[V]) Clear() error {
	c.mu.Lock()
	var removed []*Entry[V]
	if c.evictFn != nil {
		removed = make([]*Entry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			removed = append(removed, element.Value.(*Entry[V]))
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.memory = 0
	c.stats.Reset()
	c.updateResidentLocked()
	c.mu.Unlock()

	c.notify(removed)

	if c.persistEnabled() {
		c.persistMu.Lock()
		defer c.persistMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		if err := c.store.Delete(ctx, c.namespace); err != nil && !errors.IsNotFound(err) {
			c.recordPersistError()
			c.logger.Warn("Failed to clear persisted cache", "error", err)
		}
	}

	return nil
}

// Size returns the number of live entries.
func (c *Bounded[V]) Size() int {
	c.mu.Lock()
	expired := c.purgeExpiredLocked(c.now())
	size := len(c.items)
	c.mu.Unlock()

	c.notify(expired)
	return size
}

// Keys returns live keys, most recently used first.
func (c *Bounded[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*Entry[V])
		if !entry.IsExpired(now) {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

// Stats returns a snapshot whose entry count and memory match the live
// entries at the time of the call. Expired entries are swept first.
func (c *Bounded[V]) Stats() StatsSummary {
	c.mu.Lock()
	expired := c.purgeExpiredLocked(c.now())
	summary := c.stats.summary()
	summary.EntryCount = len(c.items)
	summary.MemoryBytes = c.memory
	summary.MaxEntries = c.cfg.MaxEntries
	summary.MaxMemoryBytes = c.cfg.MaxMemoryBytes
	c.mu.Unlock()

	c.notify(expired)
	return summary
}

// Entry returns a copy of the entry metadata for key without touching
// statistics or recency.
func (c *Bounded[V]) Entry(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return Entry[V]{}, false
	}
	entry := element.Value.(*Entry[V])
	if entry.IsExpired(c.now()) {
		return Entry[V]{}, false
	}
	return *entry, true
}

// Peek returns the value for key without touching statistics or recency.
func (c *Bounded[V]) Peek(key string) (V, bool) {
	entry, ok := c.Entry(key)
	return entry.Value, ok
}

// Close stops the background sweep, writes a final snapshot and releases
// metrics. The cache stays usable in memory afterwards.
func (c *Bounded[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.shutdown)

		select {
		case <-c.done:
		case <-time.After(5 * time.Second):
			c.closeErr = errors.WrapTransient(
				fmt.Errorf("timeout waiting for cleanup goroutine to finish"),
				"cache", "Close", "stop cleanup")
		}

		c.persist()

		if c.metrics != nil {
			c.metrics.unregister()
		}
	})
	return c.closeErr
}

// cleanup runs in a background goroutine and periodically removes expired
// entries, including ones that are never read again.
func (c *Bounded[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired sweeps expired entries and persists if anything changed.
func (c *Bounded[V]) removeExpired() {
	c.mu.Lock()
	expired := c.purgeExpiredLocked(c.now())
	c.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	c.logger.Debug("Removed expired cache entries", "count", len(expired))
	c.notify(expired)
	c.persist()
}

// insertLocked adds entry at the most recently used position.
func (c *Bounded[V]) insertLocked(entry *Entry[V]) {
	c.items[entry.Key] = c.order.PushFront(entry)
	c.memory += entry.SizeBytes
}

// removeLocked removes an element from both the list and map.
func (c *Bounded[V]) removeLocked(element *list.Element) *Entry[V] {
	entry := element.Value.(*Entry[V])
	delete(c.items, entry.Key)
	c.order.Remove(element)
	c.memory -= entry.SizeBytes
	return entry
}

// purgeExpiredLocked removes every expired entry and counts the evictions.
func (c *Bounded[V]) purgeExpiredLocked(now time.Time) []*Entry[V] {
	var expired []*Entry[V]
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		if element.Value.(*Entry[V]).IsExpired(now) {
			expired = append(expired, c.removeLocked(element))
		}
		element = next
	}
	if len(expired) > 0 {
		c.recordEvictionsLocked(len(expired))
	}
	return expired
}

// evictOldestLocked removes the least recently used entry.
func (c *Bounded[V]) evictOldestLocked() *Entry[V] {
	element := c.order.Back()
	if element == nil {
		return nil
	}
	entry := c.removeLocked(element)
	c.recordEvictionsLocked(1)
	return entry
}

// makeRoomLocked frees space for an entry of the given size. Expired entries
// go first; then at most one LRU entry for the count bound, and LRU entries
// one at a time until the memory bound has headroom.
func (c *Bounded[V]) makeRoomLocked(size int64, now time.Time) []*Entry[V] {
	if len(c.items) < c.cfg.MaxEntries && c.memory+size <= c.cfg.MaxMemoryBytes {
		return nil
	}

	removed := c.purgeExpiredLocked(now)

	if len(c.items) >= c.cfg.MaxEntries {
		if entry := c.evictOldestLocked(); entry != nil {
			removed = append(removed, entry)
		}
	}

	for c.memory+size > c.cfg.MaxMemoryBytes {
		entry := c.evictOldestLocked()
		if entry == nil {
			break
		}
		removed = append(removed, entry)
	}

	return removed
}

// notify calls the eviction callback for removed entries. Never called with
// the mutex held.
func (c *Bounded[V]) notify(removed []*Entry[V]) {
	if c.evictFn == nil {
		return
	}
	for _, entry := range removed {
		c.evictFn(entry.Key, entry.Value)
	}
}

func (c *Bounded[V]) recordHit() {
	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
}

func (c *Bounded[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

func (c *Bounded[V]) recordSet() {
	c.stats.Set()
	if c.metrics != nil {
		c.metrics.recordSet()
	}
}

func (c *Bounded[V]) recordDelete() {
	c.stats.Delete()
	if c.metrics != nil {
		c.metrics.recordDelete()
	}
}

func (c *Bounded[V]) recordPersistError() {
	c.stats.PersistError()
	if c.metrics != nil {
		c.metrics.recordPersistError()
	}
}

// recordEvictionsLocked counts n evictions and refreshes resident gauges.
func (c *Bounded[V]) recordEvictionsLocked(n int) {
	for i := 0; i < n; i++ {
		c.stats.Eviction()
	}
	if c.metrics != nil {
		c.metrics.recordEvictions(n)
	}
	c.updateResidentLocked()
}

func (c *Bounded[V]) updateResidentLocked() {
	if c.metrics != nil {
		c.metrics.updateResident(len(c.items), c.memory)
	}
}
