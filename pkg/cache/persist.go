package cache

import (
	"context"
	"time"

	"github.com/c360/boundcache/errors"
)

// snapshotVersion is bumped when the persisted layout changes.
const snapshotVersion = 1

// snapshot is the record written to the durable store for one namespace.
// Entries are ordered most recently used first.
type snapshot[V any] struct {
	Version   int                 `json:"version" msgpack:"version"`
	Namespace string              `json:"namespace" msgpack:"namespace"`
	SavedAt   time.Time           `json:"saved_at" msgpack:"saved_at"`
	Entries   []persistedEntry[V] `json:"entries" msgpack:"entries"`
}

type persistedEntry[V any] struct {
	Key            string        `json:"key" msgpack:"key"`
	Value          V             `json:"value" msgpack:"value"`
	CreatedAt      time.Time     `json:"created_at" msgpack:"created_at"`
	TTL            time.Duration `json:"ttl" msgpack:"ttl"`
	AccessCount    int64         `json:"access_count" msgpack:"access_count"`
	LastAccessedAt time.Time     `json:"last_accessed_at" msgpack:"last_accessed_at"`
}

func (c *Bounded[V]) persistEnabled() bool {
	return c.cfg.Persist && c.store != nil
}

// snapshotLocked collects live entries, most recent first, up to
// MaxPersistEntries.
func (c *Bounded[V]) snapshotLocked(now time.Time) snapshot[V] {
	limit := c.cfg.MaxPersistEntries
	if n := len(c.items); n < limit {
		limit = n
	}

	snap := snapshot[V]{
		Version:   snapshotVersion,
		Namespace: c.namespace,
		SavedAt:   now,
		Entries:   make([]persistedEntry[V], 0, limit),
	}
	for element := c.order.Front(); element != nil && len(snap.Entries) < c.cfg.MaxPersistEntries; element = element.Next() {
		entry := element.Value.(*Entry[V])
		if entry.IsExpired(now) {
			continue
		}
		snap.Entries = append(snap.Entries, persistedEntry[V]{
			Key:            entry.Key,
			Value:          entry.Value,
			CreatedAt:      entry.CreatedAt,
			TTL:            entry.TTL,
			AccessCount:    entry.AccessCount,
			LastAccessedAt: entry.LastAccessedAt,
		})
	}
	return snap
}

// persist writes the current snapshot. Failures are logged and counted,
// never returned. persistMu keeps writes in mutation order.
func (c *Bounded[V]) persist() {
	if !c.persistEnabled() {
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	snap := c.snapshotLocked(c.now())
	c.mu.Unlock()

	data, err := c.codec.Marshal(snap)
	if err != nil {
		c.recordPersistError()
		c.logger.Warn("Failed to encode cache snapshot", "codec", c.codec.Name(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
	defer cancel()

	if err := c.store.Write(ctx, c.namespace, data); err != nil {
		c.recordPersistError()
		c.logger.Warn("Failed to persist cache snapshot",
			"entries", len(snap.Entries), "bytes", len(data), "error", err)
	}
}

// load rehydrates entries written by an earlier instance. Entries whose TTL
// has lapsed are skipped. Any failure leaves the cache empty.
func (c *Bounded[V]) load(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PersistTimeout)
	defer cancel()

	data, err := c.store.Read(ctx, c.namespace)
	if err != nil {
		if errors.IsNotFound(err) {
			c.logger.Debug("No persisted cache snapshot")
			return
		}
		c.recordPersistError()
		c.logger.Warn("Failed to read persisted cache", "error", err)
		return
	}

	var snap snapshot[V]
	if err := c.codec.Unmarshal(data, &snap); err != nil {
		c.recordPersistError()
		c.logger.Warn("Discarding malformed cache snapshot", "codec", c.codec.Name(), "error", err)
		return
	}

	entries := snap.Entries
	if len(entries) > c.cfg.MaxPersistEntries {
		entries = entries[:c.cfg.MaxPersistEntries]
	}

	c.mu.Lock()
	now := c.now()
	loaded, skipped := 0, 0
	// least recent first so the most recent ends up at the front
	for i := len(entries) - 1; i >= 0; i-- {
		pe := entries[i]
		if pe.Key == "" || pe.TTL <= 0 || now.Sub(pe.CreatedAt) > pe.TTL {
			skipped++
			continue
		}
		if element, ok := c.items[pe.Key]; ok {
			c.removeLocked(element)
		}

		size := c.sizer(pe.Value)
		if size < 0 {
			size = 0
		}
		if size > c.cfg.MaxMemoryBytes {
			skipped++
			continue
		}
		c.makeRoomLocked(size, now)

		lastAccessed := pe.LastAccessedAt
		if lastAccessed.Before(pe.CreatedAt) {
			lastAccessed = pe.CreatedAt
		}
		accessCount := pe.AccessCount
		if accessCount < 1 {
			accessCount = 1
		}
		c.insertLocked(&Entry[V]{
			Key:            pe.Key,
			Value:          pe.Value,
			CreatedAt:      pe.CreatedAt,
			TTL:            pe.TTL,
			AccessCount:    accessCount,
			LastAccessedAt: lastAccessed,
			SizeBytes:      size,
		})
		loaded++
	}
	c.updateResidentLocked()
	c.mu.Unlock()

	c.logger.Info("Rehydrated cache from durable store", "loaded", loaded, "skipped", skipped)
}

// SnapshotInfo describes a persisted snapshot without loading it.
type SnapshotInfo struct {
	Namespace string
	Version   int
	SavedAt   time.Time
	Bytes     int
	Entries   []SnapshotEntry
}

// SnapshotEntry is the metadata of one persisted entry.
type SnapshotEntry struct {
	Key            string
	CreatedAt      time.Time
	TTL            time.Duration
	AccessCount    int64
	LastAccessedAt time.Time
	Expired        bool
}

// ReadSnapshot reads the record stored for namespace and reports its entries,
// most recently used first. Expired is evaluated against now. A missing record
// returns an error for which errors.IsNotFound is true.
func ReadSnapshot(ctx context.Context, store DurableStore, codec Codec, namespace string, now time.Time) (SnapshotInfo, error) {
	if store == nil {
		return SnapshotInfo{}, errors.WrapInvalid(errors.ErrMissingConfig, "cache", "ReadSnapshot", "durable store is required")
	}
	if codec == nil {
		codec = JSONCodec{}
	}

	data, err := store.Read(ctx, namespace)
	if err != nil {
		return SnapshotInfo{}, err
	}

	// values decode generically and are dropped
	var header snapshot[any]
	if err := codec.Unmarshal(data, &header); err != nil {
		return SnapshotInfo{}, errors.WrapInvalid(errors.ErrDataCorrupted, "cache", "ReadSnapshot",
			"decode "+codec.Name()+" snapshot: "+err.Error())
	}

	info := SnapshotInfo{
		Namespace: header.Namespace,
		Version:   header.Version,
		SavedAt:   header.SavedAt,
		Bytes:     len(data),
		Entries:   make([]SnapshotEntry, 0, len(header.Entries)),
	}
	for _, pe := range header.Entries {
		info.Entries = append(info.Entries, SnapshotEntry{
			Key:            pe.Key,
			CreatedAt:      pe.CreatedAt,
			TTL:            pe.TTL,
			AccessCount:    pe.AccessCount,
			LastAccessedAt: pe.LastAccessedAt,
			Expired:        pe.TTL <= 0 || now.Sub(pe.CreatedAt) > pe.TTL,
		})
	}
	return info, nil
}
