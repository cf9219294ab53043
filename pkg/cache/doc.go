// Package cache provides a generic, thread-safe cache bounded by entry count
// and approximate memory, with per-entry TTL, least-recently-used eviction,
// optional persistence to a durable store, and memoization helpers.
//
// # Quick Start
//
//	sessions, err := cache.New[*Session](ctx, "sessions", cache.Config{
//		MaxEntries:     5000,
//		MaxMemoryBytes: 16 << 20,
//		DefaultTTL:     30 * time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//	defer sessions.Close()
//
//	_, _ = sessions.Set("abc", s)
//	s, ok := sessions.Get("abc")
//
// Caches are constructed explicitly and passed to the code that needs them;
// there are no package-level instances. Each one has a namespace, used for
// metrics labels, logging and the durable record key.
//
// # Expiry and Eviction
//
// An entry is live while now - CreatedAt <= TTL. Every read path (Get, Has,
// Keys, Stats) treats expired entries as absent and removes them. A
// background sweep every CleanupInterval reclaims entries that are written
// once and never read.
//
// Before an insert, the cache frees room:
//   - expired entries are purged when either bound is reached
//   - at MaxEntries, the least recently used entry is evicted
//   - while memory + size > MaxMemoryBytes, LRU entries are evicted one at a time
//
// Recency is the order of successful Gets and Sets; entries never read since
// insertion are evicted in insertion order. A value whose estimated size alone
// exceeds MaxMemoryBytes is not stored.
//
// Size is estimated by EstimateSize (twice the JSON length, FallbackEntrySize
// for values JSON cannot encode). WithSizer substitutes a precise measure.
//
// # Persistence
//
// With Config.Persist and WithStore, the cache writes a snapshot of up to
// MaxPersistEntries live entries (most recent first) after every mutation and
// reloads unexpired ones at construction. Store failures are logged and
// counted in StatsSummary.PersistErrors; they never fail a cache operation.
// Snapshots are JSON by default; WithCodec(MsgpackCodec{}) selects MessagePack.
//
// # Memoization
//
// Go methods cannot take type parameters, so memoizers are package functions:
//
//	lookup := cache.MemoizeAsync(users, repo.FindUser, nil, time.Minute)
//	u, err := lookup(ctx, "user-42")
//
// MemoizeAsync shares one in-flight call among concurrent callers for the same
// key (golang.org/x/sync/singleflight). Failures are not cached.
//
// # Observability
//
// Statistics are always collected and returned by Stats. WithMetrics also
// exports them to Prometheus as boundcache_cache_* series labelled with the
// component prefix.
package cache
