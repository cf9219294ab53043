// Package boundcache provides bounded in-process caches with optional durable
// snapshots.
//
// A cache holds string keys, evicts by time-to-live and least recent use, and
// keeps its approximate memory below a configured bound. When persistence is
// enabled the live entries are written to a durable store after every
// mutation and read back when a cache with the same namespace starts.
//
// # Layout
//
//	pkg/cache         BoundedCache, statistics, memoization, snapshot codecs
//	storage/durable   durable stores: memory, file, NATS KV, memcached
//	natsclient        NATS connection with circuit breaker and KV helpers
//	config            layered JSON/YAML configuration with env overrides
//	metric            Prometheus registry and HTTP endpoint
//	health            health checks served on /health
//	errors            classified errors (transient, invalid, fatal)
//	pkg/retry         exponential backoff for transient failures
//	cmd/boundcache    daemon hosting the configured caches
//
// # Quick Start
//
//	store := durable.NewMemoryStore()
//	sessions, err := cache.New[Session](ctx, "sessions",
//		cache.Config{MaxEntries: 500, Persist: true},
//		cache.WithStore[Session](store))
//	if err != nil {
//		return err
//	}
//	defer sessions.Close()
//
//	created, err := sessions.Set("user-1", session)
//	value, ok := sessions.Get("user-1")
//
// Expensive lookups can be wrapped so concurrent callers share one call:
//
//	lookup := cache.MemoizeAsync(sessions, loadSession, nil, time.Minute)
//	s, err := lookup(ctx, "user-1")
//
// # Running the Daemon
//
//	./bin/boundcache --config configs/boundcache.yaml
//	./bin/boundcache --config configs/boundcache.yaml --inspect sessions
//
// The daemon does not accept cache reads or writes from other processes. It
// rehydrates and prunes snapshots and exports their metrics and health;
// applications use pkg/cache in-process.
package boundcache
