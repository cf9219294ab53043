// Package durable provides the stores a cache persists its snapshot to.
//
// Each store holds one opaque record per namespace and reports a missing
// record with an error wrapping errors.ErrKeyNotFound:
//
//	store, err := durable.Open(ctx, durable.StoreConfig{Type: "file", Dir: "/var/lib/boundcache"}, nil)
//	sessions, err := cache.New[Session](ctx, "sessions", cache.Config{Persist: true},
//		cache.WithStore[Session](store))
//
// Namespaces are encoded with EncodeKey before they reach a backend, so any
// string is a valid namespace for every store type.
//
// Available stores:
//   - MemoryStore: process memory, for tests and short-lived handover
//   - FileStore: one file per namespace, replaced atomically
//   - NATSStore: a JetStream key-value bucket through natsclient
//   - MemcachedStore: memcached with a key prefix and expiration
package durable
