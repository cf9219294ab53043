package durable

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/c360/boundcache/errors"
)

// memcached rejects keys longer than this
const maxMemcachedKey = 250

// MaxMemcachedRelativeExpiration is the longest expiration memcached reads as
// relative. Larger values are taken as absolute Unix times.
const MaxMemcachedRelativeExpiration = 30 * 24 * time.Hour

// memcacheClient is the subset of *memcache.Client the store uses.
type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// MemcachedStore keeps records in memcached under prefix+namespace. Records
// expire after the configured expiration, so a cache that is not written for
// that long starts empty.
type MemcachedStore struct {
	client     memcacheClient
	prefix     string
	expiration time.Duration
	now        func() time.Time
}

// NewMemcachedStore creates a store backed by the given servers.
// expiration <= 0 keeps records until memcached evicts them.
func NewMemcachedStore(servers []string, prefix string, expiration time.Duration) *MemcachedStore {
	return newMemcachedStore(memcache.New(servers...), prefix, expiration)
}

func newMemcachedStore(client memcacheClient, prefix string, expiration time.Duration) *MemcachedStore {
	if expiration < 0 {
		expiration = 0
	}
	return &MemcachedStore{client: client, prefix: prefix, expiration: expiration, now: time.Now}
}

// itemExpiration converts the configured expiration to memcached's format:
// seconds from now up to 30 days, an absolute Unix time beyond that.
func (s *MemcachedStore) itemExpiration() int32 {
	switch {
	case s.expiration <= 0:
		return 0
	case s.expiration <= MaxMemcachedRelativeExpiration:
		return int32(s.expiration / time.Second)
	default:
		return int32(s.now().Add(s.expiration).Unix())
	}
}

func (s *MemcachedStore) key(namespace string) string {
	return boundedKey(s.prefix, namespace, maxMemcachedKey)
}

// Read returns the record for namespace.
func (s *MemcachedStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := s.client.Get(s.key(namespace))
	if err != nil {
		if stderrors.Is(err, memcache.ErrCacheMiss) {
			return nil, notFound("MemcachedStore", "Read", namespace)
		}
		return nil, classifyMemcacheError(err, "Read")
	}
	return item.Value, nil
}

// Write replaces the record for namespace.
func (s *MemcachedStore) Write(ctx context.Context, namespace string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.client.Set(&memcache.Item{
		Key:        s.key(namespace),
		Value:      data,
		Expiration: s.itemExpiration(),
	})
	if err != nil {
		return classifyMemcacheError(err, "Write")
	}
	return nil
}

// Delete removes the record for namespace, if any.
func (s *MemcachedStore) Delete(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.client.Delete(s.key(namespace))
	if err != nil && !stderrors.Is(err, memcache.ErrCacheMiss) {
		return classifyMemcacheError(err, "Delete")
	}
	return nil
}

func classifyMemcacheError(err error, method string) error {
	if stderrors.Is(err, memcache.ErrMalformedKey) {
		return errors.WrapInvalid(err, "MemcachedStore", method, "malformed key")
	}
	return errors.WrapTransient(err, "MemcachedStore", method, "memcached request")
}
