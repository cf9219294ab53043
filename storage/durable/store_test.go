package durable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boundcache/errors"
)

// exerciseStore checks the behavior every Store must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Read(ctx, "absent")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "absent namespace reports not found: %v", err)

	require.NoError(t, store.Write(ctx, "sessions", []byte("v1")))
	data, err := store.Read(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)

	require.NoError(t, store.Write(ctx, "sessions", []byte("v2")))
	data, err = store.Read(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data, "write replaces the record")

	// namespaces that differ only in punctuation stay separate
	require.NoError(t, store.Write(ctx, "a.b", []byte("dot")))
	require.NoError(t, store.Write(ctx, "a_b", []byte("underscore")))
	data, err = store.Read(ctx, "a.b")
	require.NoError(t, err)
	assert.Equal(t, []byte("dot"), data)

	require.NoError(t, store.Delete(ctx, "sessions"))
	_, err = store.Read(ctx, "sessions")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.Delete(ctx, "sessions"), "deleting a missing record is not an error")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	assert.ElementsMatch(t, []string{"a.b", "a_b"}, store.Namespaces())
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, store.Write(ctx, "ns", buf))
	buf[0] = 'X'

	data, err := store.Read(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data[1] = 'Y'
	again, _ := store.Read(ctx, "ns")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.Write(ctx, "ns", nil), context.Canceled)
	_, err := store.Read(ctx, "ns")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStore_NamespaceCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), "../../etc/passwd", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.Contains(entries[0].Name(), "/"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), snapshotExt))
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Write(context.Background(), "ns", []byte("data")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestEncodeKey(t *testing.T) {
	tests := map[string]string{
		"sessions":     "sessions",
		"user-cache_1": "user-cache_1",
		"a.b":          "a=2Eb",
		"a/b":          "a=2Fb",
		"a=b":          "a=3Db",
		"..":           "=2E=2E",
		"héllo":        "h=C3=A9llo",
	}
	for in, want := range tests {
		assert.Equal(t, want, EncodeKey(in), in)
	}
}

func TestBoundedKey(t *testing.T) {
	short := boundedKey("p:", "ns", 250)
	assert.Equal(t, "p:ns", short)

	long := boundedKey("p:", strings.Repeat("x", 300), 250)
	assert.LessOrEqual(t, len(long), 250)
	assert.True(t, strings.HasPrefix(long, "p:sha256-"))
	assert.NotEqual(t, long, boundedKey("p:", strings.Repeat("y", 300), 250))
}

func TestStoreConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"empty is memory", StoreConfig{}, false},
		{"memory", StoreConfig{Type: TypeMemory}, false},
		{"file without dir", StoreConfig{Type: TypeFile}, true},
		{"file", StoreConfig{Type: TypeFile, Dir: "/tmp/x"}, false},
		{"nats", StoreConfig{Type: TypeNATS}, false},
		{"memcached without servers", StoreConfig{Type: TypeMemcached}, true},
		{"memcached", StoreConfig{Type: TypeMemcached, Servers: []string{"localhost:11211"}}, false},
		{"memcached 30 days", StoreConfig{Type: TypeMemcached, Servers: []string{"localhost:11211"}, ExpirationSeconds: 2592000}, false},
		{"memcached over 30 days", StoreConfig{Type: TypeMemcached, Servers: []string{"localhost:11211"}, ExpirationSeconds: 2592001}, true},
		{"unknown type", StoreConfig{Type: "redis"}, true},
		{"unknown codec", StoreConfig{Codec: "xml"}, true},
		{"msgpack codec", StoreConfig{Codec: "msgpack"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStoreConfig_WithDefaults(t *testing.T) {
	nats := StoreConfig{Type: TypeNATS}.WithDefaults()
	assert.Equal(t, DefaultBucket, nats.Bucket)
	assert.Equal(t, "json", nats.Codec)

	mc := StoreConfig{Type: TypeMemcached}.WithDefaults()
	assert.Equal(t, DefaultMemcachedPrefix, mc.Prefix)
	assert.Equal(t, 86400, mc.ExpirationSeconds)

	assert.Equal(t, TypeMemory, StoreConfig{}.WithDefaults().Type)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, StoreConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, StoreConfig{Type: TypeFile, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, StoreConfig{Type: TypeMemcached, Servers: []string{"127.0.0.1:11211"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemcachedStore{}, store)

	_, err = Open(ctx, StoreConfig{Type: TypeNATS}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = Open(ctx, StoreConfig{Type: "bogus"}, nil)
	assert.Error(t, err)
}

// fakeMemcache is an in-memory stand-in for *memcache.Client.
type fakeMemcache struct {
	items   map[string]*memcache.Item
	failAll error
}

func newFakeMemcache() *fakeMemcache {
	return &fakeMemcache{items: make(map[string]*memcache.Item)}
}

func (f *fakeMemcache) Get(key string) (*memcache.Item, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	item, ok := f.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (f *fakeMemcache) Set(item *memcache.Item) error {
	if f.failAll != nil {
		return f.failAll
	}
	f.items[item.Key] = item
	return nil
}

func (f *fakeMemcache) Delete(key string) error {
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.items[key]; !ok {
		return memcache.ErrCacheMiss
	}
	delete(f.items, key)
	return nil
}

func TestMemcachedStore(t *testing.T) {
	fake := newFakeMemcache()
	store := newMemcachedStore(fake, "bc:", time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Write(context.Background(), "users", []byte("x")))
	item, ok := fake.items["bc:users"]
	require.True(t, ok, "key is prefix plus encoded namespace")
	assert.Equal(t, int32(3600), item.Expiration)
}

func TestMemcachedStore_LongExpirationIsAbsolute(t *testing.T) {
	fake := newFakeMemcache()
	store := newMemcachedStore(fake, "bc:", 60*24*time.Hour)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Write(context.Background(), "ns", []byte("x")))
	item := fake.items["bc:ns"]
	require.NotNil(t, item)
	assert.Equal(t, int32(now.Add(60*24*time.Hour).Unix()), item.Expiration)

	store = newMemcachedStore(fake, "bc:", MaxMemcachedRelativeExpiration)
	require.NoError(t, store.Write(context.Background(), "ns", []byte("x")))
	assert.Equal(t, int32(2592000), fake.items["bc:ns"].Expiration, "30 days stays relative")

	store = newMemcachedStore(fake, "bc:", 0)
	require.NoError(t, store.Write(context.Background(), "ns", []byte("x")))
	assert.Zero(t, fake.items["bc:ns"].Expiration)
}

func TestMemcachedStore_Errors(t *testing.T) {
	fake := newFakeMemcache()
	store := newMemcachedStore(fake, "bc:", 0)
	ctx := context.Background()

	fake.failAll = memcache.ErrServerError
	err := store.Write(ctx, "ns", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	_, err = store.Read(ctx, "ns")
	assert.True(t, errors.IsTransient(err))

	fake.failAll = memcache.ErrMalformedKey
	err = store.Delete(ctx, "ns")
	assert.True(t, errors.IsInvalid(err))
}
