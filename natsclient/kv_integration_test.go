//go:build integration

package natsclient

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/boundcache/errors"
)

func TestKVStore_Integration(t *testing.T) {
	testClient := NewTestClient(t, WithJetStream())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, kvConfig("kv-integration"))
	require.NoError(t, err)

	// second create returns the existing bucket
	again, err := client.CreateKeyValueBucket(ctx, kvConfig("kv-integration"))
	require.NoError(t, err)
	assert.Equal(t, bucket.Bucket(), again.Bucket())

	kv := client.NewKVStore(bucket, func(o *KVOptions) { o.MaxValueSize = 16 })

	t.Run("put and get", func(t *testing.T) {
		rev, err := kv.Put(ctx, "alpha", []byte("one"))
		require.NoError(t, err)
		assert.Positive(t, rev)

		entry, err := kv.Get(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), entry.Value)
		assert.Equal(t, rev, entry.Revision)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := kv.Get(ctx, "missing")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("value too large", func(t *testing.T) {
		_, err := kv.Put(ctx, "big", []byte(strings.Repeat("x", 17)))
		assert.ErrorIs(t, err, errors.ErrValueTooLarge)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Delete(ctx, "alpha"))
		_, err := kv.Get(ctx, "alpha")
		assert.True(t, errors.IsNotFound(err))
		require.NoError(t, kv.Delete(ctx, "never-written"))
	})

	t.Run("keys", func(t *testing.T) {
		_, err := kv.Put(ctx, "beta", []byte("2"))
		require.NoError(t, err)
		keys, err := kv.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, "beta")
	})
}

func TestClient_BucketLifecycle(t *testing.T) {
	testClient := NewTestClient(t, WithKVBuckets("preset"))
	client := testClient.Client
	ctx := context.Background()

	assert.True(t, client.IsHealthy())
	_, err := client.RTT()
	require.NoError(t, err)

	_, err = client.GetKeyValueBucket(ctx, "preset")
	require.NoError(t, err)

	require.NoError(t, client.DeleteKeyValueBucket(ctx, "preset"))
	_, err = client.GetKeyValueBucket(ctx, "preset")
	assert.True(t, errors.IsNotFound(err))
}
