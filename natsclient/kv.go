package natsclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/boundcache/errors"
	"github.com/c360/boundcache/pkg/retry"
)

// KVEntry wraps a KV entry with its revision
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVOptions configures KV operations behavior
type KVOptions struct {
	MaxRetries    int           // Additional attempts after a transient failure
	RetryDelay    time.Duration // Initial delay between retries
	MaxRetryDelay time.Duration // Maximum delay between retries
	Timeout       time.Duration // Per-operation timeout, including retries
	MaxValueSize  int           // Maximum value size in bytes (0 disables the check)
}

// DefaultKVOptions returns the defaults used for cache snapshots.
func DefaultKVOptions() KVOptions {
	return KVOptions{
		MaxRetries:    2,
		RetryDelay:    25 * time.Millisecond,
		MaxRetryDelay: 500 * time.Millisecond,
		Timeout:       5 * time.Second,
		MaxValueSize:  1024 * 1024,
	}
}

// KVStore provides Get/Put/Delete over a JetStream KV bucket, retrying
// transient failures and mapping NATS errors to classified errors.
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  *slog.Logger
}

// NewKVStore creates a new KV store with the given bucket
func (m *Client) NewKVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  m.logger.With("bucket", bucket.Bucket()),
	}
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

func (kv *KVStore) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  kv.options.MaxRetries + 1,
		InitialDelay: kv.options.RetryDelay,
		MaxDelay:     kv.options.MaxRetryDelay,
		Multiplier:   2.0,
		AddJitter:    true,
		RetryIf:      errors.IsTransient,
	}
}

// Get retrieves a value with its revision. A missing key returns an error
// wrapping errors.ErrKeyNotFound.
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	return retry.DoWithResult(ctx, kv.retryConfig(), func() (*KVEntry, error) {
		entry, err := kv.bucket.Get(ctx, key)
		if err != nil {
			return nil, classifyKVError(err, "Get", key)
		}
		return &KVEntry{
			Key:      key,
			Value:    entry.Value(),
			Revision: entry.Revision(),
		}, nil
	})
}

// Put creates or updates a key (last writer wins)
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return 0, errors.WrapInvalid(errors.ErrValueTooLarge, "KVStore", "Put",
			fmt.Sprintf("size %d exceeds maximum %d", len(value), kv.options.MaxValueSize))
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	rev, err := retry.DoWithResult(ctx, kv.retryConfig(), func() (uint64, error) {
		rev, err := kv.bucket.Put(ctx, key, value)
		if err != nil {
			return 0, classifyKVError(err, "Put", key)
		}
		return rev, nil
	})
	if err != nil {
		return 0, err
	}

	kv.logger.Debug("KV put", "key", key, "revision", rev, "bytes", len(value))
	return rev, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	err := retry.Do(ctx, kv.retryConfig(), func() error {
		if err := kv.bucket.Delete(ctx, key); err != nil {
			return classifyKVError(err, "Delete", key)
		}
		return nil
	})
	if err != nil && errors.IsNotFound(err) {
		return nil
	}
	return err
}

// Keys lists the keys currently in the bucket.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, classifyKVError(err, "Keys", "")
	}
	return keys, nil
}

// classifyKVError maps jetstream errors onto the error classes used by retry
// and by callers checking errors.IsNotFound.
func classifyKVError(err error, method, key string) error {
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound), errors.Is(err, jetstream.ErrKeyDeleted):
		return errors.WrapInvalid(errors.ErrKeyNotFound, "KVStore", method, key)
	case errors.Is(err, jetstream.ErrBucketNotFound):
		return errors.WrapFatal(errors.ErrBucketNotFound, "KVStore", method, key)
	case errors.Is(err, jetstream.ErrInvalidKey):
		return errors.WrapInvalid(err, "KVStore", method, key)
	case errors.Is(err, context.Canceled):
		return errors.WrapFatal(err, "KVStore", method, key)
	default:
		return errors.WrapTransient(err, "KVStore", method, key)
	}
}
