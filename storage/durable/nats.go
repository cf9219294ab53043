package durable

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/boundcache/errors"
	"github.com/c360/boundcache/natsclient"
)

// NATSStore keeps records in a JetStream key-value bucket, one key per
// namespace. Only the latest revision is retained.
type NATSStore struct {
	bucket string
	kv     *natsclient.KVStore
}

// NewNATSStore creates or opens bucket on a connected client.
func NewNATSStore(ctx context.Context, client *natsclient.Client, bucket string, opts ...func(*natsclient.KVOptions)) (*NATSStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	kvBucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "boundcache snapshots",
		History:     1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "NATSStore", "NewNATSStore", "open bucket "+bucket)
	}

	return &NATSStore{
		bucket: bucket,
		kv:     client.NewKVStore(kvBucket, opts...),
	}, nil
}

// Bucket returns the KV bucket name.
func (s *NATSStore) Bucket() string {
	return s.bucket
}

// Read returns the record for namespace.
func (s *NATSStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, EncodeKey(namespace))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, notFound("NATSStore", "Read", namespace)
		}
		return nil, err
	}
	return entry.Value, nil
}

// Write replaces the record for namespace.
func (s *NATSStore) Write(ctx context.Context, namespace string, data []byte) error {
	_, err := s.kv.Put(ctx, EncodeKey(namespace), data)
	return err
}

// Delete removes the record for namespace, if any.
func (s *NATSStore) Delete(ctx context.Context, namespace string) error {
	return s.kv.Delete(ctx, EncodeKey(namespace))
}
