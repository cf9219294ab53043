// Package natsclient manages a NATS connection and the JetStream key-value
// buckets that back durable cache snapshots.
//
// # Client
//
// Client wraps a nats.Conn and its JetStream context. Connection failures are
// counted; after a threshold (WithCircuitBreakerThreshold, default 5) the
// circuit opens and Connect fails fast with ErrCircuitOpen until the backoff
// elapses. The backoff doubles on every further round of failures, capped by
// WithMaxBackoff.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("boundcache"),
//		natsclient.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
// # Key-Value
//
// CreateKeyValueBucket returns an existing bucket or creates it, tolerating a
// concurrent creator. KVStore adds per-call timeouts, a value size limit, and
// retry with exponential backoff for transient failures:
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "boundcache"})
//	kv := client.NewKVStore(bucket)
//	_, err = kv.Put(ctx, "sessions", data)
//
// Missing keys are reported as errors wrapping errors.ErrKeyNotFound so
// callers can test them with errors.IsNotFound.
//
// # Testing
//
// NewTestClient starts a NATS server with testcontainers-go and returns a
// connected client. Tests using it carry the integration build tag:
//
//	go test -tags integration ./natsclient/...
package natsclient
