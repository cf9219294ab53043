//go:build integration

package durable

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/c360/boundcache/natsclient"
)

func TestNATSStore_Integration(t *testing.T) {
	testClient := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()

	store, err := NewNATSStore(ctx, testClient.Client, "durable-integration")
	require.NoError(t, err)
	require.Equal(t, "durable-integration", store.Bucket())

	exerciseStore(t, store)

	opened, err := Open(ctx, StoreConfig{Type: TypeNATS, Bucket: "durable-integration"}, testClient.Client)
	require.NoError(t, err)
	data, err := opened.Read(ctx, "a.b")
	require.NoError(t, err)
	require.Equal(t, []byte("dot"), data, "a second store on the bucket sees the same records")
}

func startMemcached(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "memcached:1.6-alpine",
			ExposedPorts: []string{"11211/tcp"},
			WaitingFor:   wait.ForListeningPort("11211/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "11211")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestMemcachedStore_Integration(t *testing.T) {
	addr := startMemcached(t)

	store, err := Open(context.Background(), StoreConfig{
		Type:    TypeMemcached,
		Servers: []string{addr},
	}, nil)
	require.NoError(t, err)

	exerciseStore(t, store)
}
