// Package redistest starts a throwaway Redis for cache and limiter tests.
package redistest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisx "github.com/kirinyoku/tabgo/internal/redis"
)

var (
	mu         sync.Mutex
	sharedAddr string
)

// Client returns a client on a flushed database. Skipped in -short mode or
// when no container runtime is reachable.
func Client(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("redis-backed test skipped in -short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	rdb, err := redisx.New(ctx, redisx.Config{Addr: startOnce(t, ctx)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, rdb.FlushDB(ctx).Err())

	return rdb
}

func startOnce(t *testing.T, ctx context.Context) string {
	t.Helper()

	mu.Lock()
	defer mu.Unlock()

	if sharedAddr != "" {
		return sharedAddr
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	sharedAddr = fmt.Sprintf("%s:%s", host, port.Port())

	return sharedAddr
}
