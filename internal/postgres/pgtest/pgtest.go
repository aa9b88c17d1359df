// Package pgtest starts a throwaway PostgreSQL for store-backed tests.
package pgtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/postgres"
)

var (
	mu        sync.Mutex
	sharedDSN string
)

// Pool returns a pool connected to a migrated database with all rows removed.
// The container is shared by every test in the package binary. Tests are
// skipped in -short mode or when no container runtime is reachable.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("store-backed test skipped in -short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	dsn := startOnce(t, ctx)

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx,
		`TRUNCATE check_lines, check_tables, checks, menu_items, dining_tables`)
	require.NoError(t, err)

	return pool
}

func startOnce(t *testing.T, ctx context.Context) string {
	t.Helper()

	mu.Lock()
	defer mu.Unlock()

	if sharedDSN != "" {
		return sharedDSN
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tabgo_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := postgres.NewMigrator(dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	sharedDSN = dsn

	return dsn
}
