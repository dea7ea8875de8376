//go:build integration
// +build integration

package storage_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"storefront-state/internal/storage"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container, applies the embedded
// migrations and returns an open connection
func setupPostgres(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(t, storage.RunMigrations(connStr), "failed to run migrations")
	// Second run must be a no-op
	require.NoError(t, storage.RunMigrations(connStr))

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err, "failed to connect to PostgreSQL")

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return db, cleanup
}

func TestPostgresStore_Integration(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	s, err := storage.NewPostgresStore(db, "storefront")
	require.NoError(t, err)
	defer s.Close()

	other, err := storage.NewPostgresStore(db, "other-app")
	require.NoError(t, err)
	defer other.Close()

	t.Run("set_get_overwrite_remove", func(t *testing.T) {
		require.NoError(t, s.Set(storage.KeyAuthData, `{"token":"a"}`))
		require.NoError(t, s.Set(storage.KeyAuthData, `{"token":"b"}`))

		v, ok, err := s.Get(storage.KeyAuthData)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"token":"b"}`, v)

		require.NoError(t, s.Remove(storage.KeyAuthData))
		_, ok, err = s.Get(storage.KeyAuthData)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("scopes_are_isolated", func(t *testing.T) {
		require.NoError(t, s.Set(storage.KeyShoppingCart, `[]`))

		_, ok, err := other.Get(storage.KeyShoppingCart)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
