package config

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresConnection_InvalidURL(t *testing.T) {
	db, err := NewPostgresConnection(context.Background(), "invalid://malformed")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestConfigurePool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db)

	assert.Equal(t, maxOpenConns, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		assert.NoError(t, ping(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure_is_wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
		err = ping(context.Background(), db)
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Contains(t, err.Error(), "database ping failed")
	})

	t.Run("cancelled_context", func(t *testing.T) {
		db, _, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, ping(ctx, db))
	})
}
