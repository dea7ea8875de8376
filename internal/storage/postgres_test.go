package storage

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"storefront-state/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	getSQL    = regexp.QuoteMeta(`SELECT value FROM kv_store WHERE scope = $1 AND key = $2`)
	setSQL    = regexp.QuoteMeta(`INSERT INTO kv_store (scope, key, value, updated_at)`)
	removeSQL = regexp.QuoteMeta(`DELETE FROM kv_store WHERE scope = $1 AND key = $2`)
)

func setupPostgresStoreMocks(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare(getSQL)
	mock.ExpectPrepare(setSQL)
	mock.ExpectPrepare(removeSQL)
}

func newMockedStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	setupPostgresStoreMocks(mock)
	s, err := NewPostgresStore(db, "storefront")
	require.NoError(t, err)
	return s, mock, db
}

func TestNewPostgresStore(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		assert.NotNil(t, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails_when_prepare_get_fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare(getSQL).WillReturnError(errors.New("prepare failed"))

		s, err := NewPostgresStore(db, "storefront")
		require.Error(t, err)
		assert.Nil(t, s)
		assert.Contains(t, err.Error(), "failed to prepare get statement")
	})

	t.Run("fails_when_prepare_set_fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare(getSQL)
		mock.ExpectPrepare(setSQL).WillReturnError(errors.New("prepare failed"))

		_, err = NewPostgresStore(db, "storefront")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to prepare set statement")
	})
}

func TestPostgresStore_Get(t *testing.T) {
	t.Run("returns_value", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		mock.ExpectQuery(getSQL).
			WithArgs("storefront", KeyAuthData).
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"token":"t"}`))

		v, ok, err := s.Get(KeyAuthData)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"token":"t"}`, v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no_rows_is_missing", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		mock.ExpectQuery(getSQL).
			WithArgs("storefront", KeyAuthData).
			WillReturnError(sql.ErrNoRows)

		_, ok, err := s.Get(KeyAuthData)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("driver_error_is_persistence_unavailable", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		mock.ExpectQuery(getSQL).
			WithArgs("storefront", KeyAuthData).
			WillReturnError(errors.New("connection reset"))

		_, _, err := s.Get(KeyAuthData)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("missing_table_hints_at_migrations", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		mock.ExpectQuery(getSQL).
			WithArgs("storefront", KeyAuthData).
			WillReturnError(&pq.Error{Code: pqUndefinedTable, Message: `relation "kv_store" does not exist`})

		_, _, err := s.Get(KeyAuthData)
		require.Error(t, err)
		assert.True(t, IsUndefinedTable(err))
		assert.Contains(t, err.Error(), "run migrations first")
	})
}

func TestPostgresStore_Set(t *testing.T) {
	t.Run("upserts_value", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		mock.ExpectExec(setSQL).
			WithArgs("storefront", KeyShoppingCart, "[]").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Set(KeyShoppingCart, "[]"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure_is_persistence_unavailable", func(t *testing.T) {
		s, mock, db := newMockedStore(t)
		defer db.Close()

		mock.ExpectExec(setSQL).
			WithArgs("storefront", KeyShoppingCart, "[]").
			WillReturnError(errors.New("disk full"))

		err := s.Set(KeyShoppingCart, "[]")
		assert.ErrorIs(t, err, domain.ErrPersistenceUnavailable)
	})
}

func TestPostgresStore_Remove(t *testing.T) {
	s, mock, db := newMockedStore(t)
	defer db.Close()

	mock.ExpectExec(removeSQL).
		WithArgs("storefront", KeyAuthData).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Remove(KeyAuthData))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUndefinedTable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain_error", errors.New("boom"), false},
		{"unique_violation", &pq.Error{Code: "23505"}, false},
		{"undefined_table", &pq.Error{Code: pqUndefinedTable}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUndefinedTable(tt.err))
		})
	}
}
