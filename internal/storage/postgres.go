package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-state/internal/observability"

	"github.com/lib/pq"
)

const (
	defaultQueryTimeout = 5 * time.Second
	pqUndefinedTable    = "42P01"
	kvTable             = "kv_store"
)

// PostgresStore persists values in the kv_store table, one row per
// (scope, key). Calls are synchronous and bounded by a per-query timeout.
type PostgresStore struct {
	db         *sql.DB
	scope      string
	timeout    time.Duration
	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	removeStmt *sql.Stmt
}

// NewPostgresStore creates a PostgresStore with prepared statements.
// Returns an error if statement preparation fails.
func NewPostgresStore(db *sql.DB, scope string) (*PostgresStore, error) {
	s := &PostgresStore{db: db, scope: scope, timeout: defaultQueryTimeout}

	var err error
	s.getStmt, err = db.Prepare(`
		SELECT value FROM kv_store
		WHERE scope = $1 AND key = $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.setStmt, err = db.Prepare(`
		INSERT INTO kv_store (scope, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (scope, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare set statement: %w", err)
	}

	s.removeStmt, err = db.Prepare(`DELETE FROM kv_store WHERE scope = $1 AND key = $2`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare remove statement: %w", err)
	}

	return s, nil
}

// WithTimeout overrides the per-query timeout
func (s *PostgresStore) WithTimeout(d time.Duration) *PostgresStore {
	s.timeout = d
	return s
}

func (s *PostgresStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	defer observeQuery("get", time.Now())

	var value string
	err := s.getStmt.QueryRowContext(ctx, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("read", key, describe(err))
	}
	return value, true, nil
}

func (s *PostgresStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	defer observeQuery("set", time.Now())

	if _, err := s.setStmt.ExecContext(ctx, s.scope, key, value); err != nil {
		return unavailable("write", key, describe(err))
	}
	return nil
}

func (s *PostgresStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	defer observeQuery("remove", time.Now())

	if _, err := s.removeStmt.ExecContext(ctx, s.scope, key); err != nil {
		return unavailable("remove", key, describe(err))
	}
	return nil
}

// Close releases the prepared statements. The *sql.DB stays open.
func (s *PostgresStore) Close() error {
	return errors.Join(s.getStmt.Close(), s.setStmt.Close(), s.removeStmt.Close())
}

func observeQuery(op string, start time.Time) {
	observability.DBQueryDuration.WithLabelValues(op, kvTable).Observe(time.Since(start).Seconds())
}

// IsUndefinedTable checks if an error is a PostgreSQL "relation does not exist" error
func IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqUndefinedTable
}

func describe(err error) error {
	if IsUndefinedTable(err) {
		return fmt.Errorf("%w (run migrations first)", err)
	}
	return err
}
