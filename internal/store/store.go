// Package store is the Postgres implementation of the scheduling ledgers.
// All SQL lives here; multi-step writes run inside a single transaction so
// the engine's book/cancel effects commit or roll back as one unit.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaccine-reservation-api/internal/scheduling"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same ledger methods serve auto-commit reads and transactional writes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ledger struct {
	db querier
}

type Store struct {
	ledger
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{ledger: ledger{db: pool}, pool: pool}
}

// InTx runs fn against one transaction. fn returning an error rolls
// everything back; business-rule sentinels pass through unchanged.
func (s *Store) InTx(ctx context.Context, fn func(scheduling.Ledger) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ledger{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

// storageErr classifies driver errors the ledger methods did not map to a
// business sentinel. Anything that is not a server-reported SQL error is
// treated as a connectivity failure.
func storageErr(err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return fmt.Errorf("postgres: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", scheduling.ErrStorageUnavailable, err)
}

// uniqueViolation reports whether err is a violation of the named unique
// constraint; an empty name matches any unique violation.
func uniqueViolation(err error, constraint string) bool {
	var pge *pgconn.PgError
	if !errors.As(err, &pge) || pge.Code != "23505" {
		return false
	}
	return constraint == "" || pge.ConstraintName == constraint
}

var _ scheduling.Storage = (*Store)(nil)
