package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// WithTx runs fn inside a repeatable-read transaction. Any error from fn or
// from commit rolls back every mutation performed in the same invocation;
// there is no partial outcome. This is the single unit-of-work entry point
// every mutating workflow goes through.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return shared.NewInfrastructure("begin transaction", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return ClassifyError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ClassifyError(shared.NewInfrastructure("commit transaction", err))
	}

	return nil
}

// ClassifyError maps store-level failures onto the shared taxonomy. Domain
// errors already carrying a kind pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var classified *shared.Error
	if errors.As(err, &classified) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization failure, deadlock
			return shared.NewConflict("concurrent update detected", err)
		case "23505": // unique violation
			return shared.NewConflict("duplicate record", err)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NewNotFound("not found")
	}
	return shared.NewInfrastructure("store failure", err)
}
