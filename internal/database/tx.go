package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"battle-arena/internal/constants"
	"battle-arena/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-retry"
)

// Atomically runs fn inside a single transaction. Busy/locked conflicts
// are retried with backoff up to a fixed budget; once the budget is
// exhausted the operation fails with domain.ErrConcurrency. Any other
// error from fn rolls the transaction back and is returned as-is.
func Atomically(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	backoff := retry.WithMaxRetries(constants.TxRetryBudget, retry.NewFibonacci(constants.TxRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			if isBusy(err) {
				return retry.RetryableError(err)
			}
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			if isBusy(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				return retry.RetryableError(err)
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})

	if err != nil && isBusy(err) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrency, err)
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
