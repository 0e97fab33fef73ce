package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// WithTransaction runs fn inside a read-committed transaction, committing on
// success and rolling back when fn returns an error.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// WithRetry is WithTransaction retried on deadlocks, serialization failures
// and lock timeouts, with a doubling backoff starting at 20ms.
func WithRetry(ctx context.Context, db *sql.DB, maxRetries int, fn func(*sql.Tx) error) error {
	backoff := 20 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := WithTransaction(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, err)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}
