package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karuppiah-t/transfercore/internal/domain"
)

// txKey is the context key under which the open transaction travels.
type txKey struct{}

// TransactionManager implements domain.TransactionManager on Postgres.
// Repositories in this package pick up the open transaction from the
// context, so everything executed inside WithTransaction commits or rolls
// back as one unit.
type TransactionManager struct {
	pool *pgxpool.Pool
	// lockTimeout bounds how long a unit blocks waiting for a row lock.
	// Exceeding it aborts the statement with SQLSTATE 55P03, which is
	// classified as transient and therefore retried.
	lockTimeout time.Duration
}

func NewTransactionManager(pool *pgxpool.Pool, lockTimeout time.Duration) *TransactionManager {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &TransactionManager{pool: pool, lockTimeout: lockTimeout}
}

// WithTransaction runs fn inside a single database transaction with
// REPEATABLE READ isolation. Row locks acquired by repositories are held
// until commit or rollback.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := tm.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return classify(fmt.Errorf("tx begin failed: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", tm.lockTimeout.Milliseconds())); err != nil {
		return classify(fmt.Errorf("set lock_timeout failed: %w", err))
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("tx commit failed: %w", err))
	}
	return nil
}

// getTx retrieves the open transaction from the context, or nil.
func getTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// querier is the query surface shared by pgx.Tx and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// classify maps storage failures onto the domain's retry taxonomy.
// Serialization failures and deadlocks become domain.ErrConflict;
// lock-wait timeouts, cancelled statements and connection faults become
// domain.ErrTransient. Everything else passes through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		case "55P03", "57014": // lock_not_available, query_canceled
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		if strings.HasPrefix(pgErr.Code, "08") { // connection exceptions
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		return err
	}
	if pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}
