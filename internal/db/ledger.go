package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karuppiah-t/transfercore/internal/domain"
)

// LedgerRepository implements domain.LedgerRepository on Postgres.
// Transaction and audit rows are append-only; the only in-place change is
// the started -> terminal status transition inside the same unit of work.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *LedgerRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		"INSERT INTO transactions (reference, from_account, to_account, amount, status, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		tx.Reference.String(), tx.FromAccount, tx.ToAccount, tx.Amount.String(), string(tx.Status), tx.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("transaction insert failed: %w", err))
	}
	tx.ID = id
	return id, nil
}

func (r *LedgerRepository) UpdateTransactionStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	tag, err := r.q(ctx).Exec(ctx,
		"UPDATE transactions SET status = $2 WHERE id = $1", id, string(status))
	if err != nil {
		return classify(fmt.Errorf("transaction status update failed: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d not found", id)
	}
	return nil
}

func (r *LedgerRepository) AppendAuditLog(ctx context.Context, action, details string) error {
	_, err := r.q(ctx).Exec(ctx,
		"INSERT INTO audit_log (action, details) VALUES ($1, $2)", action, details)
	if err != nil {
		return classify(fmt.Errorf("audit log append failed: %w", err))
	}
	return nil
}

// GetTransaction retrieves a single ledger transaction by id.
func (r *LedgerRepository) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var (
		t         domain.Transaction
		reference string
		amountStr string
		status    string
		createdAt time.Time
	)
	err := r.q(ctx).QueryRow(ctx,
		"SELECT id, reference::text, from_account, to_account, amount::text, status, created_at FROM transactions WHERE id = $1",
		id).Scan(&t.ID, &reference, &t.FromAccount, &t.ToAccount, &amountStr, &status, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %d not found", id)
		}
		return nil, classify(fmt.Errorf("transaction lookup failed: %w", err))
	}
	ref, err := uuid.Parse(reference)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction reference %q: %w", reference, err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction amount %q: %w", amountStr, err)
	}
	t.Reference = ref
	t.Amount = amount
	t.Status = domain.TransactionStatus(status)
	t.CreatedAt = createdAt
	return &t, nil
}
