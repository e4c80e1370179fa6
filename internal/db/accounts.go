package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karuppiah-t/transfercore/internal/domain"
)

// AccountRepository implements domain.AccountRepository on Postgres.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// FindByNumber resolves a business account number to its row.
func (r *AccountRepository) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	row := r.q(ctx).QueryRow(ctx,
		"SELECT id, account_number, balance::text, version, created_at FROM accounts WHERE account_number = $1",
		number)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
		}
		return nil, classify(fmt.Errorf("account lookup failed: %w", err))
	}
	return acc, nil
}

// LockAndFetchByIDs acquires an exclusive row lock on every id, in ascending
// id order, and returns the rows sorted the same way. Locking one row per
// statement keeps the acquisition order explicit; every concurrent unit
// contends on the lowest id first, so circular wait cannot form.
func (r *AccountRepository) LockAndFetchByIDs(ctx context.Context, ids []int64) ([]*domain.Account, error) {
	ordered := make([]int64, len(ids))
	copy(ordered, ids)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	accounts := make([]*domain.Account, 0, len(ordered))
	for _, id := range ordered {
		row := r.q(ctx).QueryRow(ctx,
			"SELECT id, account_number, balance::text, version, created_at FROM accounts WHERE id = $1 FOR UPDATE",
			id)
		acc, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
			}
			return nil, classify(fmt.Errorf("lock acquisition failed for account %d: %w", id, err))
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// Save persists the balance and bumps the version. The version predicate is
// defense in depth beneath the row lock: if it no longer matches, another
// unit committed between our read and write and the caller must retry.
func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	tag, err := r.q(ctx).Exec(ctx,
		"UPDATE accounts SET balance = $1, version = version + 1 WHERE id = $2 AND version = $3",
		account.Balance.String(), account.ID, account.Version)
	if err != nil {
		return classify(fmt.Errorf("account save failed: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d at version %d", domain.ErrStaleVersion, account.ID, account.Version)
	}
	account.Version++
	return nil
}

// Create inserts a new account. Used by the seeder and tests; transfers
// never create accounts.
func (r *AccountRepository) Create(ctx context.Context, number string, balance decimal.Decimal) (*domain.Account, error) {
	row := r.q(ctx).QueryRow(ctx,
		"INSERT INTO accounts (account_number, balance) VALUES ($1, $2) RETURNING id, account_number, balance::text, version, created_at",
		number, balance.String())
	acc, err := scanAccount(row)
	if err != nil {
		return nil, classify(fmt.Errorf("account create failed: %w", err))
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		acc        domain.Account
		balanceStr string
		createdAt  time.Time
	)
	if err := row.Scan(&acc.ID, &acc.Number, &balanceStr, &acc.Version, &createdAt); err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balanceStr, err)
	}
	acc.Balance = balance
	acc.CreatedAt = createdAt
	return &acc, nil
}
