package domain

import "context"

// AccountRepository is the storage contract the orchestrator depends on.
// Implementations must make LockAndFetchByIDs acquire an exclusive, blocking
// row lock on every id, held until the enclosing unit of work ends.
type AccountRepository interface {
	// FindByNumber resolves a business account number to its row.
	// Returns ErrAccountNotFound when no such account exists.
	FindByNumber(ctx context.Context, number string) (*Account, error)

	// LockAndFetchByIDs locks the identified rows exclusively and returns
	// them sorted ascending by id. Callers must pass ids already sorted
	// ascending so every concurrent unit requests locks in the same global
	// order.
	LockAndFetchByIDs(ctx context.Context, ids []int64) ([]*Account, error)

	// Save persists the balance and increments the version. Returns
	// ErrStaleVersion if the version the caller holds no longer matches
	// storage.
	Save(ctx context.Context, account *Account) error
}

// LedgerRepository appends transfer attempts and operational events.
// Rows are never mutated after the enclosing unit commits, except for the
// started -> terminal status transition within the same unit.
type LedgerRepository interface {
	InsertTransaction(ctx context.Context, tx *Transaction) (int64, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status TransactionStatus) error
	AppendAuditLog(ctx context.Context, action, details string) error
}

// TransactionManager runs fn inside one atomic unit of work. All reads and
// writes made through ctx-aware repositories become visible together on
// commit, or not at all when fn returns an error.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher fans out transfer-completed notifications. Publishing is
// fire-and-forget: failures must never affect the committed transfer.
type EventPublisher interface {
	PublishTransferCompleted(ctx context.Context, event TransferEvent) error
}
