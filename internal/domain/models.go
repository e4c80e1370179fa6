package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a bank account row. ID is the storage-assigned surrogate
// key used for lock ordering; Number is the business-facing account number.
type Account struct {
	ID      int64           `json:"id"`
	Number  string          `json:"account_number"`
	Balance decimal.Decimal `json:"balance"`
	// Version increments on every committed write and detects stale reads
	// beneath the row lock.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionStatus is the lifecycle state of a ledger transaction row.
// A row moves started -> completed or started -> failed, never both.
type TransactionStatus string

const (
	TransactionStarted   TransactionStatus = "started"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an append-only ledger record of one transfer attempt.
type Transaction struct {
	ID          int64             `json:"id"`
	Reference   uuid.UUID         `json:"reference"`
	FromAccount string            `json:"from_account"`
	ToAccount   string            `json:"to_account"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewTransaction creates a ledger row in the started state.
func NewTransaction(from, to string, amount decimal.Decimal) *Transaction {
	return &Transaction{
		Reference:   uuid.New(),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Status:      TransactionStarted,
		CreatedAt:   time.Now().UTC(),
	}
}

// AuditLog is a free-form operational event. Append-only; no relational
// integrity to accounts or transactions beyond the embedded text.
type AuditLog struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultStatus tags the outcome of a transfer attempt.
type ResultStatus string

const (
	StatusOK                ResultStatus = "OK"
	StatusInsufficientFunds ResultStatus = "INSUFFICIENT_FUNDS"
	StatusConflictRetry     ResultStatus = "CONFLICT_RETRY"
	StatusError             ResultStatus = "ERROR"
)

// TransferResult is the in-memory outcome of a transfer. Callers switch on
// Status instead of unwrapping distinct error types.
type TransferResult struct {
	Status        ResultStatus    `json:"status"`
	Message       string          `json:"message"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	FromBalance   decimal.Decimal `json:"from_balance"`
	ToBalance     decimal.Decimal `json:"to_balance"`
}

// Ok builds the success result with the committed transaction id and the
// post-transfer balances of both accounts.
func Ok(txID int64, fromBalance, toBalance decimal.Decimal) *TransferResult {
	return &TransferResult{
		Status:        StatusOK,
		Message:       "committed",
		TransactionID: txID,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}
}

// Fail builds a non-OK result with an explanatory message.
func Fail(status ResultStatus, message string) *TransferResult {
	return &TransferResult{Status: status, Message: message}
}

// TransferEvent is the payload published to the notification exchange after
// a transfer commits.
type TransferEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"`
	TransactionID int64     `json:"transaction_id"`
	FromAccount   string    `json:"from_account"`
	ToAccount     string    `json:"to_account"`
	Amount        string    `json:"amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}
