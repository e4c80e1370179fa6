package domain

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Orchestrator executes a single transfer attempt inside one atomic unit of
// work. It owns the whole correctness contract: input validation, ordered
// pessimistic locking, funds check, balance mutation and ledger writes.
// Callers are expected to wrap Execute in TransactionManager.WithTransaction;
// the Supervisor does exactly that.
type Orchestrator struct {
	accounts AccountRepository
	ledger   LedgerRepository
}

func NewOrchestrator(accounts AccountRepository, ledger LedgerRepository) *Orchestrator {
	return &Orchestrator{accounts: accounts, ledger: ledger}
}

// Execute moves amount from one account to the other.
//
// Locks are requested in ascending id order. Every concurrent transfer
// touching the same pair first contends on min(idA, idB), so circular wait
// between opposite-direction transfers is structurally impossible.
//
// Business rejections (insufficient funds) come back as a non-OK result with
// a nil error so the surrounding unit still commits the audit entry.
// Validation and storage failures come back as errors and roll the unit back.
func (o *Orchestrator) Execute(ctx context.Context, fromNumber, toNumber string, amount decimal.Decimal) (*TransferResult, error) {
	if fromNumber == "" {
		return nil, fmt.Errorf("%w: from account number is required", ErrValidation)
	}
	if toNumber == "" {
		return nil, fmt.Errorf("%w: to account number is required", ErrValidation)
	}
	if fromNumber == toNumber {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, amount)
	}

	fromAcc, err := o.accounts.FindByNumber(ctx, fromNumber)
	if err != nil {
		return nil, err
	}
	toAcc, err := o.accounts.FindByNumber(ctx, toNumber)
	if err != nil {
		return nil, err
	}

	ids := []int64{fromAcc.ID, toAcc.ID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked, err := o.accounts.LockAndFetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(locked) != 2 {
		return nil, fmt.Errorf("expected 2 locked accounts, got %d", len(locked))
	}

	// The lock call returns rows in id order; map them back to logical
	// from/to before touching balances.
	from, to := locked[0], locked[1]
	if from.ID != fromAcc.ID {
		from, to = to, from
	}

	if from.Balance.LessThan(amount) {
		details := fmt.Sprintf("rejected transfer of %s from %s (balance %s) to %s: insufficient funds",
			amount, from.Number, from.Balance, to.Number)
		if err := o.ledger.AppendAuditLog(ctx, "TRANSFER_REJECTED", details); err != nil {
			return nil, err
		}
		// Rejected-before-start attempts get no transaction row, only the
		// audit entry.
		return Fail(StatusInsufficientFunds, "insufficient funds"), nil
	}

	record := NewTransaction(from.Number, to.Number, amount)
	txID, err := o.ledger.InsertTransaction(ctx, record)
	if err != nil {
		return nil, err
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)

	if err := o.accounts.Save(ctx, from); err != nil {
		return nil, err
	}
	if err := o.accounts.Save(ctx, to); err != nil {
		return nil, err
	}

	if err := o.ledger.UpdateTransactionStatus(ctx, txID, TransactionCompleted); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("transferred %s from %s to %s (tx %d)", amount, from.Number, to.Number, txID)
	if err := o.ledger.AppendAuditLog(ctx, "TRANSFER_COMPLETED", details); err != nil {
		return nil, err
	}

	return Ok(txID, from.Balance, to.Balance), nil
}
