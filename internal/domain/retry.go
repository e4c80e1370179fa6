package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// transferExecutor is the single operation the supervisor retries.
type transferExecutor interface {
	Execute(ctx context.Context, fromNumber, toNumber string, amount decimal.Decimal) (*TransferResult, error)
}

// Supervisor wraps one orchestration attempt in a bounded retry loop. Each
// attempt runs inside a brand-new atomic unit; no locks or partial writes
// carry over between attempts.
type Supervisor struct {
	exec   transferExecutor
	txm    TransactionManager
	events EventPublisher // nil disables notifications
	log    *zap.Logger
}

func NewSupervisor(exec transferExecutor, txm TransactionManager, events EventPublisher, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{exec: exec, txm: txm, events: events, log: log}
}

// ExecuteWithRetry runs the transfer, re-running the whole atomic unit on
// conflict or transient storage errors up to maxRetries extra times.
// Validation and business-rule failures propagate immediately without
// consuming a retry attempt.
func (s *Supervisor) ExecuteWithRetry(ctx context.Context, fromNumber, toNumber string, amount decimal.Decimal, maxRetries int) (*TransferResult, error) {
	attempts := 0
	for {
		var res *TransferResult
		err := s.txm.WithTransaction(ctx, func(txCtx context.Context) error {
			var execErr error
			res, execErr = s.exec.Execute(txCtx, fromNumber, toNumber, amount)
			return execErr
		})
		if err == nil {
			if res.Status == StatusOK {
				s.publishCompleted(fromNumber, toNumber, amount, res.TransactionID)
			}
			return res, nil
		}

		if Terminal(err) {
			return nil, err
		}

		if attempts < maxRetries {
			attempts++
			s.log.Warn("transfer attempt failed, retrying",
				zap.String("from", fromNumber),
				zap.String("to", toNumber),
				zap.Int("attempt", attempts),
				zap.Error(err))
			continue
		}

		if IsConflict(err) {
			return Fail(StatusConflictRetry, "conflict after retries: "+err.Error()), nil
		}
		return Fail(StatusError, "storage error: "+err.Error()), nil
	}
}

// publishCompleted emits the transfer-completed event best-effort. The
// transfer is already committed; a broker outage must not surface to the
// caller.
func (s *Supervisor) publishCompleted(from, to string, amount decimal.Decimal, txID int64) {
	if s.events == nil {
		return
	}
	event := TransferEvent{
		EventID:       uuid.New(),
		EventType:     "transfer.completed",
		TransactionID: txID,
		FromAccount:   from,
		ToAccount:     to,
		Amount:        amount.String(),
		OccurredAt:    time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.PublishTransferCompleted(ctx, event); err != nil {
			s.log.Warn("failed to publish transfer completed event",
				zap.Int64("transaction_id", txID),
				zap.Error(err))
		}
	}()
}
