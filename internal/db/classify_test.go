package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/karuppiah-t/transfercore/internal/domain"
)

func TestClassifySQLStates(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		conflict  bool
		transient bool
	}{
		{"serialization failure", "40001", true, false},
		{"deadlock detected", "40P01", true, false},
		{"lock not available", "55P03", false, true},
		{"query canceled", "57014", false, true},
		{"connection failure", "08006", false, true},
		{"connection does not exist", "08003", false, true},
		{"unique violation", "23505", false, false},
		{"undefined table", "42P01", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(fmt.Errorf("query failed: %w", &pgconn.PgError{Code: tt.code, Message: tt.name}))
			if got := domain.IsConflict(err); got != tt.conflict {
				t.Errorf("IsConflict = %v, want %v", got, tt.conflict)
			}
			if got := domain.IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient = %v, want %v", got, tt.transient)
			}
			// Unclassified codes must pass through with the pg error intact.
			if !tt.conflict && !tt.transient {
				var pgErr *pgconn.PgError
				if !errors.As(err, &pgErr) || pgErr.Code != tt.code {
					t.Errorf("expected untouched pg error, got %v", err)
				}
			}
		})
	}
}

// timeoutErr satisfies net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyNetworkFaults(t *testing.T) {
	if err := classify(fmt.Errorf("dial failed: %w", timeoutErr{})); !domain.IsTransient(err) {
		t.Errorf("expected network timeout to be transient, got %v", err)
	}
	if err := classify(fmt.Errorf("query failed: %w", context.DeadlineExceeded)); !domain.IsTransient(err) {
		t.Errorf("expected deadline exceeded to be transient, got %v", err)
	}
}

func TestClassifyPassThrough(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Errorf("expected nil to stay nil, got %v", err)
	}

	plain := errors.New("syntax error in query")
	got := classify(plain)
	if !errors.Is(got, plain) {
		t.Errorf("expected original error preserved, got %v", got)
	}
	if domain.Retryable(got) {
		t.Errorf("plain errors must not become retryable: %v", got)
	}
}
