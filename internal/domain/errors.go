package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers malformed input: empty account numbers,
	// non-positive amounts, self-transfers. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrAccountNotFound is returned when an account number resolves to no
	// row. Treated like a validation failure: retrying cannot help.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConflict signals that another unit of work modified one of the
	// rows between this unit's read and write. Eligible for retry.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrStaleVersion is the optimistic check firing beneath the row lock.
	// It is a conflict, so errors.Is(err, ErrConflict) holds.
	ErrStaleVersion = fmt.Errorf("stale account version: %w", ErrConflict)

	// ErrTransient covers connectivity problems, lock-wait timeouts and
	// cancelled statements. Eligible for retry.
	ErrTransient = errors.New("transient storage error")
)

// IsConflict reports whether err stems from a concurrent modification.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsTransient reports whether err is a recoverable storage fault.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Retryable reports whether a fresh atomic unit could plausibly succeed.
func Retryable(err error) bool {
	return IsConflict(err) || IsTransient(err)
}

// Terminal reports whether the error must surface to the caller without
// consuming a retry attempt.
func Terminal(err error) bool {
	return err != nil && !Retryable(err)
}
