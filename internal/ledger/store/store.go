// Package store defines the persistence interfaces for the credit ledger and
// provides memory, PostgreSQL, and Redis-backed implementations.
package store

import (
	"context"
	"errors"
	"time"

	"veriflow/internal/ledger/models"
	"veriflow/pkg/domain"
)

// ErrInsufficientBalance is returned when a debit would take a balance below
// zero. Services translate it into a coded domain error.
var ErrInsufficientBalance = errors.New("insufficient balance")

// AccountStore persists balances and their ledger entries.
type AccountStore interface {
	// Balance returns the user's current balance; unknown users have zero.
	Balance(ctx context.Context, userID domain.UserID) (int64, error)

	// Apply atomically adds delta to the user's balance and records a ledger
	// entry. A negative delta that would overdraw the account fails with
	// ErrInsufficientBalance and leaves the balance untouched.
	Apply(ctx context.Context, userID domain.UserID, delta int64, reason string) (int64, error)

	// Entries returns the user's most recent ledger entries, newest first.
	Entries(ctx context.Context, userID domain.UserID, limit int) ([]models.Entry, error)
}

// CodeStore persists redeem codes and their per-user consumption.
type CodeStore interface {
	// Add registers a voucher. Adding an existing code replaces its
	// amount and remaining uses.
	Add(ctx context.Context, code models.RedeemCode) error

	// Redeem consumes one use of the code for the user and credits its
	// amount to the user's balance in the same atomic operation, returning
	// the voucher amount and the resulting balance. Unknown codes fail with
	// sentinel.ErrNotFound; a code the user already consumed, or one with
	// no uses left, fails with sentinel.ErrAlreadyUsed. On any failure the
	// voucher use is not burned.
	Redeem(ctx context.Context, code string, userID domain.UserID) (amount, balance int64, err error)
}

// CooldownStore tracks time-gated actions such as the daily check-in.
type CooldownStore interface {
	// Claim marks the key as used for ttl. It reports false when the key
	// is still inside a previous claim's window.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
