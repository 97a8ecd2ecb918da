// Package models holds the credit-ledger domain types.
package models

import (
	"time"

	"veriflow/pkg/domain"
)

// Account is one user's credit balance.
type Account struct {
	UserID    domain.UserID `json:"user_id"`
	Balance   int64         `json:"balance"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Entry is one signed ledger movement. Entries are append-only; the balance
// is the sum of a user's entries.
type Entry struct {
	ID        string        `json:"id"`
	UserID    domain.UserID `json:"user_id"`
	Amount    int64         `json:"amount"`
	Reason    string        `json:"reason"`
	CreatedAt time.Time     `json:"created_at"`
}

// RedeemCode is a multi-use credit voucher. Each user may consume a given
// code at most once.
type RedeemCode struct {
	Code          string `json:"code"`
	Amount        int64  `json:"amount"`
	RemainingUses int64  `json:"remaining_uses"`
}
