package handler

import (
	"time"

	"veriflow/internal/ledger/models"
	"veriflow/pkg/domain"
)

// BalanceResponse is the HTTP response carrying a user's balance.
type BalanceResponse struct {
	UserID  domain.UserID `json:"user_id"`
	Balance int64         `json:"balance"`
}

// EntryResponse is one ledger movement in the history listing.
type EntryResponse struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// FromEntries converts ledger entries to their HTTP listing.
func FromEntries(entries []models.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			ID:        e.ID,
			Amount:    e.Amount,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
