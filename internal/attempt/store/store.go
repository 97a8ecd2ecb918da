// Package store persists verification attempt history.
package store

import (
	"context"

	"veriflow/internal/attempt/models"
	"veriflow/pkg/domain"
)

// Store is the append-only attempt history.
type Store interface {
	// Append records one finished attempt.
	Append(ctx context.Context, a models.Attempt) error

	// ListByUser returns the user's most recent attempts, newest first.
	ListByUser(ctx context.Context, userID domain.UserID, limit int) ([]models.Attempt, error)
}
