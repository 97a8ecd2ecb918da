// Package models holds the attempt-history domain types.
package models

import (
	"time"

	"veriflow/pkg/domain"
)

// Outcome labels persisted with each attempt.
const (
	OutcomeSuccess = "success"
	OutcomePending = "pending"
	OutcomeFailure = "failure"
)

// Attempt is one historical verification run for a user. Attempts are
// append-only; they exist for audit and rate-decision purposes and are never
// updated after the fact.
type Attempt struct {
	ID             domain.AttemptID `json:"id"`
	UserID         domain.UserID    `json:"user_id"`
	ProfileType    string           `json:"profile_type"`
	VerificationID string           `json:"verification_id,omitempty"`
	Outcome        string           `json:"outcome"`
	RewardCode     string           `json:"reward_code,omitempty"`
	Message        string           `json:"message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
