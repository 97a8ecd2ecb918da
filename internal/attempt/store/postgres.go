package store

import (
	"context"
	"database/sql"
	"fmt"

	"veriflow/internal/attempt/models"
	"veriflow/pkg/domain"
)

// PostgresStore persists attempt history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attempt store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append records one finished attempt.
func (s *PostgresStore) Append(ctx context.Context, a models.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_attempts
			(id, user_id, profile_type, verification_id, outcome, reward_code, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID.String(), int64(a.UserID), a.ProfileType, a.VerificationID, a.Outcome, a.RewardCode, a.Message, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent attempts, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID, limit int) ([]models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, profile_type, verification_id, outcome, reward_code, message, created_at
		FROM verification_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, int64(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var rawID string
		var uid int64
		if err := rows.Scan(&rawID, &uid, &a.ProfileType, &a.VerificationID, &a.Outcome, &a.RewardCode, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		id, err := domain.ParseAttemptID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse attempt id %q: %w", rawID, err)
		}
		a.ID = id
		a.UserID = domain.UserID(uid)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
