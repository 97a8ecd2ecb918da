package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"veriflow/internal/ledger/models"
	"veriflow/pkg/domain"
	"veriflow/pkg/platform/sentinel"
)

// PostgresStore persists the ledger in PostgreSQL. It implements
// AccountStore and CodeStore; cooldowns live in Redis, not here.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Balance returns the user's current balance; unknown users have zero.
func (s *PostgresStore) Balance(ctx context.Context, userID domain.UserID) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM ledger_accounts WHERE user_id = $1`, int64(userID),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

// Apply atomically adds delta to the balance and records a ledger entry.
// The balance CHECK constraint turns overdrafts into ErrInsufficientBalance.
func (s *PostgresStore) Apply(ctx context.Context, userID domain.UserID, delta int64, reason string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin apply: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			balance = ledger_accounts.balance + EXCLUDED.balance,
			updated_at = now()
		RETURNING balance
	`, int64(userID), delta).Scan(&balance)
	if err != nil {
		if isCheckViolation(err) {
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("apply delta: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, uuid.NewString(), int64(userID), delta, reason)
	if err != nil {
		return 0, fmt.Errorf("record entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit apply: %w", err)
	}
	return balance, nil
}

// Entries returns the user's most recent ledger entries, newest first.
func (s *PostgresStore) Entries(ctx context.Context, userID domain.UserID, limit int) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, reason, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, int64(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		var uid int64
		if err := rows.Scan(&e.ID, &uid, &e.Amount, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.UserID = domain.UserID(uid)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add registers a voucher, replacing any existing definition of the code.
func (s *PostgresStore) Add(ctx context.Context, code models.RedeemCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO redeem_codes (code, amount, remaining_uses)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET
			amount = EXCLUDED.amount,
			remaining_uses = EXCLUDED.remaining_uses
	`, code.Code, code.Amount, code.RemainingUses)
	if err != nil {
		return fmt.Errorf("add redeem code: %w", err)
	}
	return nil
}

// Redeem consumes one use of the code and credits its amount to the user's
// balance in the same transaction, so a burned use always carries its credit.
func (s *PostgresStore) Redeem(ctx context.Context, code string, userID domain.UserID) (int64, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin redeem: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var amount, remaining int64
	err = tx.QueryRowContext(ctx,
		`SELECT amount, remaining_uses FROM redeem_codes WHERE code = $1 FOR UPDATE`, code,
	).Scan(&amount, &remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, sentinel.ErrNotFound
		}
		return 0, 0, fmt.Errorf("lock redeem code: %w", err)
	}
	if remaining <= 0 {
		return 0, 0, sentinel.ErrAlreadyUsed
	}

	// The primary key on (code, user_id) enforces once per user.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO code_redemptions (code, user_id, redeemed_at)
		VALUES ($1, $2, now())
	`, code, int64(userID))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, 0, sentinel.ErrAlreadyUsed
		}
		return 0, 0, fmt.Errorf("record redemption: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE redeem_codes SET remaining_uses = remaining_uses - 1 WHERE code = $1`, code)
	if err != nil {
		return 0, 0, fmt.Errorf("decrement redeem code: %w", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledger_accounts (user_id, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			balance = ledger_accounts.balance + EXCLUDED.balance,
			updated_at = now()
		RETURNING balance
	`, int64(userID), amount).Scan(&balance)
	if err != nil {
		return 0, 0, fmt.Errorf("credit redemption: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, uuid.NewString(), int64(userID), amount, "voucher "+code)
	if err != nil {
		return 0, 0, fmt.Errorf("record redemption entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit redeem: %w", err)
	}
	return amount, balance, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514"
}
