// Package service implements the credit ledger: balances, attempt charges,
// daily check-ins, and voucher redemption.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"veriflow/internal/ledger/models"
	"veriflow/internal/ledger/store"
	"veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/sentinel"
)

const checkInCooldown = 24 * time.Hour

type Service struct {
	accounts      store.AccountStore
	codes         store.CodeStore
	cooldowns     store.CooldownStore
	checkInReward int64
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCheckInReward overrides the credits granted per daily check-in.
func WithCheckInReward(amount int64) Option {
	return func(s *Service) {
		if amount > 0 {
			s.checkInReward = amount
		}
	}
}

func New(accounts store.AccountStore, codes store.CodeStore, cooldowns store.CooldownStore, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if codes == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if cooldowns == nil {
		return nil, fmt.Errorf("cooldown store is required")
	}

	s := &Service{
		accounts:      accounts,
		codes:         codes,
		cooldowns:     cooldowns,
		checkInReward: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Balance returns the user's current credit balance.
func (s *Service) Balance(ctx context.Context, userID domain.UserID) (int64, error) {
	return s.accounts.Balance(ctx, userID)
}

// Entries returns the user's recent ledger history, newest first.
func (s *Service) Entries(ctx context.Context, userID domain.UserID, limit int) ([]models.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.accounts.Entries(ctx, userID, limit)
}

// Deduct charges the user. Overdrafts fail without changing the balance.
func (s *Service) Deduct(ctx context.Context, userID domain.UserID, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "deduction amount must be positive")
	}
	balance, err := s.accounts.Apply(ctx, userID, -amount, reason)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			return balance, dErrors.New(dErrors.CodeInsufficientFunds, "not enough credits")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "charge failed")
	}
	return balance, nil
}

// Credit grants the user credits.
func (s *Service) Credit(ctx context.Context, userID domain.UserID, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "credit amount must be positive")
	}
	balance, err := s.accounts.Apply(ctx, userID, amount, reason)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "credit failed")
	}
	if s.logger != nil {
		s.logger.Info("credits granted",
			"user_id", userID,
			"amount", amount,
			"reason", reason,
			"balance", balance,
		)
	}
	return balance, nil
}

// CheckIn grants the daily reward once per cooldown window.
func (s *Service) CheckIn(ctx context.Context, userID domain.UserID) (int64, error) {
	ok, err := s.cooldowns.Claim(ctx, "checkin:"+userID.String(), checkInCooldown)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "check-in failed")
	}
	if !ok {
		return 0, dErrors.New(dErrors.CodeConflict, "already checked in today")
	}
	return s.Credit(ctx, userID, s.checkInReward, "daily check-in")
}

// Redeem consumes a voucher for the user and credits its amount.
func (s *Service) Redeem(ctx context.Context, userID domain.UserID, code string) (int64, error) {
	if code == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "redeem code is required")
	}
	amount, balance, err := s.codes.Redeem(ctx, code, userID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return 0, dErrors.New(dErrors.CodeNotFound, "unknown redeem code")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return 0, dErrors.New(dErrors.CodeConflict, "redeem code already used")
		default:
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "redeem failed")
		}
	}
	if s.logger != nil {
		s.logger.Info("voucher redeemed",
			"user_id", userID,
			"amount", amount,
			"balance", balance,
		)
	}
	return balance, nil
}

// AddCode registers a voucher. Admin only; the transport layer gates access.
func (s *Service) AddCode(ctx context.Context, code models.RedeemCode) error {
	if code.Code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "code is required")
	}
	if code.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "code amount must be positive")
	}
	if code.RemainingUses <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "code must allow at least one use")
	}
	if err := s.codes.Add(ctx, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store redeem code")
	}
	return nil
}
