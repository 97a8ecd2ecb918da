package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"veriflow/internal/ledger/models"
	"veriflow/pkg/domain"
	"veriflow/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ledger for tests and local development. It
// implements AccountStore, CodeStore, and CooldownStore.
type MemoryStore struct {
	mu        sync.RWMutex
	balances  map[domain.UserID]int64
	entries   map[domain.UserID][]models.Entry
	codes     map[string]*models.RedeemCode
	redeemed  map[string]map[domain.UserID]struct{}
	cooldowns map[string]time.Time
	clock     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemory constructs an empty in-memory ledger store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		balances:  make(map[domain.UserID]int64),
		entries:   make(map[domain.UserID][]models.Entry),
		codes:     make(map[string]*models.RedeemCode),
		redeemed:  make(map[string]map[domain.UserID]struct{}),
		cooldowns: make(map[string]time.Time),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Balance returns the user's current balance.
func (s *MemoryStore) Balance(_ context.Context, userID domain.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[userID], nil
}

// Apply adds delta to the balance and records the entry.
func (s *MemoryStore) Apply(_ context.Context, userID domain.UserID, delta int64, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.balances[userID] + delta
	if next < 0 {
		return s.balances[userID], ErrInsufficientBalance
	}
	s.balances[userID] = next
	s.entries[userID] = append(s.entries[userID], models.Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    delta,
		Reason:    reason,
		CreatedAt: s.clock().UTC(),
	})
	return next, nil
}

// Entries returns the user's recent ledger entries, newest first.
func (s *MemoryStore) Entries(_ context.Context, userID domain.UserID, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[userID]
	out := make([]models.Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Add registers a voucher.
func (s *MemoryStore) Add(_ context.Context, code models.RedeemCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := code
	s.codes[code.Code] = &c
	return nil
}

// Redeem consumes one use of the code for the user and credits its amount
// under the same lock, so the use and the credit land together.
func (s *MemoryStore) Redeem(_ context.Context, code string, userID domain.UserID) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voucher, ok := s.codes[code]
	if !ok {
		return 0, 0, sentinel.ErrNotFound
	}
	if voucher.RemainingUses <= 0 {
		return 0, 0, sentinel.ErrAlreadyUsed
	}
	if _, used := s.redeemed[code][userID]; used {
		return 0, 0, sentinel.ErrAlreadyUsed
	}

	voucher.RemainingUses--
	if s.redeemed[code] == nil {
		s.redeemed[code] = make(map[domain.UserID]struct{})
	}
	s.redeemed[code][userID] = struct{}{}

	balance := s.balances[userID] + voucher.Amount
	s.balances[userID] = balance
	s.entries[userID] = append(s.entries[userID], models.Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    voucher.Amount,
		Reason:    "voucher " + code,
		CreatedAt: s.clock().UTC(),
	})
	return voucher.Amount, balance, nil
}

// Claim marks the key as used for ttl.
func (s *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if until, ok := s.cooldowns[key]; ok && now.Before(until) {
		return false, nil
	}
	s.cooldowns[key] = now.Add(ttl)
	return true, nil
}
