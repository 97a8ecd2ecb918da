//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veriflow/internal/ledger/models"
	"veriflow/internal/ledger/store"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/sentinel"
	"veriflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"code_redemptions", "redeem_codes", "ledger_entries", "ledger_accounts")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestApplyCreatesAccountAndEntry() {
	ctx := context.Background()
	userID := id.UserID(4401)

	balance, err := s.store.Apply(ctx, userID, 25, "admin grant")
	s.Require().NoError(err)
	s.Equal(int64(25), balance)

	got, err := s.store.Balance(ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(25), got)

	entries, err := s.store.Entries(ctx, userID, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(int64(25), entries[0].Amount)
	s.Equal("admin grant", entries[0].Reason)
}

func (s *PostgresStoreSuite) TestApplyRejectsOverdraft() {
	ctx := context.Background()
	userID := id.UserID(4402)

	_, err := s.store.Apply(ctx, userID, 3, "admin grant")
	s.Require().NoError(err)

	_, err = s.store.Apply(ctx, userID, -5, "verification")
	s.Require().ErrorIs(err, store.ErrInsufficientBalance)

	// The failed deduction must leave no trace.
	balance, err := s.store.Balance(ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(3), balance)

	entries, err := s.store.Entries(ctx, userID, 10)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresStoreSuite) TestBalanceOfUnknownUserIsZero() {
	balance, err := s.store.Balance(context.Background(), id.UserID(999999))
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *PostgresStoreSuite) TestConcurrentDeductionsNeverOverdraw() {
	ctx := context.Background()
	userID := id.UserID(4403)
	const goroutines = 20

	_, err := s.store.Apply(ctx, userID, 5, "admin grant")
	s.Require().NoError(err)

	var wg sync.WaitGroup
	var successCount atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Apply(ctx, userID, -1, "verification"); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(5), successCount.Load(), "only the funded deductions should succeed")

	balance, err := s.store.Balance(ctx, userID)
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *PostgresStoreSuite) TestRedeemOncePerUser() {
	ctx := context.Background()
	code := "WELCOME-" + uuid.NewString()[:8]
	userID := id.UserID(4404)

	s.Require().NoError(s.store.Add(ctx, models.RedeemCode{Code: code, Amount: 10, RemainingUses: 5}))

	amount, balance, err := s.store.Redeem(ctx, code, userID)
	s.Require().NoError(err)
	s.Equal(int64(10), amount)
	s.Equal(int64(10), balance, "redemption must credit in the same transaction")

	_, _, err = s.store.Redeem(ctx, code, userID)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	stored, err := s.store.Balance(ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(10), stored, "a rejected redemption must not credit")
}

func (s *PostgresStoreSuite) TestRedeemExhaustedCode() {
	ctx := context.Background()
	code := "LIMITED-" + uuid.NewString()[:8]

	s.Require().NoError(s.store.Add(ctx, models.RedeemCode{Code: code, Amount: 2, RemainingUses: 1}))

	_, _, err := s.store.Redeem(ctx, code, id.UserID(4405))
	s.Require().NoError(err)

	_, _, err = s.store.Redeem(ctx, code, id.UserID(4406))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestRedeemUnknownCode() {
	_, _, err := s.store.Redeem(context.Background(), "NO-SUCH-CODE", id.UserID(4407))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentRedeemRespectsRemainingUses() {
	ctx := context.Background()
	code := "RACE-" + uuid.NewString()[:8]
	const goroutines = 20

	s.Require().NoError(s.store.Add(ctx, models.RedeemCode{Code: code, Amount: 1, RemainingUses: 5}))

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.store.Redeem(ctx, code, id.UserID(5000+i))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(5), successCount.Load())
	s.Equal(int32(goroutines-5), conflictCount.Load())
}
