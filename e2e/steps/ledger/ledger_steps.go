package ledger

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	POSTAsAdmin(path string, body any) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers credit-ledger step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	ctx.Step(`^I check in for the daily reward$`, steps.checkIn)
	ctx.Step(`^I check in for the daily reward again$`, steps.checkIn)
	ctx.Step(`^I redeem the voucher "([^"]*)"$`, steps.redeemVoucher)
	ctx.Step(`^I request my balance$`, steps.requestBalance)
	ctx.Step(`^I request my credit history$`, steps.requestHistory)
	ctx.Step(`^I save the balance$`, steps.saveBalance)
	ctx.Step(`^the balance should have increased by (\d+)$`, steps.balanceIncreasedBy)
	ctx.Step(`^an operator grants user "([^"]*)" (\d+) credits$`, steps.adminGrant)
	ctx.Step(`^an operator registers voucher "([^"]*)" worth (\d+) credits with (\d+) uses$`, steps.adminRegisterVoucher)
}

type ledgerSteps struct {
	tc           TestContext
	savedBalance float64
}

func (s *ledgerSteps) checkIn(ctx context.Context) error {
	return s.tc.POST("/me/checkin", map[string]any{})
}

func (s *ledgerSteps) redeemVoucher(ctx context.Context, code string) error {
	return s.tc.POST("/me/redeem", map[string]any{"code": code})
}

func (s *ledgerSteps) requestBalance(ctx context.Context) error {
	return s.tc.GET("/me/balance", nil)
}

func (s *ledgerSteps) requestHistory(ctx context.Context) error {
	return s.tc.GET("/me/history", nil)
}

func (s *ledgerSteps) saveBalance(ctx context.Context) error {
	if err := s.requestBalance(ctx); err != nil {
		return err
	}
	val, err := s.tc.GetResponseField("balance")
	if err != nil {
		return err
	}
	num, ok := val.(float64)
	if !ok {
		return fmt.Errorf("balance is not a number: %v", val)
	}
	s.savedBalance = num
	return nil
}

func (s *ledgerSteps) balanceIncreasedBy(ctx context.Context, delta int) error {
	if err := s.requestBalance(ctx); err != nil {
		return err
	}
	val, err := s.tc.GetResponseField("balance")
	if err != nil {
		return err
	}
	num, ok := val.(float64)
	if !ok {
		return fmt.Errorf("balance is not a number: %v", val)
	}
	if num != s.savedBalance+float64(delta) {
		return fmt.Errorf("expected balance %v, got %v", s.savedBalance+float64(delta), num)
	}
	return nil
}

func (s *ledgerSteps) adminGrant(ctx context.Context, userID string, amount int) error {
	return s.tc.POSTAsAdmin("/admin/credits", map[string]any{
		"user_id": userID,
		"amount":  amount,
	})
}

func (s *ledgerSteps) adminRegisterVoucher(ctx context.Context, code string, amount, uses int) error {
	return s.tc.POSTAsAdmin("/admin/codes", map[string]any{
		"code":   code,
		"amount": amount,
		"uses":   uses,
	})
}
