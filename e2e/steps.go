package e2e

import (
	"github.com/cucumber/godog"

	"veriflow/e2e/steps/common"
	"veriflow/e2e/steps/ledger"
	"veriflow/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register credit-ledger-specific steps
	ledger.RegisterSteps(ctx, tc)

	// Register verification-specific steps
	verification.RegisterSteps(ctx, tc)
}
