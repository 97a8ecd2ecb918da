package verification

import (
	"context"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
}

// RegisterSteps registers verification-flow step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^I list the verification profiles$`, steps.listProfiles)
	ctx.Step(`^I start a "([^"]*)" verification with locator "([^"]*)"$`, steps.startVerification)
	ctx.Step(`^I query the reward code for verification "([^"]*)"$`, steps.queryRewardCode)
}

type verificationSteps struct {
	tc TestContext
}

func (s *verificationSteps) listProfiles(ctx context.Context) error {
	return s.tc.GET("/profiles", nil)
}

func (s *verificationSteps) startVerification(ctx context.Context, profileType, locator string) error {
	return s.tc.POST("/verify", map[string]any{
		"profile_type": profileType,
		"locator":      locator,
	})
}

func (s *verificationSteps) queryRewardCode(ctx context.Context, verificationID string) error {
	return s.tc.GET("/verify/"+verificationID+"/code", nil)
}
