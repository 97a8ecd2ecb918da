package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GETAnonymous(path string) error
	POSTAnonymous(path string, body any) error
	LastStatus() int
	LastRaw() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers generic request and assertion step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I GET "([^"]*)" without credentials$`, steps.getAnonymous)
	ctx.Step(`^I POST to "([^"]*)" without credentials$`, steps.postAnonymous)

	ctx.Step(`^the response status should be (\d+)$`, steps.assertStatus)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.assertFieldString)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.assertFieldNumber)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.assertBodyContains)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) getAnonymous(ctx context.Context, path string) error {
	return s.tc.GETAnonymous(path)
}

func (s *commonSteps) postAnonymous(ctx context.Context, path string) error {
	return s.tc.POSTAnonymous(path, map[string]any{})
}

func (s *commonSteps) assertStatus(ctx context.Context, expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.tc.LastStatus(), s.tc.LastRaw())
	}
	return nil
}

func (s *commonSteps) assertFieldString(ctx context.Context, field, expected string) error {
	val, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	got := fmt.Sprintf("%v", val)
	if got != expected {
		return fmt.Errorf("expected field %q to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) assertFieldNumber(ctx context.Context, field string, expected int) error {
	val, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	// JSON numbers decode as float64
	num, ok := val.(float64)
	if !ok {
		return fmt.Errorf("field %q is not a number: %v", field, val)
	}
	if int(num) != expected {
		return fmt.Errorf("expected field %q to be %d, got %v", field, expected, num)
	}
	return nil
}

func (s *commonSteps) assertBodyContains(ctx context.Context, substr string) error {
	if !strings.Contains(string(s.tc.LastRaw()), substr) {
		return fmt.Errorf("response does not contain %q: %s", substr, s.tc.LastRaw())
	}
	return nil
}
