package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(key string) string
}

// RegisterSteps registers rate limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am calling from IP "([^"]*)"$`, steps.callingFromIP)
	ctx.Step(`^I GET "([^"]*)" until the read limit is reached$`, steps.getUntilLimited)
	ctx.Step(`^the response should ask me to retry later$`, steps.shouldAskToRetry)
	ctx.Step(`^a caller from IP "([^"]*)" can still GET "([^"]*)"$`, steps.otherCallerCanGet)
}

type ratelimitSteps struct {
	tc TestContext
	ip string
}

func (s *ratelimitSteps) headers(ip string) map[string]string {
	if ip == "" {
		return nil
	}
	return map[string]string{"X-Forwarded-For": ip}
}

func (s *ratelimitSteps) callingFromIP(ctx context.Context, ip string) error {
	s.ip = ip
	return nil
}

// getUntilLimited reads X-RateLimit-Limit from the first response and sends
// at most that many more requests.
func (s *ratelimitSteps) getUntilLimited(ctx context.Context, path string) error {
	if err := s.tc.GET(path, s.headers(s.ip)); err != nil {
		return err
	}
	limit, err := strconv.Atoi(s.tc.GetLastResponseHeader("X-RateLimit-Limit"))
	if err != nil {
		return fmt.Errorf("rate limiting is not enabled on %s", path)
	}
	for range limit {
		if s.tc.GetLastResponseStatus() == 429 {
			return nil
		}
		if err := s.tc.GET(path, s.headers(s.ip)); err != nil {
			return err
		}
	}
	if s.tc.GetLastResponseStatus() != 429 {
		return fmt.Errorf("no 429 after %d requests", limit+1)
	}
	return nil
}

func (s *ratelimitSteps) shouldAskToRetry(ctx context.Context) error {
	if status := s.tc.GetLastResponseStatus(); status != 429 {
		return fmt.Errorf("expected 429, got %d", status)
	}
	if s.tc.GetLastResponseHeader("Retry-After") == "" {
		return fmt.Errorf("429 without Retry-After")
	}
	return nil
}

func (s *ratelimitSteps) otherCallerCanGet(ctx context.Context, ip, path string) error {
	if err := s.tc.GET(path, s.headers(ip)); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("expected 200 for %s, got %d", ip, status)
	}
	return nil
}
