package e2e

import (
	"github.com/cucumber/godog"

	"zkregistry/e2e/steps/common"
	"zkregistry/e2e/steps/ratelimit"
	"zkregistry/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (requests, status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register verification and disclosure steps
	verification.RegisterSteps(ctx, tc)

	// Register rate limit steps
	ratelimit.RegisterSteps(ctx, tc)
}
