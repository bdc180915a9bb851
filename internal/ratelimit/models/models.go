// Package models holds the rate limit types shared by stores and middleware.
package models

import (
	"fmt"
	"time"
)

// EndpointClass groups routes that share a limit.
type EndpointClass string

const (
	// ClassRead covers registry reads and disclosure checks.
	ClassRead EndpointClass = "read"
	// ClassVerify covers routes that call data sources, sign and prove.
	ClassVerify EndpointClass = "verify"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Key is the bucket key for one caller in one class.
func Key(class EndpointClass, caller string) string {
	return fmt.Sprintf("ratelimit:%s:%s", class, caller)
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in whole seconds and only set when not allowed.
	RetryAfter int
}

// RateLimitExceededResponse is the API response when a limit is exceeded.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
