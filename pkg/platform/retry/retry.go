// Package retry implements the bounded retry policy shared by every
// network-facing capability: a fixed number of attempts with a constant delay.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted wraps the last error once all attempts are spent.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds a retried operation.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retried.
	Retryable func(error) bool
}

// Default mirrors the attempt/delay pair used for registry lookups.
func Default() Policy {
	return Policy{MaxAttempts: 3, Delay: 500 * time.Millisecond}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do runs fn until it succeeds, returns a non-retryable error, the context is
// done, or attempts run out. Exhaustion is reported as ErrExhausted wrapping
// the last error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := 0
	data, err := backoff.RetryWithData(func() (T, error) {
		attempts++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}, p.backOff(ctx))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Err
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if p.MaxAttempts > 1 && attempts >= p.MaxAttempts {
			return zero, &ExhaustedError{Attempts: attempts, Last: err}
		}
		return zero, err
	}
	return data, nil
}

// ExhaustedError reports the final failure after all attempts.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return ErrExhausted.Error() + ": " + e.Last.Error()
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}
