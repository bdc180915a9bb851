package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"zkregistry/pkg/platform/retry"
)

const leaseKeyPrefix = "zkregistry:ledger:lease:"

// releaseScript deletes the lease only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a redis mutex (SET NX PX) that serializes submitters running in
// different processes against the same ledger account.
type Lease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewLease(client *redis.Client, registry string, ttl time.Duration) *Lease {
	return &Lease{client: client, key: leaseKeyPrefix + registry, ttl: ttl}
}

// Acquire takes the lease and returns its token, or ErrLeaseHeld.
func (l *Lease) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire ledger lease: %w", err)
	}
	if !ok {
		return "", ErrLeaseHeld
	}
	return token, nil
}

// Release drops the lease if token still owns it.
func (l *Lease) Release(ctx context.Context, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release ledger lease: %w", err)
	}
	return nil
}

// Leased wraps a Ledger so each submission runs under the lease.
type Leased struct {
	ledger Ledger
	lease  *Lease
	policy retry.Policy
	logger *slog.Logger
}

type LeasedOption func(*Leased)

func WithLeaseLogger(logger *slog.Logger) LeasedOption {
	return func(l *Leased) {
		l.logger = logger
	}
}

// WithLeaseRetry bounds how long Submit waits for a held lease.
func WithLeaseRetry(p retry.Policy) LeasedOption {
	return func(l *Leased) {
		l.policy = p
	}
}

func NewLeased(ledger Ledger, lease *Lease, opts ...LeasedOption) *Leased {
	l := &Leased{
		ledger: ledger,
		lease:  lease,
		policy: retry.Policy{MaxAttempts: 10, Delay: 100 * time.Millisecond},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.policy.Retryable = func(err error) bool { return errors.Is(err, ErrLeaseHeld) }
	return l
}

func (l *Leased) Head(ctx context.Context) (Head, error) {
	return l.ledger.Head(ctx)
}

func (l *Leased) Submit(ctx context.Context, u RootUpdate) (Receipt, error) {
	token, err := retry.Do(ctx, l.policy, l.lease.Acquire)
	if err != nil {
		return Receipt{}, err
	}
	defer func() {
		// release on a fresh context so a cancelled submit still frees the lease
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.lease.Release(releaseCtx, token); err != nil {
			l.logger.WarnContext(ctx, "ledger lease release failed", "error", err)
		}
	}()
	return l.ledger.Submit(ctx, u)
}
