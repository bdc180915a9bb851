// Package middleware enforces per-caller request limits on API routes.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"zkregistry/internal/ratelimit/metrics"
	"zkregistry/internal/ratelimit/models"
	"zkregistry/internal/ratelimit/store/bucket"
	"zkregistry/pkg/platform/circuit"
	"zkregistry/pkg/platform/httputil"
	"zkregistry/pkg/requestcontext"
)

// Store counts requests in a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Limiter checks requests against per-class limits. When the primary store
// fails repeatedly it switches to an in-memory store until a trial call succeeds.
type Limiter struct {
	store    Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithFallback replaces the in-memory fallback store.
func WithFallback(s Store) Option {
	return func(l *Limiter) {
		l.fallback = s
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		if b != nil {
			l.breaker = b
		}
	}
}

func New(store Store, limits map[models.EndpointClass]models.Limit, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("ratelimit store is required")
	}
	for class, limit := range limits {
		if limit.Requests <= 0 || limit.Window <= 0 {
			return nil, fmt.Errorf("invalid limit for %s: %d per %s", class, limit.Requests, limit.Window)
		}
	}
	l := &Limiter{
		store:    store,
		fallback: bucket.New(),
		breaker:  circuit.New("ratelimit-store", circuit.WithFailureThreshold(3)),
		limits:   limits,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Limit returns middleware enforcing the limit of class. Classes without a
// configured limit pass through.
func (l *Limiter) Limit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limit, ok := l.limits[class]
		if !ok {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := models.Key(class, callerKey(ctx, r))

			result, degraded := l.check(ctx, key, limit)
			if result == nil {
				// both stores failed; fail open
				next.ServeHTTP(w, r)
				return
			}
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			addRateLimitHeaders(w, result)
			l.metrics.RecordDecision(string(class), result.Allowed)

			if !result.Allowed {
				l.logger.InfoContext(ctx, "rate limit exceeded",
					"class", class,
					"key", key,
					"retry_after", result.RetryAfter,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool) {
	if l.breaker.Allow() {
		result, err := l.store.Allow(ctx, key, limit.Requests, limit.Window)
		if err == nil {
			if _, change := l.breaker.RecordSuccess(); change.Closed {
				l.logger.InfoContext(ctx, "rate limit store recovered")
				l.metrics.SetFallback(false)
			}
			return result, false
		}
		l.metrics.RecordStoreError()
		if _, change := l.breaker.RecordFailure(); change.Opened {
			l.logger.WarnContext(ctx, "rate limit store failing, using in-memory fallback", "error", err)
			l.metrics.SetFallback(true)
		}
	}

	result, err := l.fallback.Allow(ctx, key, limit.Requests, limit.Window)
	if err != nil {
		l.logger.ErrorContext(ctx, "rate limit fallback failed", "error", err)
		return nil, true
	}
	return result, true
}

// callerKey prefers the authenticated subject over the client address.
func callerKey(ctx context.Context, r *http.Request) string {
	if subject := requestcontext.Subject(ctx); subject != "" {
		return "sub:" + subject
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return "ip:" + ip
	}
	return "addr:" + r.RemoteAddr
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
