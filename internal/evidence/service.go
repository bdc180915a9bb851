// Package evidence fetches raw entity records from their source registries
// with caching, bounded retries and a per-provider circuit breaker.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/cache"
	"zkregistry/internal/evidence/metrics"
	"zkregistry/internal/evidence/providers"
	"zkregistry/pkg/platform/circuit"
	"zkregistry/pkg/platform/retry"
	"zkregistry/pkg/platform/sentinel"
)

// Service is the data source capability used by verification.
type Service struct {
	registry *providers.ProviderRegistry
	cache    cache.Cache
	policy   retry.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	breakerOpts []circuit.Option
	mu          sync.Mutex
	breakers    map[string]*circuit.Breaker
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBreakerOptions configures the breaker created for each provider.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(s *Service) {
		s.breakerOpts = append(s.breakerOpts, opts...)
	}
}

func NewService(registry *providers.ProviderRegistry, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		policy:   retry.Default(),
		logger:   slog.New(slog.DiscardHandler),
		breakers: make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.policy.Retryable = providers.IsRetryable
	return s
}

// Fetch returns the raw record for identifier. Cache failures are logged
// and bypassed; upstream failures come back as *providers.ProviderError.
func (s *Service) Fetch(ctx context.Context, t models.EntityType, identifier string) (*providers.RawEntityRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.Get(ctx, t, identifier)
		switch {
		case err == nil:
			s.metrics.RecordCacheHit(string(t))
			return rec, nil
		case errors.Is(err, sentinel.ErrNotFound):
			s.metrics.RecordCacheMiss(string(t))
		default:
			s.logger.WarnContext(ctx, "raw record cache read failed", "entity_type", t, "error", err)
		}
	}

	p, err := s.registry.ForType(t)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, "none", "no provider", err)
	}

	start := time.Now()
	rec, err := s.lookup(ctx, p, identifier)
	if err != nil {
		cat := providers.GetCategory(err)
		s.metrics.IncrementLookupError(string(t), string(cat))
		s.metrics.ObserveLookup(string(t), "error", time.Since(start))
		return nil, err
	}
	s.metrics.ObserveLookup(string(t), "ok", time.Since(start))

	if s.cache != nil {
		if err := s.cache.Set(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "raw record cache write failed", "entity_type", t, "error", err)
		}
	}
	return rec, nil
}

func (s *Service) breaker(id string) *circuit.Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[id]
	if !ok {
		b = circuit.New(id, s.breakerOpts...)
		s.breakers[id] = b
	}
	return b
}

func (s *Service) lookup(ctx context.Context, p providers.Provider, identifier string) (*providers.RawEntityRecord, error) {
	b := s.breaker(p.ID())
	rec, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*providers.RawEntityRecord, error) {
		if !b.Allow() {
			return nil, providers.NewProviderError(providers.ErrorProviderOutage, p.ID(), "circuit open", providers.ErrCircuitOpen)
		}
		rec, err := p.Lookup(ctx, identifier)
		if err != nil {
			// only upstream health problems count against the breaker
			if providers.IsRetryable(err) {
				if _, change := b.RecordFailure(); change.Opened {
					s.metrics.SetBreakerOpen(p.ID(), true)
					s.logger.WarnContext(ctx, "provider circuit opened", "provider", p.ID(), "error", err)
				}
			}
			return nil, err
		}
		if _, change := b.RecordSuccess(); change.Closed {
			s.metrics.SetBreakerOpen(p.ID(), false)
			s.logger.InfoContext(ctx, "provider circuit closed", "provider", p.ID())
		}
		return rec, nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			s.logger.WarnContext(ctx, "provider lookup retries exhausted",
				"provider", p.ID(),
				"attempts", exhausted.Attempts,
				"error", exhausted.Last,
			)
			return nil, fmt.Errorf("%s after %d attempts: %w", p.ID(), exhausted.Attempts, err)
		}
		return nil, err
	}
	if rec.EntityType != p.Capabilities().EntityType {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, p.ID(),
			fmt.Sprintf("returned %s record", rec.EntityType), nil)
	}
	return rec, nil
}

// Health reports providers that are unhealthy or whose breaker is open.
func (s *Service) Health(ctx context.Context) map[string]error {
	failures := s.registry.Health(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.breakers {
		if b.IsOpen() {
			if _, ok := failures[id]; !ok {
				failures[id] = providers.ErrCircuitOpen
			}
		}
	}
	return failures
}
