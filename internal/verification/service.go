// Package verification orchestrates entity verification: fetch the source
// record, encode and commit to its fields, have the oracle sign the root,
// prove and check the commitment, evaluate business rules, and fold the
// outcome into the registry.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/registry"
	"zkregistry/internal/verification/metrics"
	"zkregistry/internal/verification/ports"
	"zkregistry/pkg/platform/retry"
)

const tracerName = "zkregistry/internal/verification"

// Type aliases for shared interfaces.
type (
	DataSource     = ports.DataSource
	Signer         = ports.Signer
	Prover         = ports.Prover
	Ledger         = ports.Ledger
	AuditPublisher = ports.AuditPublisher
)

// Service verifies entities against a single registry. Construct one per
// registry session; it is safe for concurrent use.
type Service struct {
	source   DataSource
	signer   Signer
	prover   Prover
	registry *registry.Aggregator

	ledger      Ledger
	auditor     AuditPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	encoderOpts []fields.Option
	encoder     *fields.Encoder

	concurrency   int
	entityTimeout time.Duration
	ledgerPolicy  retry.Policy

	// serializes ledger submissions so nonces are taken in order
	submitMu sync.Mutex
}

type Option func(*Service)

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

// WithLedger submits every registry root change to l.
func WithLedger(l Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithConcurrency bounds how many entities of a batch run at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEntityTimeout bounds a single entity's verification.
func WithEntityTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.entityTimeout = d
	}
}

// WithLedgerRetry sets the retry policy for ledger submissions.
func WithLedgerRetry(p retry.Policy) Option {
	return func(s *Service) {
		s.ledgerPolicy = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithEncoderOptions adds options to the field encoder. A reporter set
// here receives every fallback; the service still counts them.
func WithEncoderOptions(opts ...fields.Option) Option {
	return func(s *Service) {
		s.encoderOpts = append(s.encoderOpts, opts...)
	}
}

func New(source DataSource, signer Signer, prover Prover, reg *registry.Aggregator, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("data source is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("oracle signer is required")
	}
	if prover == nil {
		return nil, fmt.Errorf("prover is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry aggregator is required")
	}

	svc := &Service{
		source:       source,
		signer:       signer,
		prover:       prover,
		registry:     reg,
		logger:       slog.New(slog.DiscardHandler),
		tracer:       otel.Tracer(tracerName),
		concurrency:  4,
		ledgerPolicy: retry.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}

	// caller options pick the downstream reporter; counting wraps it
	base := fields.NewEncoder(slices.Concat([]fields.Option{fields.WithLogger(svc.logger)}, svc.encoderOpts)...)
	reporter := fallbackReporter{next: base.Reporter(), metrics: svc.metrics}
	svc.encoder = fields.NewEncoder(slices.Concat(svc.encoderOpts, []fields.Option{fields.WithReporter(reporter)})...)
	return svc, nil
}

// Registry exposes the aggregator the service writes to.
func (s *Service) Registry() *registry.Aggregator { return s.registry }

// Snapshot returns the current registry root and statistics.
func (s *Service) Snapshot() registry.Snapshot { return s.registry.Snapshot() }

func (s *Service) logSnapshot(ctx context.Context, msg string, snap registry.Snapshot, attrs ...any) {
	args := append([]any{
		"registry_root", snap.Root.String(),
		"total_companies", snap.TotalCompanies,
		"compliant_companies", snap.CompliantCompanies,
		"global_score", snap.GlobalComplianceScore,
		"total_verifications", snap.TotalVerificationsGlobal,
	}, attrs...)
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) publishRegistry(snap registry.Snapshot) {
	s.metrics.SetRegistry(snap.TotalCompanies, snap.CompliantCompanies, snap.GlobalComplianceScore, snap.TotalVerificationsGlobal)
}

// fallbackReporter counts encoding fallbacks and passes them on.
type fallbackReporter struct {
	next    fields.FallbackReporter
	metrics *metrics.Metrics
}

func (r fallbackReporter) EncodingFallback(ctx context.Context, f fields.Fallback) {
	r.next.EncodingFallback(ctx, f)
	r.metrics.IncrementFallback(string(f.EntityType), f.SlotName)
	if c, ok := ctx.Value(fallbackCounterKey{}).(*int); ok {
		*c++
	}
}

type fallbackCounterKey struct{}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	var se *stageError
	if errors.As(err, &se) {
		return se.err.Error()
	}
	return err.Error()
}
