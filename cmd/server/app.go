package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"zkregistry/internal/evidence"
	"zkregistry/internal/evidence/cache"
	evidencemetrics "zkregistry/internal/evidence/metrics"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/evidence/providers/corpreg"
	"zkregistry/internal/evidence/providers/exim"
	"zkregistry/internal/evidence/providers/gleif"
	"zkregistry/internal/evidence/providers/static"
	"zkregistry/internal/ledger"
	"zkregistry/internal/oracle"
	"zkregistry/internal/platform/config"
	"zkregistry/internal/platform/postgres"
	"zkregistry/internal/platform/redis"
	ratelimitmetrics "zkregistry/internal/ratelimit/metrics"
	ratelimit "zkregistry/internal/ratelimit/middleware"
	ratelimitmodels "zkregistry/internal/ratelimit/models"
	"zkregistry/internal/ratelimit/store/bucket"
	"zkregistry/internal/registry"
	"zkregistry/internal/verification"
	verificationmetrics "zkregistry/internal/verification/metrics"
	"zkregistry/internal/zkproof"
	audit "zkregistry/pkg/platform/audit"
	"zkregistry/pkg/platform/audit/publishers/compliance"
	"zkregistry/pkg/platform/audit/store/kafka"
	auditmemory "zkregistry/pkg/platform/audit/store/memory"
	"zkregistry/pkg/platform/retry"
)

// app is one registry session with every backing service connected.
type app struct {
	cfg          config.Config
	logger       *slog.Logger
	metrics      *prometheus.Registry
	evidence     *evidence.Service
	registry     *registry.Aggregator
	verification *verification.Service
	limiter      *ratelimit.Limiter

	closers []func() error
}

// newApp connects the optional backends named in cfg and falls back to
// in-process implementations for any that are not configured.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, metrics: prometheus.NewRegistry()}
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	rc, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
	}

	a.limiter, err = a.newLimiter(rc)
	if err != nil {
		return nil, err
	}

	source, err := a.newEvidence(rc)
	if err != nil {
		return nil, err
	}
	a.evidence = source

	l, err := a.newLedger(ctx, rc)
	if err != nil {
		return nil, err
	}
	publisher, err := a.newAuditPublisher(ctx)
	if err != nil {
		return nil, err
	}
	signer, err := newSigner(cfg.Oracle, logger)
	if err != nil {
		return nil, err
	}

	var prover verification.Prover = zkproof.NativeProver{}
	if cfg.Verification.ProveEnabled {
		prover = zkproof.NewGroth16Prover(zkproof.WithLogger(logger))
	}

	a.registry, err = registry.NewAggregator(cfg.Registry.Height,
		registry.WithLogger(logger),
		registry.WithName(cfg.Registry.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	a.verification, err = verification.New(source, signer, prover, a.registry,
		verification.WithLogger(logger),
		verification.WithMetrics(verificationmetrics.NewWithRegisterer(a.metrics)),
		verification.WithLedger(l),
		verification.WithAuditPublisher(publisher),
		verification.WithConcurrency(cfg.Verification.Concurrency),
		verification.WithEntityTimeout(cfg.Verification.EntityTimeout),
		verification.WithLedgerRetry(retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}),
	)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "registry session ready",
		"registry", cfg.Registry.Name,
		"height", cfg.Registry.Height,
		"oracle_public_key", signer.PublicKey().String(),
		"prover", fmt.Sprintf("%T", prover),
	)
	return a, nil
}

// newLimiter shares windows through redis when it is configured. It returns
// nil when rate limiting is disabled.
func (a *app) newLimiter(rc *redis.Client) (*ratelimit.Limiter, error) {
	rl := a.cfg.RateLimit
	if !rl.Enabled {
		return nil, nil
	}
	var store ratelimit.Store = bucket.New()
	if rc != nil {
		store = bucket.NewRedis(rc.Client)
	}
	return ratelimit.New(store, map[ratelimitmodels.EndpointClass]ratelimitmodels.Limit{
		ratelimitmodels.ClassRead:   {Requests: rl.ReadRequests, Window: rl.Window},
		ratelimitmodels.ClassVerify: {Requests: rl.VerifyRequests, Window: rl.Window},
	},
		ratelimit.WithLogger(a.logger),
		ratelimit.WithMetrics(ratelimitmetrics.NewWithRegisterer(a.metrics)),
	)
}

func (a *app) newEvidence(rc *redis.Client) (*evidence.Service, error) {
	reg := providers.NewProviderRegistry()
	src := a.cfg.Sources
	var all []providers.Provider
	if src.Static {
		for _, p := range static.Samples() {
			all = append(all, p)
		}
	} else {
		all = append(all, gleif.New("gleif-api", src.GLEIFBaseURL, src.HTTPTimeout))
		if src.CorpRegBaseURL != "" {
			all = append(all, corpreg.New("mca-api", src.CorpRegBaseURL, src.CorpRegAPIKey, src.HTTPTimeout))
		}
		if src.EXIMBaseURL != "" {
			all = append(all, exim.New("dgft-api", src.EXIMBaseURL, src.EXIMAPIKey, src.HTTPTimeout))
		}
	}
	for _, p := range all {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	var c cache.Cache
	if rc != nil {
		c = cache.NewRedis(rc.Client, src.CacheTTL)
	} else {
		mem := cache.NewMemory(src.CacheTTL)
		a.closers = append(a.closers, func() error { mem.Close(); return nil })
		c = mem
	}

	return evidence.NewService(reg,
		evidence.WithCache(c),
		evidence.WithRetryPolicy(retry.Policy{MaxAttempts: a.cfg.Retry.MaxAttempts, Delay: a.cfg.Retry.Delay}),
		evidence.WithLogger(a.logger),
		evidence.WithMetrics(evidencemetrics.NewWithRegisterer(a.metrics)),
	), nil
}

func (a *app) newLedger(ctx context.Context, rc *redis.Client) (verification.Ledger, error) {
	db, err := postgres.Open(ctx, a.cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db == nil {
		a.logger.WarnContext(ctx, "DATABASE_URL not set; registry roots are kept in memory")
		return ledger.NewMemory(), nil
	}
	a.closers = append(a.closers, db.Close)
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, err
	}

	pg := ledger.NewPostgres(db, a.cfg.Registry.Name)
	if rc == nil {
		return pg, nil
	}
	lease := ledger.NewLease(rc.Client, a.cfg.Registry.Name, a.cfg.Registry.LeaseTTL)
	return ledger.NewLeased(pg, lease, ledger.WithLeaseLogger(a.logger)), nil
}

func (a *app) newAuditPublisher(ctx context.Context) (*compliance.Publisher, error) {
	var store audit.Store
	if len(a.cfg.Kafka.Brokers) > 0 {
		ks, err := kafka.New(ctx, a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { ks.Close(); return nil })
		store = ks
	} else {
		store = auditmemory.NewInMemoryStore()
	}

	p := compliance.New(store,
		compliance.WithLogger(a.logger),
		compliance.WithMetrics(compliance.NewMetricsWithRegisterer(a.metrics)),
	)
	a.closers = append(a.closers, p.Close)
	return p, nil
}

func newSigner(cfg config.OracleConfig, logger *slog.Logger) (*oracle.Signer, error) {
	if cfg.Seed != "" {
		return oracle.NewSignerFromHex(cfg.Seed)
	}
	seed, err := oracle.GenerateSeed(rand.Reader)
	if err != nil {
		return nil, err
	}
	signer, err := oracle.NewSigner(seed)
	if err != nil {
		return nil, err
	}
	logger.Warn("ORACLE_SEED not set; signing with an ephemeral key",
		"oracle_public_key", signer.PublicKey().String(),
	)
	return signer, nil
}

// Close releases backends in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
