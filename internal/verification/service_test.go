package verification

//go:generate mockgen -source=ports/ports.go -destination=ports/mocks/mocks.go -package=mocks

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/evidence/providers/static"
	"zkregistry/internal/ledger"
	"zkregistry/internal/oracle"
	"zkregistry/internal/registry"
	"zkregistry/internal/verification/metrics"
	"zkregistry/internal/verification/ports/mocks"
	"zkregistry/internal/zkproof"
	dErrors "zkregistry/pkg/domain-errors"
	"zkregistry/pkg/platform/audit"
	"zkregistry/pkg/platform/audit/publishers/compliance"
	auditmemory "zkregistry/pkg/platform/audit/store/memory"
	"zkregistry/pkg/platform/retry"
	"zkregistry/pkg/requestcontext"
)

const (
	acmeLEI   = "5493001KJTIIGC8Y1R12"
	globexLEI = "529900T8BM49AURSDO55"
)

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	gleif    *static.Provider
	source   *evidence.Service
	signer   *oracle.Signer
	registry *registry.Aggregator
	audit    *auditmemory.InMemoryStore
	metrics  *metrics.Metrics
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.gleif = static.New("static-gleif", models.EntityTypeGLEIF)
	s.gleif.Add("ACME CORP", static.GLEIFRecord(acmeLEI, "ACME CORP", "ACTIVE"))
	s.gleif.Add(acmeLEI, static.GLEIFRecord(acmeLEI, "ACME CORP", "ACTIVE"))
	s.gleif.Add("GLOBEX LTD", static.GLEIFRecord(globexLEI, "GLOBEX LTD", "INACTIVE"))

	reg := providers.NewProviderRegistry()
	s.Require().NoError(reg.Register(s.gleif))
	s.source = evidence.NewService(reg, evidence.WithRetryPolicy(retry.Policy{MaxAttempts: 2}))

	signer, err := oracle.NewSigner(bytes.Repeat([]byte{7}, oracle.SeedSize))
	s.Require().NoError(err)
	s.signer = signer

	s.registry, err = registry.NewAggregator(8)
	s.Require().NoError(err)

	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.service = s.newService()
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithAuditPublisher(compliance.New(s.audit)),
		WithMetrics(s.metrics),
	}
	svc, err := New(s.source, s.signer, zkproof.NativeProver{}, s.registry, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) TestNewRequiresCapabilities() {
	prover := zkproof.NativeProver{}

	_, err := New(nil, s.signer, prover, s.registry)
	s.ErrorContains(err, "data source is required")

	_, err = New(s.source, nil, prover, s.registry)
	s.ErrorContains(err, "oracle signer is required")

	_, err = New(s.source, s.signer, nil, s.registry)
	s.ErrorContains(err, "prover is required")

	_, err = New(s.source, s.signer, prover, nil)
	s.ErrorContains(err, "registry aggregator is required")
}

func (s *ServiceSuite) TestVerifyCompliantEntity() {
	res, err := s.service.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)

	s.Empty(res.Error)
	s.True(res.IsCompliant)
	s.Equal(100, res.ComplianceScore)
	s.Empty(res.FailedRules)
	s.Equal("ACME CORP", res.Name)
	s.Equal(registry.Identity(acmeLEI, "ACME CORP"), res.Identity)
	s.Equal(zkproof.SystemNative, res.ProofSystem)
	s.NoError(oracle.Check(res.Signature, res.DataRoot, s.signer.PublicKey()))

	s.Require().NotNil(res.Record)
	s.Equal(uint64(1), res.Record.TotalVerifications)
	s.Equal(res.DataRoot, res.Record.DataRoot)

	snap := s.registry.Snapshot()
	s.Equal(1, snap.TotalCompanies)
	s.Equal(1, snap.CompliantCompanies)
	s.Equal(100, snap.GlobalComplianceScore)

	_, w, root, err := s.registry.Proof(res.Identity)
	s.Require().NoError(err)
	s.Equal(snap.Root, root)
	s.True(registry.VerifyRecord(snap.Root, w, *res.Record))

	events, err := s.audit.ListByIdentifier(context.Background(), "ACME CORP")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventComplianceVerified), events[0].Action)
	s.Equal(res.Identity.String(), events[0].Identity)

	s.Equal(1.0, promtest.ToFloat64(s.metrics.Outcomes.WithLabelValues("gleif", "compliant")))
}

func (s *ServiceSuite) TestNameAndIdentifierShareIdentity() {
	byName, err := s.service.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	byLEI, err := s.service.Verify(context.Background(), models.EntityTypeGLEIF, acmeLEI)
	s.Require().NoError(err)

	s.Equal(byName.Identity, byLEI.Identity)
	s.Equal(uint64(2), byLEI.Record.TotalVerifications)
	s.Equal(1, s.registry.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestNonCompliantEntityIsRegistered() {
	res, err := s.service.Verify(context.Background(), models.EntityTypeGLEIF, "GLOBEX LTD")
	s.Require().NoError(err)

	s.Empty(res.Error)
	s.False(res.IsCompliant)
	s.Equal([]string{"entity_status_active"}, res.FailedRules)
	s.Equal(83, res.ComplianceScore)
	s.Require().NotNil(res.Record)
	s.Equal(uint64(1), res.Record.ConsecutiveFailures)

	snap := s.registry.Snapshot()
	s.Equal(1, snap.TotalCompanies)
	s.Equal(0, snap.CompliantCompanies)

	events, err := s.audit.ListByIdentifier(context.Background(), "GLOBEX LTD")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventComplianceFailed), events[0].Action)
}

func (s *ServiceSuite) TestPartialFailureIsIsolated() {
	res, err := s.service.VerifyBatch(context.Background(), BatchRequest{
		EntityType:  models.EntityTypeGLEIF,
		Identifiers: []string{"ACME CORP", "UNKNOWN_CORP_X"},
	})
	s.Require().NoError(err)
	s.Require().Len(res.Results, 2)

	s.Empty(res.Results[0].Error)
	s.True(res.Results[0].IsCompliant)

	failed := res.Results[1]
	s.Equal("UNKNOWN_CORP_X", failed.Identifier)
	s.NotEmpty(failed.Error)
	s.Equal(CategoryDataFetch, failed.ErrorCategory)
	s.False(failed.IsCompliant)
	s.Equal(0, failed.ComplianceScore)
	s.Nil(failed.Record)

	s.Equal(1, res.Succeeded)
	s.Equal(1, res.Failed)
	s.Equal(0, res.Before.TotalCompanies)
	s.Equal(1, res.After.TotalCompanies)

	events, err := s.audit.ListByIdentifier(context.Background(), "UNKNOWN_CORP_X")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventVerificationError), events[0].Action)
	s.Equal(string(CategoryDataFetch), events[0].ErrorCategory)

	// not-found is never retried
	s.Equal(2, s.gleif.Calls())
}

func (s *ServiceSuite) TestFailThenPassKeepsLastFailTime() {
	first := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	s.gleif.Add("ACME CORP", static.GLEIFRecord(acmeLEI, "ACME CORP", "INACTIVE"))
	res1, err := s.service.Verify(requestcontext.WithTime(context.Background(), first), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.False(res1.IsCompliant)

	s.gleif.Add("ACME CORP", static.GLEIFRecord(acmeLEI, "ACME CORP", "ACTIVE"))
	res2, err := s.service.Verify(requestcontext.WithTime(context.Background(), second), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.True(res2.IsCompliant)

	rec, err := s.registry.Record(res2.Identity)
	s.Require().NoError(err)
	s.Equal(uint64(2), rec.TotalVerifications)
	s.Equal(uint64(1), rec.PassedVerifications)
	s.Equal(uint64(1), rec.FailedVerifications)
	s.Equal(uint64(0), rec.ConsecutiveFailures)
	s.Equal(first, rec.LastFailTime)
	s.Equal(second, rec.LastPassTime)
	s.Equal(first, rec.FirstVerificationTime)
	s.True(rec.IsCompliant)
}

func (s *ServiceSuite) TestRepeatedIdentifiersApplyInOrder() {
	svc := s.newService(WithConcurrency(8))
	res, err := svc.VerifyBatch(context.Background(), BatchRequest{
		EntityType:  models.EntityTypeGLEIF,
		Identifiers: []string{"ACME CORP", "acme corp", "ACME CORP", "GLOBEX LTD"},
	})
	s.Require().NoError(err)
	s.Require().Len(res.Results, 4)

	for i := 0; i < 3; i++ {
		s.Require().NotNil(res.Results[i].Record, "result %d", i)
		s.Equal(uint64(i+1), res.Results[i].Record.TotalVerifications, "result %d", i)
		s.Equal(i, res.Results[i].Position)
	}
	s.Equal(2, res.After.TotalCompanies)
	s.Equal(uint64(4), res.After.TotalVerificationsGlobal)
	s.Equal(50, res.After.GlobalComplianceScore)
}

func (s *ServiceSuite) TestNameAndIdentifierInOneBatchApplyInOrder() {
	for run := 0; run < 50; run++ {
		reg, err := registry.NewAggregator(8)
		s.Require().NoError(err)
		svc, err := New(s.source, s.signer, zkproof.NativeProver{}, reg, WithConcurrency(8))
		s.Require().NoError(err)

		res, err := svc.VerifyBatch(context.Background(), BatchRequest{
			EntityType:  models.EntityTypeGLEIF,
			Identifiers: []string{"ACME CORP", acmeLEI},
		})
		s.Require().NoError(err)
		s.Require().Len(res.Results, 2)
		s.Require().NotNil(res.Results[0].Record, "run %d", run)
		s.Require().NotNil(res.Results[1].Record, "run %d", run)

		s.Equal(res.Results[0].Identity, res.Results[1].Identity)
		s.Equal(uint64(1), res.Results[0].Record.TotalVerifications, "run %d", run)
		s.Equal(uint64(2), res.Results[1].Record.TotalVerifications, "run %d", run)
		s.Equal(1, res.After.TotalCompanies)
	}
}

func (s *ServiceSuite) TestSameIdentityAuditFollowsRequestOrder() {
	var (
		mu    sync.Mutex
		order []string
	)
	auditor := mocks.NewMockAuditPublisher(s.ctrl)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.ComplianceEvent) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, e.Identifier)
			return nil
		}).Times(4)

	svc, err := New(s.source, s.signer, zkproof.NativeProver{}, s.registry,
		WithAuditPublisher(auditor), WithConcurrency(8))
	s.Require().NoError(err)

	ids := []string{acmeLEI, "ACME CORP", acmeLEI, "ACME CORP"}
	res, err := svc.VerifyBatch(context.Background(), BatchRequest{
		EntityType:  models.EntityTypeGLEIF,
		Identifiers: ids,
	})
	s.Require().NoError(err)
	s.Equal(ids, order)
	for i, r := range res.Results {
		s.Require().NotNil(r.Record, "result %d", i)
		s.Equal(uint64(i+1), r.Record.TotalVerifications, "result %d", i)
	}
}

type recordingReporter struct {
	mu    sync.Mutex
	slots []string
}

func (r *recordingReporter) EncodingFallback(_ context.Context, f fields.Fallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, f.SlotName)
}

func (s *ServiceSuite) TestCustomFallbackReporterKeepsCounting() {
	values := static.GLEIFRecord(acmeLEI, "ACME CORP", "ACTIVE")
	values["entity"].(map[string]any)["jurisdiction"] = "US-\xff"
	s.gleif.Add("ACME CORP", values)

	reporter := &recordingReporter{}
	svc := s.newService(WithEncoderOptions(fields.WithReporter(reporter)))

	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Empty(res.Error)
	s.Equal(1, res.Fallbacks)
	s.Equal([]string{"jurisdiction"}, reporter.slots)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.EncodingFallbacks.WithLabelValues(string(models.EntityTypeGLEIF), "jurisdiction")))
}

func (s *ServiceSuite) TestCancelledBatchRegistersNothing() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.service.VerifyBatch(ctx, BatchRequest{
		EntityType:  models.EntityTypeGLEIF,
		Identifiers: []string{"ACME CORP", "GLOBEX LTD"},
	})
	s.Require().NoError(err)
	for _, r := range res.Results {
		s.Equal(CategoryCancelled, r.ErrorCategory)
		s.False(r.IsCompliant)
	}
	s.Equal(2, res.Failed)
	s.Equal(0, s.registry.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestInvalidBatchRequests() {
	_, err := s.service.VerifyBatch(context.Background(), BatchRequest{EntityType: "basel3", Identifiers: []string{"X"}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.VerifyBatch(context.Background(), BatchRequest{EntityType: models.EntityTypeGLEIF})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	ids := make([]string, MaxBatchSize+1)
	for i := range ids {
		ids[i] = "ACME CORP"
	}
	_, err = s.service.VerifyBatch(context.Background(), BatchRequest{EntityType: models.EntityTypeGLEIF, Identifiers: ids})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRegistryCapacityAbortsBatch() {
	small, err := registry.NewAggregator(1)
	s.Require().NoError(err)
	s.gleif.Add("INITECH", static.GLEIFRecord("254900OPPU84GM83MG36", "INITECH", "ACTIVE"))

	svc, err := New(s.source, s.signer, zkproof.NativeProver{}, small, WithConcurrency(1))
	s.Require().NoError(err)

	_, err = svc.VerifyBatch(context.Background(), BatchRequest{
		EntityType:  models.EntityTypeGLEIF,
		Identifiers: []string{"ACME CORP", "GLOBEX LTD", "INITECH"},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.ErrorIs(err, registry.ErrRegistryFull)
	s.Equal(2, small.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestSignatureMismatchKeepsEntityOut() {
	other, err := oracle.NewSigner(bytes.Repeat([]byte{9}, oracle.SeedSize))
	s.Require().NoError(err)

	signer := mocks.NewMockSigner(s.ctrl)
	signer.EXPECT().Bind(gomock.Any()).DoAndReturn(s.signer.Bind)
	signer.EXPECT().PublicKey().Return(other.PublicKey()).AnyTimes()

	svc, err := New(s.source, signer, zkproof.NativeProver{}, s.registry, WithAuditPublisher(compliance.New(s.audit)))
	s.Require().NoError(err)

	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Equal(CategorySignatureMismatch, res.ErrorCategory)
	s.Nil(res.Record)
	s.Equal(0, s.registry.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestSigningFailure() {
	signer := mocks.NewMockSigner(s.ctrl)
	signer.EXPECT().Bind(gomock.Any()).Return(nil, errors.New("hsm offline"))
	signer.EXPECT().PublicKey().Return(s.signer.PublicKey()).AnyTimes()

	svc, err := New(s.source, signer, zkproof.NativeProver{}, s.registry)
	s.Require().NoError(err)

	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Equal(CategorySigning, res.ErrorCategory)
	s.Contains(res.Error, "hsm offline")
}

func (s *ServiceSuite) TestProofFailure() {
	prover := mocks.NewMockProver(s.ctrl)
	prover.EXPECT().Prove(gomock.Any(), gomock.Any()).Return(nil, zkproof.ErrProofInvalid)

	svc, err := New(s.source, s.signer, prover, s.registry)
	s.Require().NoError(err)

	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Equal(CategoryProof, res.ErrorCategory)
	s.Equal(0, s.registry.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestSourceTimeoutIsDataFetch() {
	source := mocks.NewMockDataSource(s.ctrl)
	source.EXPECT().
		Fetch(gomock.Any(), models.EntityTypeGLEIF, "ACME CORP").
		Return(nil, providers.TransportError("gleif", context.DeadlineExceeded))

	svc, err := New(source, s.signer, zkproof.NativeProver{}, s.registry)
	s.Require().NoError(err)

	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Equal(CategoryDataFetch, res.ErrorCategory)
}

func (s *ServiceSuite) TestAuditFailureFailsClosed() {
	auditor := mocks.NewMockAuditPublisher(s.ctrl)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit store down"))

	svc, err := New(s.source, s.signer, zkproof.NativeProver{}, s.registry, WithAuditPublisher(auditor))
	s.Require().NoError(err)

	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Equal(CategoryAudit, res.ErrorCategory)
	s.Nil(res.Record)
	s.Equal(0, s.registry.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestSubmitsRootToLedger() {
	l := ledger.NewMemory()
	svc := s.newService(WithLedger(l))

	res, err := svc.VerifyBatch(context.Background(), BatchRequest{
		EntityType:  models.EntityTypeGLEIF,
		Identifiers: []string{"ACME CORP", "GLOBEX LTD"},
	})
	s.Require().NoError(err)

	head, err := l.Head(context.Background())
	s.Require().NoError(err)
	s.Equal(s.registry.Root(), head.Root)
	s.NotEmpty(l.Receipts())

	// the second entity finds the head already at the final root when the
	// first submission covered both upserts
	var receipts int
	for _, r := range res.Results {
		s.Empty(r.LedgerError)
		if r.Ledger != nil {
			receipts++
			s.Equal(ledger.StatusPending, r.Ledger.Status)
		}
	}
	s.Equal(len(l.Receipts()), receipts)
}

func (s *ServiceSuite) TestLedgerFailureKeepsRegistration() {
	l := mocks.NewMockLedger(s.ctrl)
	l.EXPECT().Head(gomock.Any()).Return(ledger.Head{}, errors.New("connection refused"))

	svc := s.newService(WithLedger(l))
	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)

	s.Empty(res.Error)
	s.Contains(res.LedgerError, "connection refused")
	s.Require().NotNil(res.Record)
	s.Equal(1, s.registry.Snapshot().TotalCompanies)
}

func (s *ServiceSuite) TestLedgerRetriesStaleHead() {
	l := mocks.NewMockLedger(s.ctrl)
	gomock.InOrder(
		l.EXPECT().Head(gomock.Any()).Return(ledger.Head{}, nil),
		l.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(ledger.Receipt{}, ledger.ErrStaleRoot),
		l.EXPECT().Head(gomock.Any()).Return(ledger.Head{Nonce: 4}, nil),
		l.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u ledger.RootUpdate) (ledger.Receipt, error) {
				return ledger.Receipt{Hash: u.Hash(), Status: ledger.StatusPending, Nonce: u.Nonce}, nil
			}),
	)

	svc := s.newService(WithLedger(l), WithLedgerRetry(retry.Policy{MaxAttempts: 3}))
	res, err := svc.Verify(context.Background(), models.EntityTypeGLEIF, "ACME CORP")
	s.Require().NoError(err)
	s.Require().NotNil(res.Ledger)
	s.Equal(uint64(5), res.Ledger.Nonce)
}

func (s *ServiceSuite) TestDisclose() {
	d, err := s.service.Disclose(context.Background(), DisclosureRequest{
		EntityType: models.EntityTypeGLEIF,
		Identifier: "ACME CORP",
		Fields:     []string{"legal_name", "entity_status"},
	})
	s.Require().NoError(err)
	s.Require().Len(d.Fields, 2)
	s.Equal("ACME CORP", d.Fields[0].Value)
	s.Equal("ACTIVE", d.Fields[1].Value)
	s.NoError(VerifyDisclosure(d, s.service.PublicKey()))

	// disclosure does not register
	s.Equal(0, s.registry.Snapshot().TotalCompanies)

	s.Run("tampered value", func() {
		tampered := *d
		tampered.Fields = append([]fields.Disclosure(nil), d.Fields...)
		tampered.Fields[1].Value = "INACTIVE"
		s.Error(VerifyDisclosure(&tampered, s.service.PublicKey()))
	})

	s.Run("foreign key", func() {
		other, err := oracle.NewSigner(bytes.Repeat([]byte{9}, oracle.SeedSize))
		s.Require().NoError(err)
		s.ErrorIs(VerifyDisclosure(d, other.PublicKey()), oracle.ErrSignatureMismatch)
	})
}

func (s *ServiceSuite) TestDiscloseErrors() {
	_, err := s.service.Disclose(context.Background(), DisclosureRequest{
		EntityType: models.EntityTypeGLEIF,
		Identifier: "ACME CORP",
		Fields:     []string{"shoe_size"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Disclose(context.Background(), DisclosureRequest{
		EntityType: models.EntityTypeGLEIF,
		Identifier: "UNKNOWN_CORP_X",
		Fields:     []string{"lei"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryProof, categorize(fail(CategoryProof, errors.New("x"))))
	assert.Equal(t, CategoryCancelled, categorize(context.Canceled))
	assert.Equal(t, CategoryDataFetch, categorize(providers.NewProviderError(providers.ErrorNotFound, "p", "m", nil)))
	assert.Equal(t, CategorySignatureMismatch, categorize(oracle.ErrSignatureMismatch))
	assert.Equal(t, CategoryRegistryConcurrency, categorize(registry.ErrConcurrencyViolation))
	require.True(t, isInvariantViolation(registry.ErrRegistryFull))
}
