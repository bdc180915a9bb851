package verification

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/compliance/projector"
	"zkregistry/internal/compliance/rules"
	"zkregistry/internal/merkle"
	"zkregistry/internal/oracle"
	"zkregistry/internal/registry"
	"zkregistry/pkg/platform/audit"
	"zkregistry/pkg/requestcontext"
)

// committed is an entity whose fields were encoded, committed to and
// signed by the oracle.
type committed struct {
	raw       string // identifier as returned by the source
	tree      *fields.Tree
	data      models.ComplianceData
	signature oracle.Signature
	fallbacks int
}

func (s *Service) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "verification."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// commit fetches identifier and builds its signed field tree.
func (s *Service) commit(ctx context.Context, t models.EntityType, identifier string) (*committed, error) {
	schema, err := models.SchemaFor(t)
	if err != nil {
		return nil, fail(CategoryInternal, err)
	}

	c := &committed{}
	var values map[string]any
	err = s.stage(ctx, "fetch", func(ctx context.Context) error {
		rec, err := s.source.Fetch(ctx, t, identifier)
		if err != nil {
			return fail(CategoryDataFetch, err)
		}
		values = rec.Values
		c.raw = rec.Identifier
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, "encode", func(ctx context.Context) error {
		ctx = context.WithValue(ctx, fallbackCounterKey{}, &c.fallbacks)
		f, err := s.encoder.Encode(ctx, schema, values)
		if err != nil {
			return err
		}
		c.tree, err = fields.BuildTree(f)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.data = projector.FromTree(c.tree)

	err = s.stage(ctx, "sign", func(context.Context) error {
		sig, err := s.signer.Bind(c.tree.Root())
		if err != nil {
			return fail(CategorySigning, err)
		}
		c.signature = sig
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// verifyEntity runs the whole pipeline for one identifier. Entity-level
// failures come back in the result; only invariant violations are returned
// as errors.
func (s *Service) verifyEntity(ctx context.Context, batchID string, t models.EntityType, pos int, identifier string, seq *sequencer) (EntityResult, error) {
	ctx, span := s.tracer.Start(ctx, "verification.entity")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity_type", string(t)),
		attribute.String("identifier", identifier),
		attribute.Int("position", pos),
	)

	if s.entityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.entityTimeout)
		defer cancel()
	}

	res := EntityResult{
		Position:   pos,
		EntityType: t,
		Identifier: identifier,
		Timestamp:  requestcontext.Now(ctx).UTC(),
	}

	err := s.verify(ctx, batchID, t, pos, identifier, seq, &res)
	if err != nil {
		if isInvariantViolation(err) {
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		s.failResult(ctx, batchID, &res, err)
		span.SetStatus(codes.Error, res.Error)
		return res, nil
	}
	status := "non_compliant"
	if res.IsCompliant {
		status = "compliant"
	}
	s.metrics.IncrementOutcome(string(t), status)
	return res, nil
}

func (s *Service) verify(ctx context.Context, batchID string, t models.EntityType, pos int, identifier string, seq *sequencer, res *EntityResult) error {
	c, err := s.commit(ctx, t, identifier)
	if err != nil {
		return err
	}
	res.Name = c.data.Name
	res.DataRoot = c.tree.Root()
	res.Signature = c.signature
	res.Fallbacks = c.fallbacks

	err = s.stage(ctx, "prove", func(ctx context.Context) error {
		proof, err := s.prover.Prove(ctx, c.tree)
		if err != nil {
			return fail(CategoryProof, err)
		}
		res.ProofSystem = proof.System

		// nothing enters the registry unless the signature, the proof
		// and the projection all agree with the committed root
		if err := oracle.Check(c.signature, c.data.MerkleRoot, s.signer.PublicKey()); err != nil {
			return fail(CategorySignatureMismatch, err)
		}
		if err := s.prover.Verify(ctx, c.data, proof); err != nil {
			return fail(CategoryProof, err)
		}
		if err := projector.Reconcile(c.data, c.tree); err != nil {
			return fail(CategoryInclusionMismatch, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// the registry key uses the identifier the source returned so that
	// lookups by name and by ID land on the same entity
	regID := strings.TrimSpace(c.data.Identifier)
	if regID == "" {
		regID = identifier
	}
	identity := registry.Identity(regID, c.data.Name)
	res.Identity = identity

	// audit and registry steps for one identity follow request order
	if err := seq.acquire(ctx, pos, identity); err != nil {
		return fail(CategoryCancelled, err)
	}
	defer seq.release(pos)
	if err := ctx.Err(); err != nil {
		return fail(CategoryCancelled, err)
	}

	verdict := rules.Evaluate(c.data)
	if err := s.emit(ctx, batchID, res, identity, verdict); err != nil {
		return fail(CategoryAudit, err)
	}

	before := s.registry.Snapshot()
	s.logSnapshot(ctx, "registry snapshot before upsert", before,
		"stage", "before", "identity", identity.String())

	var (
		rec  registry.EntityRecord
		rcpt registry.Receipt
	)
	err = s.stage(ctx, "registry", func(context.Context) error {
		var applyErr error
		rec, rcpt, applyErr = s.registry.Apply(registry.Verification{
			EntityType: t,
			Identifier: regID,
			Name:       c.data.Name,
			DataRoot:   c.data.MerkleRoot,
			Compliant:  verdict.Verdict,
			Score:      verdict.Score,
			At:         res.Timestamp,
		})
		return applyErr
	})
	if err != nil {
		return err
	}

	after := s.registry.Snapshot()
	s.logSnapshot(ctx, "registry snapshot after upsert", after,
		"stage", "after", "identity", identity.String(), "index", rcpt.Index, "created", rcpt.Created)
	s.publishRegistry(after)
	seq.release(pos)

	res.IsCompliant = verdict.Verdict
	res.ComplianceScore = verdict.Score
	res.FailedRules = verdict.FailedRules
	res.Record = &rec
	res.RegistryIndex = rcpt.Index

	if s.ledger != nil {
		receipt, err := s.submitRoot(ctx, identity)
		switch {
		case err != nil:
			res.LedgerError = err.Error()
			s.logger.WarnContext(ctx, "registry root submission failed",
				"batch_id", batchID,
				"identity", identity.String(),
				"error", err,
			)
		case receipt != nil:
			res.Ledger = receipt
		}
	}
	return nil
}

func (s *Service) failResult(ctx context.Context, batchID string, res *EntityResult, err error) {
	res.Error = errorString(err)
	res.ErrorCategory = categorize(err)
	res.IsCompliant = false
	res.ComplianceScore = 0
	res.FailedRules = nil
	res.Record = nil

	s.metrics.IncrementOutcome(string(res.EntityType), "error")
	s.logger.WarnContext(ctx, "entity verification failed",
		"batch_id", batchID,
		"entity_type", res.EntityType,
		"identifier", res.Identifier,
		"category", res.ErrorCategory,
		"error", err,
	)

	if s.auditor == nil || res.ErrorCategory == CategoryAudit {
		return
	}
	event := audit.ComplianceEvent{
		Timestamp:     res.Timestamp,
		Action:        audit.EventVerificationError,
		BatchID:       batchID,
		RequestID:     requestcontext.RequestID(ctx),
		EntityType:    string(res.EntityType),
		Identifier:    res.Identifier,
		ErrorCategory: string(res.ErrorCategory),
		Reason:        res.Error,
	}
	if !res.Identity.IsZero() {
		event.Identity = res.Identity.String()
	}
	// the entity already failed; a lost error event is only logged
	if err := s.auditor.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit verification error",
			"identifier", res.Identifier,
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, batchID string, res *EntityResult, identity merkle.Hash, verdict rules.Result) error {
	if s.auditor == nil {
		return nil
	}
	action := audit.EventComplianceFailed
	if verdict.Verdict {
		action = audit.EventComplianceVerified
	}
	return s.auditor.Emit(ctx, audit.ComplianceEvent{
		Timestamp:   res.Timestamp,
		Action:      action,
		BatchID:     batchID,
		RequestID:   requestcontext.RequestID(ctx),
		EntityType:  string(res.EntityType),
		Identifier:  res.Identifier,
		Identity:    identity.String(),
		DataRoot:    res.DataRoot.String(),
		Compliant:   verdict.Verdict,
		Score:       uint64(verdict.Score),
		FailedRules: verdict.FailedRules,
	})
}
