package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/ledger"
	"zkregistry/internal/merkle"
	dErrors "zkregistry/pkg/domain-errors"
	"zkregistry/pkg/platform/retry"
	"zkregistry/pkg/requestcontext"
)

// MaxBatchSize bounds the identifiers accepted in one batch.
const MaxBatchSize = 256

// VerifyBatch verifies every identifier and returns one result per
// identifier in request order. Entity failures are reported in their
// result and never stop the batch. Cancelling ctx stops entities that have
// not started; entities already registered stay registered.
//
// Fetching and proving run concurrently. Identifiers that resolve to the
// same registry identity are audited and applied in request order. The
// returned error is non-nil only for invalid requests and registry
// invariant violations.
func (s *Service) VerifyBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if _, err := models.SchemaFor(req.EntityType); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "unsupported entity type")
	}
	if len(req.Identifiers) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one identifier is required")
	}
	if len(req.Identifiers) > MaxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d identifiers per batch", MaxBatchSize))
	}

	ctx, span := s.tracer.Start(ctx, "verification.batch")
	defer span.End()

	start := requestcontext.Now(ctx).UTC()
	ctx = requestcontext.WithTime(ctx, start)
	batchID := uuid.NewString()

	result := &BatchResult{
		BatchID:    batchID,
		EntityType: req.EntityType,
		Results:    make([]EntityResult, len(req.Identifiers)),
		Before:     s.registry.Snapshot(),
		StartedAt:  start,
	}
	s.logSnapshot(ctx, "verification batch started", result.Before,
		"batch_id", batchID,
		"entity_type", req.EntityType,
		"entities", len(req.Identifiers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	seq := newSequencer(len(req.Identifiers))
	for i, identifier := range req.Identifiers {
		identifier = strings.TrimSpace(identifier)
		if err := gctx.Err(); err != nil {
			result.Results[i] = s.notStarted(ctx, batchID, req.EntityType, i, identifier, err)
			seq.release(i)
			continue
		}

		g.Go(func() error {
			defer seq.release(i)
			if err := gctx.Err(); err != nil {
				result.Results[i] = s.notStarted(ctx, batchID, req.EntityType, i, identifier, err)
				return nil
			}
			res, err := s.verifyEntity(gctx, batchID, req.EntityType, i, identifier, seq)
			result.Results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "verification batch aborted",
			"batch_id", batchID,
			"error", err,
		)
		return nil, invariantError(err)
	}

	for _, r := range result.Results {
		if r.Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	result.After = s.registry.Snapshot()
	result.CompletedAt = time.Now().UTC()
	s.metrics.ObserveBatch(result.CompletedAt.Sub(start))
	s.logSnapshot(ctx, "verification batch completed", result.After,
		"batch_id", batchID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

// Verify runs a single-entity batch.
func (s *Service) Verify(ctx context.Context, t models.EntityType, identifier string) (EntityResult, error) {
	res, err := s.VerifyBatch(ctx, BatchRequest{EntityType: t, Identifiers: []string{identifier}})
	if err != nil {
		return EntityResult{}, err
	}
	return res.Results[0], nil
}

func (s *Service) notStarted(ctx context.Context, batchID string, t models.EntityType, pos int, identifier string, cause error) EntityResult {
	res := EntityResult{
		Position:   pos,
		EntityType: t,
		Identifier: identifier,
		Timestamp:  requestcontext.Now(ctx).UTC(),
	}
	s.failResult(ctx, batchID, &res, fail(CategoryCancelled, cause))
	return res
}

// sequencer orders the registry step of batch positions that resolve to
// the same identity. Each slot is written only by the goroutine that owns
// its position.
type sequencer struct {
	slots []slot
}

type slot struct {
	resolved chan struct{} // identity is set, or the position failed before resolving
	done     chan struct{} // registry step finished
	identity merkle.Hash
	ready    bool
	released bool
}

func newSequencer(n int) *sequencer {
	q := &sequencer{slots: make([]slot, n)}
	for i := range q.slots {
		q.slots[i].resolved = make(chan struct{})
		q.slots[i].done = make(chan struct{})
	}
	return q
}

// acquire publishes the identity of pos and blocks until every earlier
// position with the same identity has released.
func (q *sequencer) acquire(ctx context.Context, pos int, identity merkle.Hash) error {
	own := &q.slots[pos]
	own.identity = identity
	own.ready = true
	close(own.resolved)

	// earlier positions were started first, so waiting on them cannot cycle
	for j := 0; j < pos; j++ {
		prev := &q.slots[j]
		select {
		case <-prev.resolved:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !prev.ready || prev.identity != identity {
			continue
		}
		select {
		case <-prev.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// release ends the registry step of pos. Calling it again is a no-op.
func (q *sequencer) release(pos int) {
	own := &q.slots[pos]
	if own.released {
		return
	}
	own.released = true
	if !own.ready {
		close(own.resolved)
	}
	close(own.done)
}

// submitRoot moves the ledger head to the current registry root. Returns
// a nil receipt when the head already holds it.
func (s *Service) submitRoot(ctx context.Context, identity merkle.Hash) (*ledger.Receipt, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveStage("ledger", time.Since(start)) }()

	policy := s.ledgerPolicy
	policy.Retryable = func(err error) bool {
		// another submitter moved the head; re-read it and try again
		return errors.Is(err, ledger.ErrStaleRoot) || errors.Is(err, ledger.ErrNonceUsed)
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (*ledger.Receipt, error) {
		head, err := s.ledger.Head(ctx)
		if err != nil {
			return nil, err
		}
		root := s.registry.Root()
		if head.Root == root {
			return nil, nil
		}
		r, err := s.ledger.Submit(ctx, head.Next(root, identity))
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
}
