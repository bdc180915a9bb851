package verification

import (
	"context"
	"errors"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/merkle"
	"zkregistry/internal/oracle"
	"zkregistry/internal/registry"
	"zkregistry/internal/zkproof"
	dErrors "zkregistry/pkg/domain-errors"
)

// ErrorCategory classifies why an entity was not registered.
type ErrorCategory string

const (
	CategoryDataFetch           ErrorCategory = "data_fetch"
	CategoryEncoding            ErrorCategory = "encoding"
	CategorySigning             ErrorCategory = "signing"
	CategorySignatureMismatch   ErrorCategory = "signature_mismatch"
	CategoryInclusionMismatch   ErrorCategory = "inclusion_mismatch"
	CategoryProof               ErrorCategory = "proof"
	CategoryRegistryConcurrency ErrorCategory = "registry_concurrency"
	CategoryAudit               ErrorCategory = "audit"
	CategoryCancelled           ErrorCategory = "cancelled"
	CategoryInternal            ErrorCategory = "internal"
)

// stageError tags an entity failure with the stage it happened in.
type stageError struct {
	category ErrorCategory
	err      error
}

func (e *stageError) Error() string { return string(e.category) + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

func fail(category ErrorCategory, err error) error {
	return &stageError{category: category, err: err}
}

// categorize maps an entity error to its category. Explicit stage tags win
// over the sentinel checks.
func categorize(err error) ErrorCategory {
	var se *stageError
	if errors.As(err, &se) {
		return se.category
	}
	var pe *providers.ProviderError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCancelled
	case errors.As(err, &pe):
		return CategoryDataFetch
	case errors.Is(err, oracle.ErrSignatureMismatch):
		return CategorySignatureMismatch
	case errors.Is(err, merkle.ErrInclusionMismatch):
		return CategoryInclusionMismatch
	case errors.Is(err, zkproof.ErrProofInvalid), errors.Is(err, zkproof.ErrStatementInvalid):
		return CategoryProof
	case errors.Is(err, registry.ErrConcurrencyViolation):
		return CategoryRegistryConcurrency
	case errors.Is(err, fields.ErrSlotUnset), errors.Is(err, fields.ErrSlotAlreadySet):
		return CategoryEncoding
	}
	return CategoryInternal
}

// isInvariantViolation reports errors that must abort the batch: a tree
// index outside capacity or a full registry.
func isInvariantViolation(err error) bool {
	return errors.Is(err, merkle.ErrIndexOutOfRange) || errors.Is(err, registry.ErrRegistryFull)
}

func invariantError(err error) error {
	return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "registry invariant violated")
}
