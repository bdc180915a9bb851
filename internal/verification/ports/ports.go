// Package ports declares the capabilities the verification service depends
// on, so it can be tested without network, keys or a prover.
package ports

import (
	"context"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/ledger"
	"zkregistry/internal/merkle"
	"zkregistry/internal/oracle"
	"zkregistry/internal/zkproof"
	"zkregistry/pkg/platform/audit"
)

// DataSource fetches raw entity records from their source registry.
type DataSource interface {
	Fetch(ctx context.Context, t models.EntityType, identifier string) (*providers.RawEntityRecord, error)
}

// Signer is the oracle: it signs entity tree roots.
type Signer interface {
	Bind(root merkle.Hash) (oracle.Signature, error)
	PublicKey() oracle.PublicKey
}

// Prover generates and checks proofs that projected fields belong to a
// signed root.
type Prover interface {
	Prove(ctx context.Context, tree *fields.Tree) (*zkproof.Proof, error)
	Verify(ctx context.Context, data models.ComplianceData, proof *zkproof.Proof) error
}

// Ledger receives registry root updates.
type Ledger interface {
	Head(ctx context.Context) (ledger.Head, error)
	Submit(ctx context.Context, u ledger.RootUpdate) (ledger.Receipt, error)
}

// AuditPublisher records verification outcomes. Emit must fail closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}
