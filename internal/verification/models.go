package verification

import (
	"time"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/ledger"
	"zkregistry/internal/merkle"
	"zkregistry/internal/oracle"
	"zkregistry/internal/registry"
)

// BatchRequest asks for a list of entities of one type to be verified.
type BatchRequest struct {
	EntityType  models.EntityType
	Identifiers []string
}

// EntityResult is the outcome for one requested identifier. Failed
// entities carry Error and ErrorCategory, IsCompliant false and a zero
// score.
type EntityResult struct {
	Position   int               `json:"position"`
	EntityType models.EntityType `json:"entity_type"`
	Identifier string            `json:"identifier"`
	Name       string            `json:"name,omitempty"`
	// Identity is the registry key; zero when the entity was never fetched.
	Identity merkle.Hash `json:"identity,omitzero"`

	IsCompliant     bool     `json:"is_compliant"`
	ComplianceScore int      `json:"compliance_score"`
	FailedRules     []string `json:"failed_rules,omitempty"`

	DataRoot    merkle.Hash      `json:"data_root,omitzero"`
	Signature   oracle.Signature `json:"signature,omitempty"`
	ProofSystem string           `json:"proof_system,omitempty"`
	Fallbacks   int              `json:"encoding_fallbacks,omitempty"`

	Record        *registry.EntityRecord `json:"record,omitempty"`
	RegistryIndex uint64                 `json:"registry_index,omitempty"`
	Ledger        *ledger.Receipt        `json:"ledger,omitempty"`
	// LedgerError reports a failed root submission. The registry update
	// stands regardless.
	LedgerError string `json:"ledger_error,omitempty"`

	Error         string        `json:"error,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Failed reports whether the entity was not registered.
func (r EntityResult) Failed() bool { return r.Error != "" }

// BatchResult always holds one result per requested identifier, in
// request order, plus the registry before and after the batch.
type BatchResult struct {
	BatchID     string            `json:"batch_id"`
	EntityType  models.EntityType `json:"entity_type"`
	Results     []EntityResult    `json:"verification_results"`
	Before      registry.Snapshot `json:"registry_before"`
	After       registry.Snapshot `json:"registry_after"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// DisclosureRequest selects fields of one entity by slot name.
type DisclosureRequest struct {
	EntityType models.EntityType
	Identifier string
	Fields     []string
}

// Disclosure is a signed root with a subset of its fields revealed.
type Disclosure struct {
	EntityType models.EntityType   `json:"entity_type"`
	Identifier string              `json:"identifier"`
	Root       merkle.Hash         `json:"root"`
	Signature  oracle.Signature    `json:"signature"`
	PublicKey  oracle.PublicKey    `json:"public_key"`
	Fields     []fields.Disclosure `json:"fields"`
}
