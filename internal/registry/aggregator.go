// Package registry keeps the registry tree: one leaf per tracked entity,
// holding the hash of its current EntityRecord, plus aggregate statistics
// derived from those records.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"zkregistry/internal/merkle"
	"zkregistry/pkg/platform/sentinel"
)

var (
	// ErrConcurrencyViolation means a record did not advance its
	// predecessor by exactly one verification.
	ErrConcurrencyViolation = errors.New("registry: out-of-order update for identity")
	// ErrRegistryFull is a capacity violation and is not recoverable.
	ErrRegistryFull     = errors.New("registry: tree capacity exhausted")
	ErrIdentityMismatch = errors.New("registry: record identity does not match key")
)

// Stats are recomputed from the current records after every upsert.
type Stats struct {
	TotalCompanies           int    `json:"total_companies"`
	CompliantCompanies       int    `json:"compliant_companies"`
	GlobalComplianceScore    int    `json:"global_compliance_score"`
	TotalVerificationsGlobal uint64 `json:"total_verifications_global"`
}

// Snapshot is the registry root with its statistics.
type Snapshot struct {
	Root   merkle.Hash `json:"root"`
	Height int         `json:"height"`
	Stats
}

// Receipt describes where an upsert landed.
type Receipt struct {
	Index   uint64         `json:"index"`
	Created bool           `json:"created"`
	Root    merkle.Hash    `json:"root"`
	Witness merkle.Witness `json:"witness"`
}

type entry struct {
	record EntityRecord
	index  uint64
}

// Aggregator owns the registry tree and records. Construct one per
// session and pass it explicitly; it is safe for concurrent use.
type Aggregator struct {
	logger *slog.Logger
	name   string

	mu      sync.RWMutex
	tree    *merkle.Tree
	entries map[merkle.Hash]*entry
	order   []merkle.Hash
	stats   Stats

	identities *keyedMutex
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithName labels log lines when several registries share a process.
func WithName(name string) Option {
	return func(a *Aggregator) {
		a.name = name
	}
}

func NewAggregator(height int, opts ...Option) (*Aggregator, error) {
	tree, err := merkle.New(height)
	if err != nil {
		return nil, err
	}
	a := &Aggregator{
		tree:       tree,
		entries:    make(map[merkle.Hash]*entry),
		identities: newKeyedMutex(),
		name:       "default",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Upsert stores rec under identity. A new identity takes the next free
// leaf; a known one has its leaf overwritten. rec must carry counters
// advanced by exactly one verification over the stored record.
//
// Callers that derive rec from the stored record should use Apply, which
// holds the identity lock across read and write.
func (a *Aggregator) Upsert(identity merkle.Hash, rec EntityRecord) (Receipt, error) {
	unlock := a.identities.Lock(identity)
	defer unlock()
	return a.upsert(identity, rec)
}

func (a *Aggregator) upsert(identity merkle.Hash, rec EntityRecord) (Receipt, error) {
	if rec.IdentityHash != identity {
		return Receipt{}, fmt.Errorf("%w: key %s, record %s", ErrIdentityMismatch, identity, rec.IdentityHash)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	e, known := a.entries[identity]
	switch {
	case known && rec.TotalVerifications != e.record.TotalVerifications+1:
		return Receipt{}, fmt.Errorf("%w: %s has %d verifications, update carries %d",
			ErrConcurrencyViolation, identity, e.record.TotalVerifications, rec.TotalVerifications)
	case !known && rec.TotalVerifications == 0:
		return Receipt{}, fmt.Errorf("%w: new record for %s carries no verification", ErrConcurrencyViolation, identity)
	}
	if rec.PassedVerifications+rec.FailedVerifications != rec.TotalVerifications {
		return Receipt{}, fmt.Errorf("%w: %s pass/fail counters do not sum to total", ErrConcurrencyViolation, identity)
	}

	index := uint64(len(a.order))
	if known {
		index = e.index
	} else if index >= a.tree.Capacity() {
		return Receipt{}, fmt.Errorf("%w: %d entities", ErrRegistryFull, a.tree.Capacity())
	}

	if err := a.tree.SetLeaf(index, rec.Hash()); err != nil {
		return Receipt{}, err
	}
	if known {
		e.record = rec
	} else {
		a.entries[identity] = &entry{record: rec, index: index}
		a.order = append(a.order, identity)
	}
	a.recomputeStats()

	w, err := a.tree.Witness(index)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Index: index, Created: !known, Root: a.tree.Root(), Witness: w}, nil
}

// Apply folds v into the stored record for its identity and upserts the
// result, holding the identity lock for the whole read-modify-write.
func (a *Aggregator) Apply(v Verification) (EntityRecord, Receipt, error) {
	identity := Identity(v.Identifier, v.Name)
	unlock := a.identities.Lock(identity)
	defer unlock()

	var prev *EntityRecord
	a.mu.RLock()
	if e, ok := a.entries[identity]; ok {
		cp := e.record
		prev = &cp
	}
	a.mu.RUnlock()

	next := NextRecord(prev, v)
	rcpt, err := a.upsert(identity, next)
	if err != nil {
		return EntityRecord{}, Receipt{}, err
	}
	if a.logger != nil {
		a.logger.Debug("registry record updated",
			"registry", a.name,
			"identity", identity.String(),
			"index", rcpt.Index,
			"created", rcpt.Created,
			"total_verifications", next.TotalVerifications,
		)
	}
	return next, rcpt, nil
}

// recomputeStats derives every aggregate from the current records. Caller
// holds a.mu.
func (a *Aggregator) recomputeStats() {
	var s Stats
	for _, e := range a.entries {
		s.TotalCompanies++
		if e.record.IsCompliant {
			s.CompliantCompanies++
		}
		s.TotalVerificationsGlobal += e.record.TotalVerifications
	}
	s.GlobalComplianceScore = ComplianceScore(s.CompliantCompanies, s.TotalCompanies)
	a.stats = s
}

// ComplianceScore is round(100 * compliant / total), or 0 for an empty
// registry.
func ComplianceScore(compliant, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(compliant) / float64(total)))
}

// Witness returns the registry inclusion path for identity.
func (a *Aggregator) Witness(identity merkle.Hash) (merkle.Witness, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, w, err := a.witness(identity)
	return w, err
}

// Proof returns the record of identity with its witness and the root they
// verify against, all read from the same registry state.
func (a *Aggregator) Proof(identity merkle.Hash) (EntityRecord, merkle.Witness, merkle.Hash, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, w, err := a.witness(identity)
	if err != nil {
		return EntityRecord{}, merkle.Witness{}, merkle.Hash{}, err
	}
	return rec, w, a.tree.Root(), nil
}

// witness reads the record and inclusion path of identity. Caller holds
// a.mu.
func (a *Aggregator) witness(identity merkle.Hash) (EntityRecord, merkle.Witness, error) {
	e, ok := a.entries[identity]
	if !ok {
		return EntityRecord{}, merkle.Witness{}, fmt.Errorf("identity %s: %w", identity, sentinel.ErrNotFound)
	}
	w, err := a.tree.Witness(e.index)
	if err != nil {
		return EntityRecord{}, merkle.Witness{}, err
	}
	return e.record, w, nil
}

// Record returns the current record for identity.
func (a *Aggregator) Record(identity merkle.Hash) (EntityRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[identity]
	if !ok {
		return EntityRecord{}, fmt.Errorf("identity %s: %w", identity, sentinel.ErrNotFound)
	}
	return e.record, nil
}

// Records lists current records in leaf order.
func (a *Aggregator) Records() []EntityRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]EntityRecord, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.entries[id].record)
	}
	return out
}

func (a *Aggregator) Root() merkle.Hash {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tree.Root()
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{Root: a.tree.Root(), Height: a.tree.Height(), Stats: a.stats}
}

// VerifyRecord reports whether rec is the current leaf at w under root.
func VerifyRecord(root merkle.Hash, w merkle.Witness, rec EntityRecord) bool {
	return merkle.Verify(root, w, rec.Hash())
}
