package registry

import (
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/merkle"
)

// EntityRecord is the registry's durable view of one entity. Every
// verification replaces it with a successor built by NextRecord.
type EntityRecord struct {
	IdentityHash          merkle.Hash       `json:"identity_hash"`
	EntityType            models.EntityType `json:"entity_type"`
	Identifier            string            `json:"identifier"`
	Name                  string            `json:"name"`
	DataRoot              merkle.Hash       `json:"data_root"`
	IsCompliant           bool              `json:"is_compliant"`
	ComplianceScore       int               `json:"compliance_score"`
	TotalVerifications    uint64            `json:"total_verifications"`
	PassedVerifications   uint64            `json:"passed_verifications"`
	FailedVerifications   uint64            `json:"failed_verifications"`
	ConsecutiveFailures   uint64            `json:"consecutive_failures"`
	FirstVerificationTime time.Time         `json:"first_verification_time"`
	LastVerificationTime  time.Time         `json:"last_verification_time"`
	LastPassTime          time.Time         `json:"last_pass_time,omitzero"`
	LastFailTime          time.Time         `json:"last_fail_time,omitzero"`
}

// Verification is the outcome of one verified entity, ready to be folded
// into its record.
type Verification struct {
	EntityType models.EntityType
	Identifier string
	Name       string
	DataRoot   merkle.Hash
	Compliant  bool
	Score      int
	At         time.Time
}

// Identity derives the registry key of an entity from its unique
// identifier and name.
func Identity(identifier, name string) merkle.Hash {
	a := fields.Leaf(fields.Truncate(identifier)).Element()
	b := fields.Leaf(fields.Truncate(name)).Element()
	return merkle.HashElements(a, b)
}

// NextRecord folds v into prev. A nil prev starts a new record.
//
// Exactly one of LastPassTime and LastFailTime moves per verification.
// Verification times earlier than the stored LastVerificationTime are
// raised to it so timestamps never go backwards.
func NextRecord(prev *EntityRecord, v Verification) EntityRecord {
	at := v.At.UTC()
	var next EntityRecord
	if prev != nil {
		next = *prev
		if at.Before(prev.LastVerificationTime) {
			at = prev.LastVerificationTime
		}
	} else {
		next.IdentityHash = Identity(v.Identifier, v.Name)
		next.FirstVerificationTime = at
	}

	next.EntityType = v.EntityType
	next.Identifier = v.Identifier
	next.Name = v.Name
	next.DataRoot = v.DataRoot
	next.IsCompliant = v.Compliant
	next.ComplianceScore = v.Score
	next.TotalVerifications++
	next.LastVerificationTime = at
	if v.Compliant {
		next.PassedVerifications++
		next.ConsecutiveFailures = 0
		next.LastPassTime = at
	} else {
		next.FailedVerifications++
		next.ConsecutiveFailures++
		next.LastFailTime = at
	}
	return next
}

// Hash is the registry leaf of the record.
func (r EntityRecord) Hash() merkle.Hash {
	elems := []fr.Element{
		r.IdentityHash.Element(),
		fields.Leaf(string(r.EntityType)).Element(),
		r.DataRoot.Element(),
		u64(boolBit(r.IsCompliant)),
		u64(uint64(max(r.ComplianceScore, 0))),
		u64(r.TotalVerifications),
		u64(r.PassedVerifications),
		u64(r.FailedVerifications),
		u64(r.ConsecutiveFailures),
		u64(unixMilli(r.FirstVerificationTime)),
		u64(unixMilli(r.LastVerificationTime)),
		u64(unixMilli(r.LastPassTime)),
		u64(unixMilli(r.LastFailTime)),
	}
	return merkle.HashElements(elems...)
}

func u64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func unixMilli(t time.Time) uint64 {
	if t.IsZero() || t.UnixMilli() < 0 {
		return 0
	}
	return uint64(t.UnixMilli())
}
