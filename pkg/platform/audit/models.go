package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers verification outcomes. These require
	// guaranteed persistence and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for operational visibility,
	// such as verifications that failed for infrastructure reasons.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventComplianceVerified AuditEvent = "compliance_verified"
	EventComplianceFailed   AuditEvent = "compliance_failed"
	EventVerificationError  AuditEvent = "verification_error"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventComplianceVerified: CategoryCompliance,
	EventComplianceFailed:   CategoryCompliance,
	EventVerificationError:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is the stored form of an audit record. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`

	BatchID    string `json:"batch_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	EntityType string `json:"entity_type"`
	Identifier string `json:"identifier"`
	// Identity is the registry key of the entity, hex encoded.
	Identity    string   `json:"identity,omitempty"`
	DataRoot    string   `json:"data_root,omitempty"`
	Compliant   bool     `json:"compliant"`
	Score       uint64   `json:"score"`
	FailedRules []string `json:"failed_rules,omitempty"`
	// ErrorCategory and Reason are set for verification_error events.
	ErrorCategory string `json:"error_category,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ComplianceEvent captures the outcome of one entity verification.
// Use with the compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp     time.Time // set automatically if zero
	Action        AuditEvent
	BatchID       string
	RequestID     string
	EntityType    string
	Identifier    string // required
	Identity      string
	DataRoot      string
	Compliant     bool
	Score         uint64
	FailedRules   []string
	ErrorCategory string
	Reason        string
}

// ToEvent converts to the stored Event form.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		ID:            uuid.New(),
		Category:      e.Action.Category(),
		Timestamp:     e.Timestamp,
		Action:        string(e.Action),
		BatchID:       e.BatchID,
		RequestID:     e.RequestID,
		EntityType:    e.EntityType,
		Identifier:    e.Identifier,
		Identity:      e.Identity,
		DataRoot:      e.DataRoot,
		Compliant:     e.Compliant,
		Score:         e.Score,
		FailedRules:   e.FailedRules,
		ErrorCategory: e.ErrorCategory,
		Reason:        e.Reason,
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
