// Package models holds the closed slot schemas for each verifiable entity
// type and the compact ComplianceData record the oracle signs.
//
// Slot numbers are part of the proof format. They are assigned once per
// entity type and never renumbered: moving a field invalidates every
// previously issued witness and proof.
package models

import (
	"fmt"
	"strings"

	"zkregistry/internal/merkle"
)

// EntityType identifies which registry an entity is verified against.
type EntityType string

const (
	EntityTypeGLEIF                 EntityType = "gleif"
	EntityTypeCorporateRegistration EntityType = "corporate_registration"
	EntityTypeEXIM                  EntityType = "exim"
)

func (t EntityType) String() string { return string(t) }

// ParseEntityType accepts the canonical names plus a few common aliases.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gleif", "lei":
		return EntityTypeGLEIF, nil
	case "corporate_registration", "corporate-registration", "corpreg", "mca", "cin":
		return EntityTypeCorporateRegistration, nil
	case "exim", "iec", "dgft":
		return EntityTypeEXIM, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Slot is a leaf position in an entity's field tree.
type Slot uint16

// SlotSpec names a slot and where its value comes from in a raw record.
type SlotSpec struct {
	Slot Slot
	Name string
	// Path is a dotted path into the raw record values.
	Path string
}

// Role is a ComplianceData position filled from a schema-chosen slot.
type Role int

const (
	RoleName Role = iota
	RoleIdentifier
	RoleStatus
	RoleSecondaryStatus
	RoleClassification
	RoleStartDate
	RoleEndDate
	roleCount
)

// NumRoles is the number of ComplianceData roles.
const NumRoles = int(roleCount)

var roleNames = [...]string{"name", "identifier", "status", "secondary_status", "classification", "start_date", "end_date"}

func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Roles lists every ComplianceData role in a fixed order.
func Roles() []Role {
	out := make([]Role, roleCount)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

// Projection maps each role to the slot it is copied from.
type Projection [roleCount]Slot

// Schema is the fixed layout of one entity type.
type Schema struct {
	Type       EntityType
	TreeHeight int
	Slots      []SlotSpec
	Projection Projection
}

// Capacity is the number of leaves in the schema's tree.
func (s *Schema) Capacity() int { return 1 << s.TreeHeight }

// Spec returns the declaration for slot.
func (s *Schema) Spec(slot Slot) (SlotSpec, bool) {
	if int(slot) >= len(s.Slots) {
		return SlotSpec{}, false
	}
	return s.Slots[slot], true
}

// SlotByName looks a slot up by its declared name.
func (s *Schema) SlotByName(name string) (Slot, bool) {
	for _, spec := range s.Slots {
		if spec.Name == name {
			return spec.Slot, true
		}
	}
	return 0, false
}

// Validate checks that slots are dense, fit the tree, and that every role
// points at a declared slot.
func (s *Schema) Validate() error {
	if len(s.Slots) == 0 {
		return fmt.Errorf("schema %s: no slots", s.Type)
	}
	if len(s.Slots) > s.Capacity() {
		return fmt.Errorf("schema %s: %d slots exceed tree capacity %d", s.Type, len(s.Slots), s.Capacity())
	}
	seen := make(map[string]bool, len(s.Slots))
	for i, spec := range s.Slots {
		if int(spec.Slot) != i {
			return fmt.Errorf("schema %s: slot %q declared at position %d has index %d", s.Type, spec.Name, i, spec.Slot)
		}
		if seen[spec.Name] {
			return fmt.Errorf("schema %s: duplicate slot name %q", s.Type, spec.Name)
		}
		seen[spec.Name] = true
	}
	for _, r := range Roles() {
		if int(s.Projection[r]) >= len(s.Slots) {
			return fmt.Errorf("schema %s: role %s points at undeclared slot %d", s.Type, r, s.Projection[r])
		}
	}
	return nil
}

var schemas = map[EntityType]*Schema{
	EntityTypeGLEIF:                 gleifSchema,
	EntityTypeCorporateRegistration: corpRegSchema,
	EntityTypeEXIM:                  eximSchema,
}

// SchemaFor returns the schema of t.
func SchemaFor(t EntityType) (*Schema, error) {
	s, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("no schema for entity type %q", t)
	}
	return s, nil
}

// EntityTypes lists the supported entity types.
func EntityTypes() []EntityType {
	return []EntityType{EntityTypeGLEIF, EntityTypeCorporateRegistration, EntityTypeEXIM}
}

// ComplianceData is the compact, signed projection of an entity's fields.
// Values are already normalized by the field encoder, so each one hashes to
// the leaf stored at its projected slot.
type ComplianceData struct {
	EntityType      EntityType  `json:"entity_type"`
	Name            string      `json:"name"`
	Identifier      string      `json:"identifier"`
	Status          string      `json:"status"`
	SecondaryStatus string      `json:"secondary_status"`
	Classification  string      `json:"classification"`
	StartDate       string      `json:"start_date"`
	EndDate         string      `json:"end_date"`
	MerkleRoot      merkle.Hash `json:"merkle_root"`
}

// Value returns the value held for role.
func (c ComplianceData) Value(r Role) string {
	switch r {
	case RoleName:
		return c.Name
	case RoleIdentifier:
		return c.Identifier
	case RoleStatus:
		return c.Status
	case RoleSecondaryStatus:
		return c.SecondaryStatus
	case RoleClassification:
		return c.Classification
	case RoleStartDate:
		return c.StartDate
	case RoleEndDate:
		return c.EndDate
	}
	return ""
}

// SetValue stores v under role.
func (c *ComplianceData) SetValue(r Role, v string) {
	switch r {
	case RoleName:
		c.Name = v
	case RoleIdentifier:
		c.Identifier = v
	case RoleStatus:
		c.Status = v
	case RoleSecondaryStatus:
		c.SecondaryStatus = v
	case RoleClassification:
		c.Classification = v
	case RoleStartDate:
		c.StartDate = v
	case RoleEndDate:
		c.EndDate = v
	}
}
