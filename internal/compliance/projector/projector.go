// Package projector derives the compact ComplianceData record from a field
// set and its tree root.
package projector

import (
	"fmt"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/merkle"
)

// Project copies the schema's projected slots into ComplianceData. It is
// pure: identical inputs give identical output.
func Project(f *fields.Fields, root merkle.Hash) models.ComplianceData {
	schema := f.Schema()
	data := models.ComplianceData{EntityType: schema.Type, MerkleRoot: root}
	for _, r := range models.Roles() {
		data.SetValue(r, f.Get(schema.Projection[r]))
	}
	return data
}

// FromTree projects a built tree using its own root.
func FromTree(t *fields.Tree) models.ComplianceData {
	return Project(t.Fields(), t.Root())
}

// Reconcile checks that data was projected from t: the roots match and
// every projected value is the leaf at its slot. Any difference is an
// inclusion mismatch.
func Reconcile(data models.ComplianceData, t *fields.Tree) error {
	schema := t.Fields().Schema()
	if data.EntityType != schema.Type {
		return fmt.Errorf("%w: compliance data for %s checked against %s tree", merkle.ErrInclusionMismatch, data.EntityType, schema.Type)
	}
	if data.MerkleRoot != t.Root() {
		return fmt.Errorf("%w: compliance root %s, tree root %s", merkle.ErrInclusionMismatch, data.MerkleRoot, t.Root())
	}
	for _, r := range models.Roles() {
		slot := schema.Projection[r]
		w, err := t.Witness(slot)
		if err != nil {
			return fmt.Errorf("witness for %s: %w", r, err)
		}
		if err := w.Check(data.MerkleRoot, fields.Leaf(data.Value(r))); err != nil {
			return fmt.Errorf("%s: %w", r, err)
		}
	}
	return nil
}
