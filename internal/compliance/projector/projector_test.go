package projector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/merkle"
)

func buildCorpRegTree(t *testing.T) *fields.Tree {
	t.Helper()
	schema, err := models.SchemaFor(models.EntityTypeCorporateRegistration)
	require.NoError(t, err)
	f, err := fields.NewEncoder().Encode(context.Background(), schema, map[string]any{
		"companyName":         "SREE PALANI ANDAVAR AGRO PRIVATE LIMITED",
		"cin":                 "U01112TZ2022PTC039493",
		"companyStatus":       "Active",
		"categoryOfCompany":   "Company limited by Shares",
		"dateOfIncorporation": "2022-03-02",
		"activeCompliance":    "ACTIVE compliant",
	})
	require.NoError(t, err)
	tree, err := fields.BuildTree(f)
	require.NoError(t, err)
	return tree
}

func TestProject(t *testing.T) {
	tree := buildCorpRegTree(t)

	data := FromTree(tree)
	assert.Equal(t, models.EntityTypeCorporateRegistration, data.EntityType)
	assert.Equal(t, "SREE PALANI ANDAVAR AGRO PRIVATE LIMITED", data.Name)
	assert.Equal(t, "U01112TZ2022PTC039493", data.Identifier)
	assert.Equal(t, "Active", data.Status)
	assert.Equal(t, "ACTIVE compliant", data.SecondaryStatus)
	assert.Equal(t, "2022-03-02", data.StartDate)
	assert.Equal(t, "", data.EndDate, "missing source fields project to empty strings")
	assert.Equal(t, tree.Root(), data.MerkleRoot)

	assert.Equal(t, data, Project(tree.Fields(), tree.Root()), "projection is deterministic")
	assert.NoError(t, Reconcile(data, tree))
}

func TestReconcileDetectsMismatch(t *testing.T) {
	tree := buildCorpRegTree(t)

	t.Run("root differs", func(t *testing.T) {
		data := FromTree(tree)
		data.MerkleRoot[merkle.Size-1] ^= 1
		assert.ErrorIs(t, Reconcile(data, tree), merkle.ErrInclusionMismatch)
	})

	t.Run("value differs", func(t *testing.T) {
		data := FromTree(tree)
		data.Status = "Strike Off"
		assert.ErrorIs(t, Reconcile(data, tree), merkle.ErrInclusionMismatch)
	})

	t.Run("entity type differs", func(t *testing.T) {
		data := FromTree(tree)
		data.EntityType = models.EntityTypeGLEIF
		assert.ErrorIs(t, Reconcile(data, tree), merkle.ErrInclusionMismatch)
	})
}
