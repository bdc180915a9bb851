package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/pkg/platform/sentinel"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(50 * time.Millisecond)
	t.Cleanup(c.Close)

	_, err := c.Get(ctx, models.EntityTypeGLEIF, "acme")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	rec := &providers.RawEntityRecord{
		EntityType: models.EntityTypeGLEIF,
		Identifier: "ACME CORP",
		Values:     map[string]any{"lei": "X"},
		FetchedAt:  time.Now(),
		Source:     "gleif",
	}
	require.NoError(t, c.Set(ctx, rec))
	require.NoError(t, c.Set(ctx, nil))

	got, err := c.Get(ctx, models.EntityTypeGLEIF, " acme corp ")
	require.NoError(t, err)
	assert.Equal(t, "X", got.Values["lei"])

	_, err = c.Get(ctx, models.EntityTypeEXIM, "ACME CORP")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "keys are scoped by entity type")

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, models.EntityTypeGLEIF, "ACME CORP")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "gleif:ACME CORP", Key(models.EntityTypeGLEIF, " acme corp"))
}
