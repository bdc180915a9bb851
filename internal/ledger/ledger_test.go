package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkregistry/internal/merkle"
	"zkregistry/pkg/platform/sentinel"
)

func root(b byte) merkle.Hash {
	var h merkle.Hash
	h[merkle.Size-1] = b
	return h
}

func TestRootUpdateHash(t *testing.T) {
	u := RootUpdate{PreviousRoot: root(1), NewRoot: root(2), Identity: root(3), Nonce: 1}

	assert.Equal(t, u.Hash(), u.Hash())
	assert.Len(t, u.Hash(), 2+64)
	assert.Contains(t, u.Hash(), "0x")

	bumped := u
	bumped.Nonce = 2
	assert.NotEqual(t, u.Hash(), bumped.Hash())
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts a chain of updates", func(t *testing.T) {
		l := NewMemory()
		head, err := l.Head(ctx)
		require.NoError(t, err)
		assert.True(t, head.Root.IsZero())
		assert.Zero(t, head.Nonce)

		first, err := l.Submit(ctx, head.Next(root(1), root(9)))
		require.NoError(t, err)
		assert.Equal(t, StatusPending, first.Status)
		assert.Equal(t, uint64(1), first.Nonce)

		head, err = l.Head(ctx)
		require.NoError(t, err)
		assert.Equal(t, Head{Root: root(1), Nonce: 1}, head)

		_, err = l.Submit(ctx, head.Next(root(2), root(9)))
		require.NoError(t, err)
		assert.Len(t, l.Receipts(), 2)
	})

	t.Run("rejects a stale previous root", func(t *testing.T) {
		l := NewMemory()
		_, err := l.Submit(ctx, Head{}.Next(root(1), root(9)))
		require.NoError(t, err)

		_, err = l.Submit(ctx, RootUpdate{PreviousRoot: root(7), NewRoot: root(2), Nonce: 2})
		require.ErrorIs(t, err, ErrStaleRoot)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("rejects a reused nonce", func(t *testing.T) {
		l := NewMemory()
		u := Head{}.Next(root(1), root(9))
		_, err := l.Submit(ctx, u)
		require.NoError(t, err)

		_, err = l.Submit(ctx, u)
		require.ErrorIs(t, err, ErrNonceUsed)
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
		assert.Len(t, l.Receipts(), 1)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		l := NewMemory()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.Submit(cancelled, Head{}.Next(root(1), root(9)))
		require.ErrorIs(t, err, context.Canceled)
	})
}
