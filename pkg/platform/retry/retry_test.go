package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDo(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		v, err := Do(context.Background(), policy, func(context.Context) (string, error) {
			calls++
			if calls < 2 {
				return "", errFlaky
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 2, calls)
	})

	t.Run("surfaces exhaustion after max attempts", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), policy, func(context.Context) (int, error) {
			calls++
			return 0, errFlaky
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, ErrExhausted)
		assert.ErrorIs(t, err, errFlaky)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		notFound := errors.New("not found")
		p := policy
		p.Retryable = func(err error) bool { return !errors.Is(err, notFound) }
		calls := 0
		_, err := Do(context.Background(), p, func(context.Context) (int, error) {
			calls++
			return 0, notFound
		})
		assert.ErrorIs(t, err, notFound)
		assert.NotErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := Do(ctx, Policy{MaxAttempts: 10, Delay: time.Millisecond}, func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, errFlaky
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
