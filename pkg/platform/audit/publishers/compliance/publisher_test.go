package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "zkregistry/pkg/platform/audit"
	"zkregistry/pkg/platform/audit/store/memory"
)

type failingStore struct{ err error }

func (s failingStore) Append(context.Context, audit.Event) error { return s.err }

func TestPublisher_Emit(t *testing.T) {
	ctx := context.Background()

	t.Run("persists with category and timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		m := NewMetricsWithRegisterer(prometheus.NewRegistry())
		pub := New(store, WithMetrics(m))

		err := pub.Emit(ctx, audit.ComplianceEvent{
			Action:      audit.EventComplianceFailed,
			EntityType:  "gleif",
			Identifier:  "ACME LTD",
			Score:       67,
			FailedRules: []string{"entity_status_active"},
		})
		require.NoError(t, err)

		events, err := store.ListByIdentifier(ctx, "ACME LTD")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, "compliance_failed", events[0].Action)
		assert.False(t, events[0].Timestamp.IsZero())
		assert.NotEqual(t, [16]byte{}, [16]byte(events[0].ID))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsEmitted.WithLabelValues("compliance_failed")))
	})

	t.Run("errors are operations events", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)
		require.NoError(t, pub.Emit(ctx, audit.ComplianceEvent{
			Action:        audit.EventVerificationError,
			Identifier:    "ACME LTD",
			ErrorCategory: "timeout",
		}))
		events, _ := store.ListAll(ctx)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryOperations, events[0].Category)
	})

	t.Run("rejects incomplete events", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		assert.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Action: audit.EventComplianceVerified}))
		assert.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Identifier: "x"}))
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		boom := errors.New("disk full")
		m := NewMetricsWithRegisterer(prometheus.NewRegistry())
		pub := New(failingStore{err: boom}, WithMetrics(m))

		err := pub.Emit(ctx, audit.ComplianceEvent{Action: audit.EventComplianceVerified, Identifier: "x"})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.PersistFailures))
	})
}
