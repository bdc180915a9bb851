//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "zkregistry/pkg/platform/audit"
	"zkregistry/pkg/platform/audit/store/kafka"
	"zkregistry/pkg/testutil/containers"
)

func TestKafkaStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	topic := "audit-" + uuid.NewString()
	store, err := kafka.New(ctx, rp.Brokers, topic, kafka.WithTopicLayout(1, 1))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Health(ctx))

	// creating the store again must tolerate the existing topic
	again, err := kafka.New(ctx, rp.Brokers, topic, kafka.WithTopicLayout(1, 1))
	require.NoError(t, err)
	again.Close()

	event := audit.ComplianceEvent{
		Action:     audit.EventComplianceVerified,
		EntityType: "gleif",
		Identifier: "5493001KJTIIGC8Y1R12",
		Compliant:  true,
		Score:      100,
		Timestamp:  time.Now().UTC(),
	}.ToEvent()
	require.NoError(t, store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []*kgo.Record
	for len(got) == 0 {
		fetches := consumer.PollFetches(ctx)
		require.Empty(t, fetches.Errors())
		fetches.EachRecord(func(r *kgo.Record) { got = append(got, r) })
	}

	require.Len(t, got, 1)
	assert.Equal(t, "5493001KJTIIGC8Y1R12", string(got[0].Key))
	var decoded audit.Event
	require.NoError(t, json.Unmarshal(got[0].Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "compliance_verified", decoded.Action)
	assert.True(t, decoded.Compliant)
}
