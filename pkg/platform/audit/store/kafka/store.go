// Package kafka publishes audit events to a Kafka topic. Each Append is a
// synchronous produce so the compliance publisher stays fail-closed.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "zkregistry/pkg/platform/audit"
)

// Store appends JSON-encoded events keyed by entity identifier, so all
// events for one entity land on the same partition in order.
type Store struct {
	client *kgo.Client
	topic  string
}

type Option func(*options)

type options struct {
	partitions        int32
	replicationFactor int16
	produceTimeout    time.Duration
}

// WithTopicLayout sets the partition count and replication factor used
// when the topic has to be created.
func WithTopicLayout(partitions int32, replicationFactor int16) Option {
	return func(o *options) {
		o.partitions = partitions
		o.replicationFactor = replicationFactor
	}
}

func WithProduceTimeout(d time.Duration) Option {
	return func(o *options) {
		o.produceTimeout = d
	}
}

// New connects to brokers and makes sure topic exists.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka audit store requires at least one broker")
	}
	o := options{partitions: 3, replicationFactor: 1, produceTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProduceRequestTimeout(o.produceTimeout),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, o); err != nil {
		client.Close()
		return nil, err
	}
	return &Store{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string, o options) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, o.partitions, o.replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", topic, resp.Err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.Identifier),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Health pings the cluster.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Topic() string { return s.topic }

func (s *Store) Close() {
	s.client.Close()
}
