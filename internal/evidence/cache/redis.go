package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/pkg/platform/sentinel"
)

const keyPrefix = "zkregistry:raw:"

// Redis shares cached records across processes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, t models.EntityType, identifier string) (*providers.RawEntityRecord, error) {
	b, err := r.client.Get(ctx, keyPrefix+Key(t, identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("redis get raw record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec providers.RawEntityRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode cached raw record: %w", err)
	}
	return &rec, nil
}

func (r *Redis) Set(ctx context.Context, rec *providers.RawEntityRecord) error {
	if rec == nil {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode raw record: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+Key(rec.EntityType, rec.Identifier), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set raw record: %w", err)
	}
	return nil
}
