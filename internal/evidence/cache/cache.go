// Package cache stores raw source records between lookups so retried or
// repeated verifications see the same data.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/pkg/platform/sentinel"
)

// Cache is a raw record store. Misses return sentinel.ErrNotFound.
type Cache interface {
	Get(ctx context.Context, t models.EntityType, identifier string) (*providers.RawEntityRecord, error)
	Set(ctx context.Context, rec *providers.RawEntityRecord) error
}

// Key is the cache key of an identifier. Identifiers compare
// case-insensitively.
func Key(t models.EntityType, identifier string) string {
	return string(t) + ":" + strings.ToUpper(strings.TrimSpace(identifier))
}

// Memory is an in-process TTL cache.
type Memory struct {
	items *ttlcache.Cache[string, providers.RawEntityRecord]
}

// NewMemory creates a cache whose entries expire after ttl. Call Close to
// stop the expiry loop.
func NewMemory(ttl time.Duration) *Memory {
	items := ttlcache.New[string, providers.RawEntityRecord](
		ttlcache.WithTTL[string, providers.RawEntityRecord](ttl),
		ttlcache.WithDisableTouchOnHit[string, providers.RawEntityRecord](),
	)
	go items.Start()
	return &Memory{items: items}
}

func (m *Memory) Get(_ context.Context, t models.EntityType, identifier string) (*providers.RawEntityRecord, error) {
	item := m.items.Get(Key(t, identifier))
	if item == nil {
		return nil, sentinel.ErrNotFound
	}
	rec := item.Value()
	return &rec, nil
}

func (m *Memory) Set(_ context.Context, rec *providers.RawEntityRecord) error {
	if rec == nil {
		return nil
	}
	m.items.Set(Key(rec.EntityType, rec.Identifier), *rec, ttlcache.DefaultTTL)
	return nil
}

func (m *Memory) Len() int { return m.items.Len() }

func (m *Memory) Close() { m.items.Stop() }
