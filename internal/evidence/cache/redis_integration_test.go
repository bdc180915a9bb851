//go:build integration

package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/cache"
	"zkregistry/internal/evidence/providers"
	"zkregistry/pkg/platform/sentinel"
	"zkregistry/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTripKeepsNumbers() {
	ctx := context.Background()
	rec := &providers.RawEntityRecord{
		EntityType: models.EntityTypeEXIM,
		Identifier: "ZENEGY LABS",
		Values:     map[string]any{"iec": "0305008111", "iecStatus": json.Number("0")},
		FetchedAt:  time.Now().UTC().Truncate(time.Second),
		Source:     "exim",
	}
	s.Require().NoError(s.cache.Set(ctx, rec))

	got, err := s.cache.Get(ctx, models.EntityTypeEXIM, "zenegy labs")
	s.Require().NoError(err)
	s.Equal(json.Number("0"), got.Values["iecStatus"])
	s.Equal("0305008111", got.Values["iec"])
	s.True(rec.FetchedAt.Equal(got.FetchedAt))
}

func (s *RedisCacheSuite) TestMiss() {
	_, err := s.cache.Get(context.Background(), models.EntityTypeGLEIF, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
