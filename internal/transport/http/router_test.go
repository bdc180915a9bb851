package httptransport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	jwttoken "zkregistry/internal/jwt_token"
	"zkregistry/internal/platform/logger"
	"zkregistry/internal/platform/metrics"
	ratelimit "zkregistry/internal/ratelimit/middleware"
	"zkregistry/internal/ratelimit/models"
	"zkregistry/internal/ratelimit/store/bucket"
	"zkregistry/internal/registry"
	"zkregistry/internal/verification"
	"zkregistry/internal/verification/handler"
	"zkregistry/internal/verification/handler/mocks"
	"zkregistry/pkg/platform/middleware/request"
	"zkregistry/pkg/testutil"
)

type healthFunc func(ctx context.Context) map[string]error

func (f healthFunc) Health(ctx context.Context) map[string]error { return f(ctx) }

type RouterSuite struct {
	suite.Suite
	service  *mocks.MockService
	registry *mocks.MockRegistry
	jwt      *jwttoken.JWTService
	failures map[string]error
	router   http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.registry = mocks.NewMockRegistry(ctrl)
	s.jwt = jwttoken.NewJWTService("test-key", "zkregistry", "zkregistry")
	s.failures = nil

	promReg := prometheus.NewRegistry()
	s.router = NewRouter(Options{
		AuthRequired:    true,
		CORSOrigins:     []string{"https://explorer.example"},
		RequestTimeout:  time.Minute,
		MaxRequestBytes: 1 << 20,
	}, Deps{
		Verification: handler.New(s.service, s.registry, logger.Discard()),
		Health:       healthFunc(func(context.Context) map[string]error { return s.failures }),
		Validator:    jwttoken.NewJWTServiceAdapter(s.jwt),
		Gatherer:     promReg,
		Metrics:      metrics.NewWithRegisterer(promReg),
		Logger:       logger.Discard(),
	})
}

func (s *RouterSuite) token(scope string) string {
	tok, err := s.jwt.GenerateAccessToken("ops@acme", scope, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) verifyRequest(token string) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/verifications", map[string]any{
		"entity_type": "gleif",
		"identifiers": []string{"ACME CORP"},
	})
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *RouterSuite) TestHealth() {
	s.Run("ok", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "ok")
	})

	s.Run("degraded while a source breaker is open", func() {
		s.failures = map[string]error{"gleif-api": errors.New("circuit breaker open")}
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		body := testutil.UnmarshalResponse[HealthResponse](s.T(), rr)
		s.Equal("degraded", body.Status)
		s.Equal("circuit breaker open", body.Sources["gleif-api"])
	})
}

func (s *RouterSuite) TestMetricsEndpoint() {
	testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), `zkregistry_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/healthz")
	req.Header.Set(request.HeaderRequestID, "trace-123")
	rr := testutil.DoRequest(s.router, req)
	s.Equal("trace-123", rr.Header().Get(request.HeaderRequestID))

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	s.NotEmpty(rr.Header().Get(request.HeaderRequestID))
}

func (s *RouterSuite) TestPublicRoutesNeedNoToken() {
	s.registry.EXPECT().Snapshot().Return(registry.Snapshot{Height: 16})

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/registry"))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *RouterSuite) TestProtectedRoutes() {
	s.Run("missing token", func() {
		rr := testutil.DoRequest(s.router, s.verifyRequest(""))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("invalid token", func() {
		rr := testutil.DoRequest(s.router, s.verifyRequest("not-a-jwt"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("token without verify scope", func() {
		rr := testutil.DoRequest(s.router, s.verifyRequest(s.token("read")))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("scoped token reaches the service", func() {
		s.service.EXPECT().VerifyBatch(gomock.Any(), gomock.Any()).
			Return(&verification.BatchResult{BatchID: "b-1"}, nil)

		rr := testutil.DoRequest(s.router, s.verifyRequest(s.token("read verify")))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "batch_id", "b-1")
	})
}

func (s *RouterSuite) TestCORSPreflight() {
	req := testutil.NewRequest(s.T(), http.MethodOptions, "/v1/verifications")
	req.Header.Set("Origin", "https://explorer.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(s.router, req)

	s.Equal("https://explorer.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterWithoutAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	service.EXPECT().VerifyBatch(gomock.Any(), gomock.Any()).Return(&verification.BatchResult{BatchID: "b-2"}, nil)

	r := NewRouter(Options{}, Deps{
		Verification: handler.New(service, mocks.NewMockRegistry(ctrl), logger.Discard()),
		Gatherer:     prometheus.NewRegistry(),
		Logger:       logger.Discard(),
	})
	req := testutil.NewRequestWithBody(t, http.MethodPost, "/v1/verifications", `{"entity_type":"gleif","identifiers":["ACME CORP"]}`)
	rr := testutil.DoRequest(r, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `"batch_id":"b-2"`))
}

func TestRouterRateLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	reg := mocks.NewMockRegistry(ctrl)
	service.EXPECT().VerifyBatch(gomock.Any(), gomock.Any()).Return(&verification.BatchResult{BatchID: "b-3"}, nil).Times(1)
	reg.EXPECT().Snapshot().Return(registry.Snapshot{Height: 16}).Times(2)

	limiter, err := ratelimit.New(bucket.New(), map[models.EndpointClass]models.Limit{
		models.ClassRead:   {Requests: 2, Window: time.Minute},
		models.ClassVerify: {Requests: 1, Window: time.Minute},
	}, ratelimit.WithLogger(logger.Discard()))
	require.NoError(t, err)

	r := NewRouter(Options{}, Deps{
		Verification: handler.New(service, reg, logger.Discard()),
		Gatherer:     prometheus.NewRegistry(),
		RateLimit:    limiter,
		Logger:       logger.Discard(),
	})

	verify := func() *http.Request {
		return testutil.NewRequestWithBody(t, http.MethodPost, "/v1/verifications", `{"entity_type":"gleif","identifiers":["ACME CORP"]}`)
	}
	require.Equal(t, http.StatusOK, testutil.DoRequest(r, verify()).Code)
	rr := testutil.DoRequest(r, verify())
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads have their own budget
	for range 2 {
		rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/v1/registry"))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/v1/registry"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// operational endpoints are never limited
	for range 3 {
		assert.Equal(t, http.StatusOK, testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/healthz")).Code)
	}
}
