// Package httptransport assembles the HTTP surface: shared middleware,
// operational endpoints and the verification routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zkregistry/internal/platform/metrics"
	accesslog "zkregistry/internal/platform/middleware"
	ratelimit "zkregistry/internal/ratelimit/middleware"
	"zkregistry/internal/ratelimit/models"
	"zkregistry/internal/verification/handler"
	"zkregistry/pkg/platform/httputil"
	"zkregistry/pkg/platform/middleware/auth"
	"zkregistry/pkg/platform/middleware/metadata"
	"zkregistry/pkg/platform/middleware/request"
	"zkregistry/pkg/platform/middleware/requesttime"
)

// VerifyScope is the token scope required for routes that fetch source
// data or change the registry.
const VerifyScope = "verify"

// HealthChecker reports failing data sources by provider ID.
type HealthChecker interface {
	Health(ctx context.Context) map[string]error
}

// Options configures the router.
type Options struct {
	AuthRequired    bool
	CORSOrigins     []string
	RequestTimeout  time.Duration
	MaxRequestBytes int64
}

// Deps are the components the router mounts.
type Deps struct {
	Verification *handler.Handler
	Health       HealthChecker
	// Validator is required when AuthRequired is set.
	Validator auth.JWTValidator
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Metrics
	// RateLimit is optional; nil disables per-caller limits.
	RateLimit *ratelimit.Limiter
	Logger    *slog.Logger
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Sources map[string]string `json:"sources,omitempty"`
}

// NewRouter wires every endpoint behind the shared middleware chain.
func NewRouter(opts Options, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(accesslog.AccessLog(logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}
	if opts.MaxRequestBytes > 0 {
		r.Use(chimw.RequestSize(opts.MaxRequestBytes))
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", request.HeaderRequestID},
			ExposedHeaders:   []string{request.HeaderRequestID},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", healthHandler(deps.Health))
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if deps.Verification != nil {
		r.Group(func(pub chi.Router) {
			if deps.RateLimit != nil {
				pub.Use(deps.RateLimit.Limit(models.ClassRead))
			}
			deps.Verification.RegisterPublic(pub)
		})
		r.Group(func(pr chi.Router) {
			if opts.AuthRequired {
				pr.Use(auth.RequireAuth(deps.Validator, VerifyScope, logger))
			}
			// after auth so limits are keyed by subject
			if deps.RateLimit != nil {
				pr.Use(deps.RateLimit.Limit(models.ClassVerify))
			}
			deps.Verification.RegisterProtected(pr)
		})
	}
	return r
}

// healthHandler answers 503 while any data source is failing or has an
// open circuit breaker.
func healthHandler(hc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc == nil {
			httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
			return
		}
		failures := hc.Health(r.Context())
		if len(failures) == 0 {
			httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
			return
		}
		sources := make(map[string]string, len(failures))
		for id, err := range failures {
			sources[id] = err.Error()
		}
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Sources: sources})
	}
}
