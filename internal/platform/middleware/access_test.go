package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"zkregistry/internal/platform/metrics"
)

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(AccessLog(logger, m))
	r.Get("/v1/registry/entities/{identity}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/v1/registry/entities/0x01", "/v1/registry/entities/0x02", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.Requests.WithLabelValues("/v1/registry/entities/{identity}", "GET", "404")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Requests.WithLabelValues("/ok", "GET", "200")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.InFlight))
	assert.Contains(t, buf.String(), `"route":"/v1/registry/entities/{identity}"`)
}

func TestAccessLogNilMetrics(t *testing.T) {
	var buf bytes.Buffer
	h := AccessLog(slog.New(slog.NewTextHandler(&buf, nil)), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "route=unmatched")
}
