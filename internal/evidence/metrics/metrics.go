package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for data source lookups.
type Metrics struct {
	LookupLatency *prometheus.HistogramVec
	LookupErrors  *prometheus.CounterVec
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	BreakerOpen   *prometheus.GaugeVec
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zkregistry_source_lookup_duration_seconds",
			Help:    "Duration of upstream data source lookups including retries",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"entity_type", "outcome"}),

		LookupErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zkregistry_source_lookup_errors_total",
			Help: "Failed data source lookups by normalized error category",
		}, []string{"entity_type", "category"}),

		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zkregistry_source_cache_hits_total",
			Help: "Raw record cache hits",
		}, []string{"entity_type"}),

		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zkregistry_source_cache_misses_total",
			Help: "Raw record cache misses",
		}, []string{"entity_type"}),

		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zkregistry_source_circuit_open",
			Help: "1 while the provider circuit breaker is open",
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveLookup(entityType, outcome string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(entityType, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementLookupError(entityType, category string) {
	if m != nil {
		m.LookupErrors.WithLabelValues(entityType, category).Inc()
	}
}

func (m *Metrics) RecordCacheHit(entityType string) {
	if m != nil {
		m.CacheHits.WithLabelValues(entityType).Inc()
	}
}

func (m *Metrics) RecordCacheMiss(entityType string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(entityType).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(provider string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(provider).Set(v)
}
