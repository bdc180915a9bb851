package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for entity verification.
type Metrics struct {
	// Verification outcomes by entity type and status (compliant,
	// non_compliant, error)
	Outcomes *prometheus.CounterVec

	// Per-stage latency (fetch, encode, sign, prove, verify, evaluate,
	// registry, ledger)
	StageLatency *prometheus.HistogramVec

	// Whole-batch latency
	BatchLatency prometheus.Histogram

	EncodingFallbacks *prometheus.CounterVec

	RegistryCompanies          prometheus.Gauge
	RegistryCompliantCompanies prometheus.Gauge
	RegistryComplianceScore    prometheus.Gauge
	RegistryVerifications      prometheus.Gauge
}

// New registers the verification metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zkregistry_verification_outcomes_total",
			Help: "Entity verification outcomes by entity type and status",
		}, []string{"entity_type", "status"}),

		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zkregistry_verification_stage_duration_seconds",
			Help:    "Duration of each verification stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),

		BatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zkregistry_verification_batch_duration_seconds",
			Help:    "Duration of a verification batch",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		EncodingFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zkregistry_field_encoding_fallbacks_total",
			Help: "Field values replaced with the empty string because they could not be encoded",
		}, []string{"entity_type", "slot"}),

		RegistryCompanies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zkregistry_registry_companies",
			Help: "Entities tracked by the registry",
		}),
		RegistryCompliantCompanies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zkregistry_registry_compliant_companies",
			Help: "Tracked entities whose current record is compliant",
		}),
		RegistryComplianceScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zkregistry_registry_global_compliance_score",
			Help: "Share of compliant entities, 0 to 100",
		}),
		RegistryVerifications: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zkregistry_registry_verifications",
			Help: "Sum of verifications over all tracked entities",
		}),
	}
}

func (m *Metrics) IncrementOutcome(entityType, status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(entityType, status).Inc()
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementFallback(entityType, slot string) {
	if m != nil {
		m.EncodingFallbacks.WithLabelValues(entityType, slot).Inc()
	}
}

// SetRegistry publishes the registry aggregates.
func (m *Metrics) SetRegistry(companies, compliant, score int, verifications uint64) {
	if m == nil {
		return
	}
	m.RegistryCompanies.Set(float64(companies))
	m.RegistryCompliantCompanies.Set(float64(compliant))
	m.RegistryComplianceScore.Set(float64(score))
	m.RegistryVerifications.Set(float64(verifications))
}
