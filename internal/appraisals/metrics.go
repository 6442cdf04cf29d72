package appraisals

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"avaliar/appraisal-backend/internal/valuation"
)

// Metrics records appraisal outcomes for the /metrics endpoint
type Metrics struct {
	appraisals *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	degraded   prometheus.Counter
	exports    *prometheus.CounterVec
}

// NewMetrics registers the appraisal collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		appraisals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Name:      "runs_total",
			Help:      "Appraisals run, by outcome status, category and search scope.",
		}, []string{"status", "category", "scope"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appraisal",
			Name:      "duration_seconds",
			Help:      "Time spent running the valuation engine.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "appraisal",
			Name:      "degraded_total",
			Help:      "Appraisals whose sample search absorbed a collaborator failure.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appraisal",
			Name:      "exports_total",
			Help:      "Appraisal reports rendered, by format.",
		}, []string{"format"}),
	}
	if reg != nil {
		reg.MustRegister(m.appraisals, m.duration, m.degraded, m.exports)
	}
	return m
}

func (m *Metrics) observeRun(status, category, scope string, degraded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	category = categoryLabel(category)
	m.appraisals.WithLabelValues(status, category, scope).Inc()
	m.duration.WithLabelValues(category).Observe(elapsed.Seconds())
	if degraded {
		m.degraded.Inc()
	}
}

func (m *Metrics) observeExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// categoryLabel keeps label values to the known categories; client input
// outside them is reported as "unknown".
func categoryLabel(raw string) string {
	if c := valuation.ParseCategory(raw); c.IsValid() {
		return string(c)
	}
	return "unknown"
}
