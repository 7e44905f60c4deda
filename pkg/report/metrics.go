package report

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the report service collectors. A nil *Metrics records nothing.
type Metrics struct {
	reports  *prometheus.CounterVec
	warnings *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the report collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wardstats_reports_total",
			Help: "Reports computed by topic and total source",
		}, []string{"topic", "source"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wardstats_report_warnings_total",
			Help: "Warnings attached to computed reports",
		}, []string{"topic"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wardstats_report_duration_seconds",
			Help:    "Report computation time including row and summary fetch",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"operation"}),
	}
}

func (m *Metrics) observe(operation, topic, source string, warnings int, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if source != "" {
		m.reports.WithLabelValues(topic, source).Inc()
	}
	if warnings > 0 {
		m.warnings.WithLabelValues(topic).Add(float64(warnings))
	}
}
