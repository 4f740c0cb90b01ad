package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// extraction engine and the archive audit.
type Metrics struct {
	Requests        *prometheus.CounterVec // labels: type={mag,doppler,drf,unknown}, outcome={ok,empty,setup_error,aborted}
	FilesRead       *prometheus.CounterVec // labels: type, outcome={ok,failed}
	RecordsEmitted  prometheus.Counter
	DecodeErrors    *prometheus.CounterVec // labels: kind
	RequestDuration prometheus.Histogram
	RateLimited     prometheus.Counter

	// Audit metrics.
	AuditFindings *prometheus.CounterVec // labels: severity={error,warning}, check
	AuditFiles    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Requests,
		m.FilesRead,
		m.RecordsEmitted,
		m.DecodeErrors,
		m.RequestDuration,
		m.RateLimited,
		m.AuditFindings,
		m.AuditFiles,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "data_requests_total",
			Help:      "Data requests by dataset type and outcome.",
		}, []string{"type", "outcome"}),
		FilesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "container_files_read_total",
			Help:      "Container files decoded by dataset type and outcome.",
		}, []string{"type", "outcome"}),
		RecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "records_emitted_total",
			Help:      "Total CSV rows written to clients.",
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "decode_errors_total",
			Help:      "Container files abandoned by decode error kind.",
		}, []string{"kind"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hapi",
			Name:      "data_request_duration_seconds",
			Help:      "Duration of a complete data extraction.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "data_requests_rate_limited_total",
			Help:      "Data requests rejected by the rate limiter.",
		}),
		AuditFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "audit_findings_total",
			Help:      "Archive audit findings by severity and check.",
		}, []string{"severity", "check"}),
		AuditFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hapi",
			Name:      "audit_files_total",
			Help:      "Container files examined by the archive audit.",
		}),
	}
}
