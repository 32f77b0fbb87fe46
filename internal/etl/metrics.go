package etl

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments pipeline runs with Prometheus collectors.
type Metrics struct {
	registry      *prometheus.Registry
	handler       http.Handler
	rowsRead      *prometheus.CounterVec
	rowsAccepted  *prometheus.CounterVec
	rowsRejected  *prometheus.CounterVec
	rowsInserted  *prometheus.CounterVec
	rowsSkipped   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	rowsRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rows_read_total",
		Help: "Rows extracted from source files",
	}, []string{"entity"})

	rowsAccepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rows_accepted_total",
		Help: "Rows that passed validation, dedup, and referential checks",
	}, []string{"entity"})

	rowsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rows_rejected_total",
		Help: "Rows excluded from the load set, by taxonomy code",
	}, []string{"entity", "reason"})

	rowsInserted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rows_inserted_total",
		Help: "Rows newly inserted into the store",
	}, []string{"entity"})

	rowsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rows_skipped_total",
		Help: "Rows skipped on unique-key conflict during load",
	}, []string{"entity"})

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Duration of each entity stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Completed pipeline runs by outcome",
	}, []string{"outcome"})

	registry.MustRegister(rowsRead, rowsAccepted, rowsRejected, rowsInserted, rowsSkipped, stageDuration, runsTotal)

	return &Metrics{
		registry:      registry,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		rowsRead:      rowsRead,
		rowsAccepted:  rowsAccepted,
		rowsRejected:  rowsRejected,
		rowsInserted:  rowsInserted,
		rowsSkipped:   rowsSkipped,
		stageDuration: stageDuration,
		runsTotal:     runsTotal,
	}
}

// Handler exposes the pipeline registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Registry allows additional collectors, such as HTTP request metrics,
// to share the same /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeStage(entity Entity, report StageReport, seconds float64) {
	label := string(entity)
	m.rowsRead.WithLabelValues(label).Add(float64(report.Read))
	m.rowsAccepted.WithLabelValues(label).Add(float64(report.Accepted))
	m.rowsInserted.WithLabelValues(label).Add(float64(report.Inserted))
	m.rowsSkipped.WithLabelValues(label).Add(float64(report.Skipped))
	m.stageDuration.WithLabelValues(label).Observe(seconds)
}

// observeRejections counts each rejected row exactly once, labeled by its
// first violation so the counter stays a row count even when one row
// breaks several rules.
func (m *Metrics) observeRejections(rejections []Rejection) {
	for _, rejection := range rejections {
		reason := "unknown"
		if len(rejection.Violations) > 0 {
			reason = rejection.Violations[0].Code
		}
		m.rowsRejected.WithLabelValues(string(rejection.Entity), reason).Inc()
	}
}

func (m *Metrics) observeRun(fatal bool) {
	if fatal {
		m.runsTotal.WithLabelValues("fatal").Inc()
		return
	}
	m.runsTotal.WithLabelValues("completed").Inc()
}
