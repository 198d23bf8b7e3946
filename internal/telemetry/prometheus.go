package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter records span completions as Prometheus metrics: a
// counter of spans by name+status and a histogram of span durations by
// name. Register it with a prometheus.Registerer and serve
// promhttp.Handler() the way cmd/cie/index.go already does for its own
// metrics endpoint.
type PrometheusExporter struct {
	spansTotal *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPrometheusExporter creates and registers the exporter's metrics
// against reg.
func NewPrometheusExporter(reg prometheus.Registerer) *PrometheusExporter {
	e := &PrometheusExporter{
		spansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codegraph_spans_total",
			Help: "Total completed spans by name and status.",
		}, []string{"name", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codegraph_span_duration_seconds",
			Help:    "Span duration in seconds by name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}
	reg.MustRegister(e.spansTotal, e.duration)
	return e
}

// Export implements Exporter.
func (e *PrometheusExporter) Export(batch []SpanData) {
	for _, span := range batch {
		e.spansTotal.WithLabelValues(span.Name, string(span.Status)).Inc()
		e.duration.WithLabelValues(span.Name).Observe(span.Duration().Seconds())
	}
}
