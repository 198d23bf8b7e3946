package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestPrometheusExporter_RecordsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewPrometheusExporter(reg)
	tracer := NewTracer(exporter)

	_, span := tracer.Start(context.Background(), "extract.file", false)
	span.SetStatus(StatusOK)
	span.End()

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawCounter, sawHistogram bool
	for _, fam := range families {
		switch fam.GetName() {
		case "codegraph_spans_total":
			sawCounter = true
			require.Equal(t, dto.MetricType_COUNTER, fam.GetType())
		case "codegraph_span_duration_seconds":
			sawHistogram = true
			require.Equal(t, dto.MetricType_HISTOGRAM, fam.GetType())
		}
	}
	require.True(t, sawCounter)
	require.True(t, sawHistogram)
}
