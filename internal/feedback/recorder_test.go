package feedback

import (
	"testing"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRecorder_AggregatesSuccessRateAndLatency(t *testing.T) {
	r := NewRecorder(config.DefaultFeedbackConfig())
	now := time.Now()
	r.clock = func() time.Time { return now }

	r.Record(Outcome{ModelID: "gpt", Success: true, LatencyMs: 100, Timestamp: now})
	r.Record(Outcome{ModelID: "gpt", Success: true, LatencyMs: 200, Timestamp: now})
	r.Record(Outcome{ModelID: "gpt", Success: false, LatencyMs: 900, Timestamp: now})

	agg := r.Aggregate("gpt")
	require.Equal(t, 3, agg.Samples)
	require.InDelta(t, 2.0/3.0, agg.SuccessRate, 0.001)
	require.Equal(t, float64(900), agg.P99LatencyMs)
}

func TestRecorder_EvictsOutcomesOutsideWindow(t *testing.T) {
	cfg := config.DefaultFeedbackConfig()
	cfg.WindowDuration = time.Minute
	r := NewRecorder(cfg)

	base := time.Now()
	current := base
	r.clock = func() time.Time { return current }

	r.Record(Outcome{ModelID: "gpt", Success: true, LatencyMs: 50, Timestamp: base})
	current = base.Add(2 * time.Minute)
	r.Record(Outcome{ModelID: "gpt", Success: true, LatencyMs: 60, Timestamp: current})

	agg := r.Aggregate("gpt")
	require.Equal(t, 1, agg.Samples)
}

func TestRecorder_UnknownModelReturnsZeroAggregate(t *testing.T) {
	r := NewRecorder(config.DefaultFeedbackConfig())
	agg := r.Aggregate("nonexistent")
	require.Zero(t, agg.Samples)
}
