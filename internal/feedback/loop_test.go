package feedback

import (
	"math"
	"testing"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/stretchr/testify/require"
)

func recordN(l *Loop, modelID string, n int, success bool, latencyMs float64) {
	for i := 0; i < n; i++ {
		l.RecordOutcome(Outcome{ModelID: modelID, Success: success, LatencyMs: latencyMs})
	}
}

func TestLoop_RecalculatePenalizesLowSuccessRate(t *testing.T) {
	cfg := config.DefaultFeedbackConfig()
	l := NewLoop(cfg)

	recordN(l, "flaky", 6, true, 100)
	recordN(l, "flaky", 4, false, 100) // 60% success, below 0.8 threshold

	l.Recalculate()
	score := l.AdjustedScore("flaky", 100)
	require.Less(t, score, 100.0)
	require.False(t, l.IsDisabled("flaky"))
}

func TestLoop_RecalculateDisablesModelBelow50PercentSuccessWith20Samples(t *testing.T) {
	cfg := config.DefaultFeedbackConfig()
	l := NewLoop(cfg)

	recordN(l, "broken", 5, true, 100)
	recordN(l, "broken", 16, false, 100) // 21 samples, ~24% success

	l.Recalculate()
	require.True(t, l.IsDisabled("broken"))
	require.True(t, math.IsInf(l.AdjustedScore("broken", 100), -1))
}

func TestLoop_RecalculateBoostsExcellentModel(t *testing.T) {
	cfg := config.DefaultFeedbackConfig()
	l := NewLoop(cfg)

	recordN(l, "great", 20, true, 50)

	l.Recalculate()
	score := l.AdjustedScore("great", 100)
	require.Greater(t, score, 100.0)
}

func TestLoop_ManualDisableAndEnableOverrideAutomaticScoring(t *testing.T) {
	l := NewLoop(config.DefaultFeedbackConfig())
	l.DisableModel("m1", "manual hold for investigation", time.Hour)
	require.True(t, l.IsDisabled("m1"))
	require.True(t, math.IsInf(l.AdjustedScore("m1", 50), -1))

	l.EnableModel("m1")
	require.False(t, l.IsDisabled("m1"))
	require.Equal(t, 50.0, l.AdjustedScore("m1", 50))
}

func TestLoop_BelowMinSampleCountProducesNoAdjustment(t *testing.T) {
	l := NewLoop(config.DefaultFeedbackConfig())
	recordN(l, "new-model", 3, false, 100)

	l.Recalculate()
	require.Equal(t, 100.0, l.AdjustedScore("new-model", 100))
}

func TestLoop_DecayErodesAdjustmentUntilDropped(t *testing.T) {
	cfg := config.DefaultFeedbackConfig()
	cfg.MinAdjustmentMagnitude = 1.0
	cfg.DecayRate = 0.5
	l := NewLoop(cfg)

	// Seed an adjustment directly rather than going through Recalculate,
	// which would immediately regenerate a fresh candidate from any
	// still-in-window outcomes and mask decay's effect.
	l.adjustments["mid"] = Adjustment{ModelID: "mid", Kind: AdjustScorePenalty, Value: -20, Confidence: 0.7, CreatedAt: time.Now()}
	require.Less(t, l.AdjustedScore("mid", 100), 100.0)

	now := time.Now()
	for i := 0; i < 10; i++ {
		l.mu.Lock()
		l.decayAndExpireLocked(now)
		l.mu.Unlock()
	}
	require.Equal(t, 100.0, l.AdjustedScore("mid", 100))
}
