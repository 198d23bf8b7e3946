// Package feedback implements the model-routing feedback loop (C11):
// rolling-window outcome recording, per-model aggregates, a periodic
// decay/recalculate pass that turns aggregate trends into score
// adjustments, and manual disable/enable overrides. It is new relative to
// the teacher's own tree (the teacher routes every embedding call through
// a single configured provider, never several scored candidates) but
// follows the teacher's own provider/model naming convention from
// cmd/cie/config.go's EmbeddingConfig.
package feedback

import "time"

// Outcome is one recorded model invocation result.
type Outcome struct {
	ModelID      string
	Vendor       string
	Success      bool
	LatencyMs    float64
	Cost         float64
	QualityScore *float64
	UsedFallback bool
	Timestamp    time.Time
}

// Aggregate summarizes a model's outcomes within the rolling window.
type Aggregate struct {
	ModelID      string
	Samples      int
	SuccessRate  float64
	P50LatencyMs float64
	P90LatencyMs float64
	P99LatencyMs float64
	AvgCost      float64
	FallbackRate float64
}

// AdjustmentKind classifies a score adjustment.
type AdjustmentKind string

const (
	AdjustScorePenalty AdjustmentKind = "score-penalty"
	AdjustScoreBoost   AdjustmentKind = "score-boost"
	AdjustDisable      AdjustmentKind = "disable"
)

// Adjustment is one active modifier applied to a model's base score.
type Adjustment struct {
	ModelID    string
	Kind       AdjustmentKind
	Value      float64
	Confidence float64
	Reason     string
	CreatedAt  time.Time
	ExpiresAt  time.Time // zero means no expiry
}

func (a Adjustment) expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}
