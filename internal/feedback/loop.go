package feedback

import (
	"math"
	"sync"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
)

// Loop owns the recorder, the active adjustment set, and manual
// disable/enable overrides, and runs the periodic recalculate step (spec
// §4.11).
type Loop struct {
	mu          sync.RWMutex
	cfg         config.FeedbackConfig
	recorder    *Recorder
	adjustments map[string]Adjustment // modelID -> active adjustment
	disabled    map[string]Adjustment // modelID -> manual or automatic disable
	clock       func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewLoop creates a Loop. Call Start to begin the periodic recalculate
// goroutine; callers that only want RecordOutcome/AdjustedScore (e.g. tests
// driving recalculate manually) may skip Start.
func NewLoop(cfg config.FeedbackConfig) *Loop {
	return &Loop{
		cfg:         cfg,
		recorder:    NewRecorder(cfg),
		adjustments: make(map[string]Adjustment),
		disabled:    make(map[string]Adjustment),
		clock:       time.Now,
	}
}

// RecordOutcome appends one model-invocation outcome to the rolling
// window.
func (l *Loop) RecordOutcome(o Outcome) {
	l.recorder.Record(o)
}

// Start launches the periodic recalculate goroutine. Stop ends it.
func (l *Loop) Start() {
	l.stop = make(chan struct{})
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		interval := l.cfg.RecalculateInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.Recalculate()
			}
		}
	}()
}

// Stop halts the periodic goroutine, if running.
func (l *Loop) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	l.wg.Wait()
}

// Recalculate runs one decay+reassess pass over every model's current
// aggregate (spec §4.11 steps 1-4).
func (l *Loop) Recalculate() {
	now := l.clock()

	l.mu.Lock()
	l.decayAndExpireLocked(now)
	l.mu.Unlock()

	aggregates := l.recorder.Aggregates()
	for modelID, agg := range aggregates {
		if agg.Samples < l.cfg.MinSamplesForAdjustment {
			continue
		}
		candidate, ok := l.evaluate(modelID, agg)
		if !ok {
			continue
		}
		l.mergeAdjustment(modelID, candidate, now)
	}
}

func (l *Loop) decayAndExpireLocked(now time.Time) {
	for modelID, adj := range l.adjustments {
		adj.Value *= (1 - l.cfg.DecayRate)
		if math.Abs(adj.Value) < l.cfg.MinAdjustmentMagnitude || adj.expired(now) {
			delete(l.adjustments, modelID)
			continue
		}
		l.adjustments[modelID] = adj
	}
	for modelID, adj := range l.disabled {
		if adj.expired(now) {
			delete(l.disabled, modelID)
		}
	}
}

// evaluate implements the per-model decision table from spec §4.11 step 3.
func (l *Loop) evaluate(modelID string, agg Aggregate) (Adjustment, bool) {
	now := l.clock()
	switch {
	case agg.SuccessRate < 0.5 && agg.Samples >= l.cfg.DisableThresholdSamples:
		return Adjustment{
			ModelID: modelID, Kind: AdjustDisable, Confidence: 1,
			Reason:    "success rate below 0.5 over the disable-eligible sample count",
			CreatedAt: now, ExpiresAt: now.Add(l.cfg.DisableDuration),
		}, true
	case agg.SuccessRate > 0.98 && agg.P90LatencyMs < 0.5*l.cfg.P90LatencyThresholdMs:
		return Adjustment{
			ModelID: modelID, Kind: AdjustScoreBoost, Value: 5, Confidence: 0.6,
			Reason: "success rate above 0.98 with p90 latency well under threshold", CreatedAt: now,
		}, true
	case agg.SuccessRate < l.cfg.SuccessRateThreshold:
		shortfall := l.cfg.SuccessRateThreshold - agg.SuccessRate
		return Adjustment{
			ModelID: modelID, Kind: AdjustScorePenalty, Value: -shortfall * 100, Confidence: 0.7,
			Reason: "success rate below threshold", CreatedAt: now,
		}, true
	case agg.P90LatencyMs > l.cfg.P90LatencyThresholdMs:
		overshoot := (agg.P90LatencyMs - l.cfg.P90LatencyThresholdMs) / l.cfg.P90LatencyThresholdMs
		return Adjustment{
			ModelID: modelID, Kind: AdjustScorePenalty, Value: -overshoot * 50, Confidence: 0.6,
			Reason: "p90 latency over threshold", CreatedAt: now,
		}, true
	}
	return Adjustment{}, false
}

// mergeAdjustment implements spec §4.11 step 4: same kind averages
// values and raises confidence; different kind keeps the higher-
// confidence adjustment.
func (l *Loop) mergeAdjustment(modelID string, candidate Adjustment, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if candidate.Kind == AdjustDisable {
		l.disabled[modelID] = candidate
		delete(l.adjustments, modelID)
		return
	}

	existing, ok := l.adjustments[modelID]
	if !ok {
		l.adjustments[modelID] = candidate
		return
	}
	if existing.Kind == candidate.Kind {
		merged := existing
		merged.Value = (existing.Value + candidate.Value) / 2
		merged.Confidence = math.Min(1, existing.Confidence+0.1)
		merged.Reason = candidate.Reason
		merged.CreatedAt = now
		l.adjustments[modelID] = merged
		return
	}
	if candidate.Confidence > existing.Confidence {
		l.adjustments[modelID] = candidate
	}
}

// AdjustedScore returns baseScore adjusted by any active modifier, or
// math.Inf(-1) if the model is currently disabled.
func (l *Loop) AdjustedScore(modelID string, baseScore float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, disabled := l.disabled[modelID]; disabled {
		return math.Inf(-1)
	}
	adj, ok := l.adjustments[modelID]
	if !ok {
		return baseScore
	}
	return baseScore + adj.Value*adj.Confidence
}

// DisableModel manually disables modelID. duration <= 0 means no expiry.
func (l *Loop) DisableModel(modelID, reason string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	adj := Adjustment{ModelID: modelID, Kind: AdjustDisable, Confidence: 1, Reason: reason, CreatedAt: now}
	if duration > 0 {
		adj.ExpiresAt = now.Add(duration)
	}
	l.disabled[modelID] = adj
}

// EnableModel clears any manual or automatic disable on modelID.
func (l *Loop) EnableModel(modelID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.disabled, modelID)
}

// IsDisabled reports whether modelID is currently disabled.
func (l *Loop) IsDisabled(modelID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.disabled[modelID]
	return ok
}
