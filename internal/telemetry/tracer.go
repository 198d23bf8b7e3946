package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Exporter receives completed span batches. Implementations must not
// block the caller for long; Tracer calls Export synchronously from
// Span.End.
type Exporter interface {
	Export(batch []SpanData)
}

// NullExporter discards every span. It is the Tracer default so the core
// never depends on a network transport (spec §4.12).
type NullExporter struct{}

// Export implements Exporter by discarding batch.
func (NullExporter) Export(batch []SpanData) {}

// Tracer creates spans and routes completed ones to its Exporter.
type Tracer struct {
	exporter Exporter
	now      func() time.Time
}

// NewTracer creates a Tracer. A nil exporter defaults to NullExporter.
func NewTracer(exporter Exporter) *Tracer {
	if exporter == nil {
		exporter = NullExporter{}
	}
	return &Tracer{exporter: exporter, now: time.Now}
}

// Start creates a new span named name. If ctx carries an active span,
// the new span's parentSpanID is set to it and, when attach is true, the
// returned context carries the new span as active.
func (t *Tracer) Start(ctx context.Context, name string, attach bool) (context.Context, *Span) {
	span := &Span{
		traceID:   t.traceIDFor(ctx),
		spanID:    newID(),
		name:      name,
		startedAt: t.now(),
		tracer:    t,
	}
	if parent := ActiveSpan(ctx); parent != nil {
		span.parentSpanID = parent.spanID
	}
	if attach {
		ctx = context.WithValue(ctx, activeSpanKey{}, span)
	}
	return ctx, span
}

func (t *Tracer) traceIDFor(ctx context.Context) string {
	if parent := ActiveSpan(ctx); parent != nil {
		return parent.traceID
	}
	return newID()
}

func (t *Tracer) export(data SpanData) {
	t.exporter.Export([]SpanData{data})
}

func newID() string {
	return uuid.NewString()
}
