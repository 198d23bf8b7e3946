package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureExporter struct {
	mu     sync.Mutex
	spans  []SpanData
}

func (c *captureExporter) Export(batch []SpanData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = append(c.spans, batch...)
}

func TestTracer_StartAndEndRecordsSpan(t *testing.T) {
	exp := &captureExporter{}
	tracer := NewTracer(exp)

	ctx, span := tracer.Start(context.Background(), "index.run", true)
	span.SetAttribute("files", 3)
	span.AddEvent("scan.started", nil)
	span.SetStatus(StatusOK)
	span.End()

	require.Len(t, exp.spans, 1)
	require.Equal(t, "index.run", exp.spans[0].Name)
	require.Equal(t, StatusOK, exp.spans[0].Status)
	require.Equal(t, 3, exp.spans[0].Attributes["files"])
	require.Len(t, exp.spans[0].Events, 1)
	require.NotNil(t, ActiveSpan(ctx))
}

func TestTracer_ChildSpanInheritsTraceIDAndParent(t *testing.T) {
	exp := &captureExporter{}
	tracer := NewTracer(exp)

	ctx, parent := tracer.Start(context.Background(), "parent", true)
	_, child := tracer.Start(ctx, "child", true)

	require.Equal(t, parent.TraceID(), child.TraceID())
	require.NotEqual(t, parent.SpanID(), child.SpanID())
}

func TestSpan_EndIsIdempotent(t *testing.T) {
	exp := &captureExporter{}
	tracer := NewTracer(exp)
	_, span := tracer.Start(context.Background(), "op", false)
	span.End()
	span.End()
	require.Len(t, exp.spans, 1)
}

func TestNullExporter_DiscardsSpans(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.Start(context.Background(), "op", false)
	require.NotPanics(t, func() { span.End() })
}
