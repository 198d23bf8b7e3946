// Package telemetry implements the Telemetry Core (C12): lightweight
// span tracing shaped like industry tracing conventions, with a
// pluggable exporter and a null default so the core never depends on a
// network transport. The Prometheus-backed exporter wires
// github.com/prometheus/client_golang, the one observability dependency
// the teacher's own cmd/cie/index.go already pulls in via promhttp.
package telemetry

import (
	"context"
	"sync"
	"time"
)

// Status is a span's terminal outcome.
type Status string

const (
	StatusUnset Status = "unset"
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Event is a timestamped annotation attached to a span.
type Event struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]any
}

// Span is a single traced operation. Use Tracer.Start to create one;
// call End when the operation completes.
type Span struct {
	mu sync.Mutex

	traceID      string
	spanID       string
	parentSpanID string
	name         string
	attributes   map[string]any
	events       []Event
	status       Status
	startedAt    time.Time
	endedAt      time.Time
	ended        bool

	tracer *Tracer
}

// TraceID returns the span's trace identifier.
func (s *Span) TraceID() string { return s.traceID }

// SpanID returns the span's own identifier.
func (s *Span) SpanID() string { return s.spanID }

// SetAttribute attaches a typed key/value pair to the span.
func (s *Span) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attributes == nil {
		s.attributes = make(map[string]any)
	}
	s.attributes[key] = value
}

// AddEvent records a named, timestamped event on the span.
func (s *Span) AddEvent(name string, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Name: name, Timestamp: s.tracer.now(), Attributes: attrs})
}

// SetStatus sets the span's terminal status.
func (s *Span) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// End marks the span complete and exports it. Calling End more than once
// is a no-op.
func (s *Span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.endedAt = s.tracer.now()
	if s.status == "" {
		s.status = StatusUnset
	}
	data := s.dataLocked()
	s.mu.Unlock()

	s.tracer.export(data)
}

func (s *Span) dataLocked() SpanData {
	attrs := make(map[string]any, len(s.attributes))
	for k, v := range s.attributes {
		attrs[k] = v
	}
	events := make([]Event, len(s.events))
	copy(events, s.events)

	return SpanData{
		TraceID:      s.traceID,
		SpanID:       s.spanID,
		ParentSpanID: s.parentSpanID,
		Name:         s.name,
		Attributes:   attrs,
		Events:       events,
		Status:       s.status,
		StartedAt:    s.startedAt,
		EndedAt:      s.endedAt,
	}
}

// SpanData is the exported, immutable snapshot of a completed span.
type SpanData struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Name         string
	Attributes   map[string]any
	Events       []Event
	Status       Status
	StartedAt    time.Time
	EndedAt      time.Time
}

// Duration returns how long the span was open.
func (d SpanData) Duration() time.Duration { return d.EndedAt.Sub(d.StartedAt) }

type activeSpanKey struct{}

// ActiveSpan returns the span attached to ctx by Tracer.Start, or nil if
// none is attached.
func ActiveSpan(ctx context.Context) *Span {
	span, _ := ctx.Value(activeSpanKey{}).(*Span)
	return span
}
