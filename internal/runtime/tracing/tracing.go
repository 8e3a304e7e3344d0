// Package tracing mirrors telemetry spans into OpenTelemetry so collector
// spans and application traces line up in the same backend.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sidewire/sidewire"

// Bridge mirrors client spans as OpenTelemetry spans. It keeps spans open
// between StartSpan and EndSpan keyed by the client's span id.
type Bridge struct {
	tracer trace.Tracer

	mu     sync.Mutex
	active map[string]trace.Span
}

// NewBridge creates a bridge using the given tracer provider, or the global
// provider when tp is nil.
func NewBridge(tp trace.TracerProvider) *Bridge {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Bridge{
		tracer: tp.Tracer(tracerName),
		active: make(map[string]trace.Span),
	}
}

// StartSpan opens an OpenTelemetry span mirroring a client span. The client's
// identifiers are attached as attributes; OpenTelemetry assigns its own ids.
func (b *Bridge) StartSpan(name, traceID, spanID, parentID string) {
	if b == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("sidewire.trace_id", traceID),
		attribute.String("sidewire.span_id", spanID),
	}
	if parentID != "" {
		attrs = append(attrs, attribute.String("sidewire.parent_id", parentID))
	}

	_, span := b.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))

	b.mu.Lock()
	b.active[spanID] = span
	b.mu.Unlock()
}

// EndSpan closes the mirrored span. Unknown span ids are ignored.
func (b *Bridge) EndSpan(spanID, status string) {
	if b == nil {
		return
	}

	b.mu.Lock()
	span, ok := b.active[spanID]
	if ok {
		delete(b.active, spanID)
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	switch status {
	case "error", "failed":
		span.SetStatus(codes.Error, status)
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Shutdown ends any spans still open, marking them as abandoned.
func (b *Bridge) Shutdown() {
	if b == nil {
		return
	}

	b.mu.Lock()
	spans := b.active
	b.active = make(map[string]trace.Span)
	b.mu.Unlock()

	for _, span := range spans {
		span.SetStatus(codes.Error, "abandoned")
		span.End()
	}
}
