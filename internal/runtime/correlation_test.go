package runtime

import (
	"errors"
	"strings"
	"testing"

	sterrors "github.com/sidewire/sidewire/internal/runtime/errors"
)

func TestCorrelationSetTraceID(t *testing.T) {
	var corr correlationContext

	id, err := corr.setTraceID("abc")
	if err != nil || id != "abc" {
		t.Fatalf("expected abc, got %q (%v)", id, err)
	}

	generated, err := corr.setTraceID("")
	if err != nil {
		t.Fatalf("setTraceID: %v", err)
	}
	if generated == "" || generated == "abc" {
		t.Errorf("expected fresh generated id, got %q", generated)
	}

	if _, err := corr.setTraceID(strings.Repeat("z", maxIDLen+1)); !errors.Is(err, sterrors.ErrIdentifierTooLong) {
		t.Errorf("expected ErrIdentifierTooLong, got %v", err)
	}
	// A failed set must not clobber the current id.
	if corr.traceID != generated {
		t.Errorf("trace id changed on failed set: %q", corr.traceID)
	}
}

func TestCorrelationSpanNesting(t *testing.T) {
	var corr correlationContext

	outer, parent := corr.startSpan()
	if parent != "" {
		t.Errorf("first span must have no parent, got %q", parent)
	}
	if corr.traceID == "" {
		t.Error("starting a span must establish a trace id")
	}

	inner, parent := corr.startSpan()
	if parent != outer {
		t.Errorf("expected parent %q, got %q", outer, parent)
	}
	if corr.spanID != inner {
		t.Errorf("expected current span %q, got %q", inner, corr.spanID)
	}

	// Ending a non-current span leaves the current one alone.
	corr.endSpan(outer)
	if corr.spanID != inner {
		t.Errorf("ending stale span cleared current: %q", corr.spanID)
	}

	corr.endSpan(inner)
	if corr.spanID != "" {
		t.Errorf("expected cleared span, got %q", corr.spanID)
	}
}
