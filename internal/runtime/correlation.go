package runtime

import (
	sterrors "github.com/sidewire/sidewire/internal/runtime/errors"
	"github.com/sidewire/sidewire/internal/runtime/ids"
)

// maxIDLen bounds correlation identifiers so a bad caller cannot inflate
// every envelope on the wire.
const maxIDLen = 64

// correlationContext tracks the trace and span identifiers stamped onto
// outgoing envelopes. The caller (Client) serialises access.
type correlationContext struct {
	traceID string
	spanID  string
}

// setTraceID installs an externally supplied trace id, or generates one when
// id is empty.
func (c *correlationContext) setTraceID(id string) (string, error) {
	if len(id) > maxIDLen {
		return "", sterrors.ErrIdentifierTooLong
	}
	if id == "" {
		id = ids.NewTraceID()
	}
	c.traceID = id
	return id, nil
}

// startSpan opens a new span and makes it current. The previous current span
// becomes the parent. A trace id is generated if none is set yet.
func (c *correlationContext) startSpan() (spanID, parentID string) {
	if c.traceID == "" {
		c.traceID = ids.NewTraceID()
	}
	parentID = c.spanID
	spanID = ids.NewSpanID()
	c.spanID = spanID
	return spanID, parentID
}

// endSpan clears the current span, but only when spanID is still current.
// Ending a stale span leaves a newer nested span untouched.
func (c *correlationContext) endSpan(spanID string) {
	if c.spanID == spanID {
		c.spanID = ""
	}
}
