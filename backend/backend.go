// Package backend defines the delivery contract shared by all sidewire
// telemetry backends, together with the registry used to construct them by
// name. Each backend implementation (sidecar, file, http, channel) lives in
// its own sub-package and registers itself with the registry.
package backend

import (
	"context"
	"errors"
	"time"
)

// Result classifies the outcome of a single Emit call. It is informational:
// a Buffered or Dropped result never aborts the caller.
type Result int

const (
	// ResultDelivered means the payload was written to the collector.
	ResultDelivered Result = iota
	// ResultBuffered means the payload is queued locally and will be
	// replayed once the collector is reachable again.
	ResultBuffered
	// ResultDropped means the payload was discarded: the buffer was full,
	// the payload was invalid, or the backend is closed.
	ResultDropped
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultBuffered:
		return "buffered"
	case ResultDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// ConnectionState describes a buffering backend's relationship with its
// collector. Exactly one state holds at any time.
type ConnectionState int

const (
	// StateDisconnected means no live connection exists; payloads are
	// buffered until one can be established.
	StateDisconnected ConnectionState = iota
	// StateConnected means payloads are being written to the collector.
	StateConnected
	// StateOverflow means the local buffer hit capacity and new payloads
	// are being dropped. The state clears once the buffer fully drains.
	StateOverflow
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of a backend's delivery counters.
// Sent, Buffered, Dropped, and Reconnects are lifetime totals and never
// decrease. Overflows counts drops since the buffer last filled up and
// resets to zero when the buffer fully drains out of the Overflow state.
type Stats struct {
	Sent        uint64          `json:"messages_sent"`
	Buffered    uint64          `json:"messages_buffered"`
	Dropped     uint64          `json:"messages_dropped"`
	Reconnects  uint64          `json:"reconnect_count"`
	Overflows   uint64          `json:"overflow_count"`
	BufferDepth int             `json:"buffer_depth"`
	State       ConnectionState `json:"state"`
}

// Sentinel errors returned by backends.
var (
	// ErrEmptyPayload is returned for a nil or zero-length payload.
	ErrEmptyPayload = errors.New("sidewire: payload is empty")

	// ErrPayloadTooLarge is returned when a payload exceeds the backend's
	// maximum message size. Oversized application data must be chunked
	// upstream.
	ErrPayloadTooLarge = errors.New("sidewire: payload exceeds max message size")

	// ErrBufferFull is returned when a payload is dropped because the
	// local buffer is at capacity. This is backpressure, not a fault: the
	// caller may keep emitting.
	ErrBufferFull = errors.New("sidewire: local buffer is full")

	// ErrClosed is returned for emissions after Close.
	ErrClosed = errors.New("sidewire: backend is closed")

	// ErrNotConnected is returned by raw writes issued without a live
	// connection.
	ErrNotConnected = errors.New("sidewire: collector is not reachable")
)

// Backend delivers serialized telemetry envelopes to a collector. Payloads
// are opaque newline-terminated byte slices; framing and JSON shape are the
// wire package's responsibility.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Emit attempts delivery of one payload. It never blocks longer than
	// a single write or connect attempt; degraded delivery is reported
	// through the Result, not through blocking.
	Emit(payload []byte) (Result, error)

	// Close tears the backend down, attempting a best-effort flush of any
	// locally queued payloads. Payloads that cannot be flushed are
	// discarded.
	Close(ctx context.Context) error
}

// StateReporter is implemented by backends that track a connection state.
type StateReporter interface {
	State() ConnectionState
}

// StatsReporter is implemented by backends that keep delivery counters.
type StatsReporter interface {
	Stats() Stats
}

// Config provides the settings needed by backend builders. The interface
// lets each backend read only the keys relevant to it without depending on
// the full config package.
type Config interface {
	// GetBackend returns the selected backend name.
	GetBackend() string

	// GetSource returns the source identifier stamped on every envelope.
	GetSource() string

	// Sidecar (TCP).
	GetSidecarAddress() string
	GetDialTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetBufferCapacity() int
	GetMaxMessageSize() int
	GetBackoffFloor() time.Duration
	GetBackoffCeiling() time.Duration
	GetBackoffJitter() bool

	// File.
	GetFilePath() string
	GetFileMaxBytes() int64
	GetFileMaxBackups() int

	// HTTP.
	GetHTTPEndpoint() string
}
