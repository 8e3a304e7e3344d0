package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/sidewire/sidewire/backend"
	sterrors "github.com/sidewire/sidewire/internal/runtime/errors"
	"github.com/sidewire/sidewire/internal/runtime/logging"
	"github.com/sidewire/sidewire/internal/runtime/runtimeconfig"
	"github.com/sidewire/sidewire/internal/runtime/tracing"
	"github.com/sidewire/sidewire/internal/runtime/wire"
)

// ClientDeps carries the collaborators of a Client. Backend is required;
// everything else is optional.
type ClientDeps struct {
	Backend backend.Backend
	Logger  logging.ServiceLogger
	Runtime *runtimeconfig.Reloader
	Tracing *tracing.Bridge
}

// Client is the telemetry emission facade. It builds wire envelopes, stamps
// them with correlation identifiers, and hands them to the configured
// backend. All methods are safe for concurrent use.
type Client struct {
	mu sync.Mutex

	source  string
	backend backend.Backend
	corr    correlationContext
	tracker *resourceTracker
	closed  bool

	reloader *runtimeconfig.Reloader
	bridge   *tracing.Bridge
	log      logging.ServiceLogger
}

// SpanOption customises StartSpan.
type SpanOption func(*spanOptions)

type spanOptions struct {
	traceID string
}

// WithTraceID joins the span to an existing trace instead of the client's
// current one.
func WithTraceID(traceID string) SpanOption {
	return func(o *spanOptions) { o.traceID = traceID }
}

// NewClient creates a client emitting as source through the given backend.
func NewClient(source string, deps ClientDeps) (*Client, error) {
	if source == "" {
		return nil, sterrors.ErrSourceRequired
	}
	if deps.Backend == nil {
		return nil, sterrors.ErrBackendRequired
	}

	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}

	if deps.Runtime != nil {
		deps.Runtime.Start()
	}

	return &Client{
		source:   source,
		backend:  deps.Backend,
		tracker:  newResourceTracker(),
		reloader: deps.Runtime,
		bridge:   deps.Tracing,
		log:      log,
	}, nil
}

// LogEvent emits a structured log event.
func (c *Client) LogEvent(level, message string, ctx map[string]any) (backend.Result, error) {
	if level == "" {
		return backend.ResultDropped, sterrors.ErrLevelRequired
	}
	if message == "" {
		return backend.ResultDropped, sterrors.ErrMessageRequired
	}
	if ctx == nil {
		ctx = map[string]any{}
	}

	return c.emit(wire.TypeEvent, wire.EventData{
		Level:   level,
		Message: message,
		Context: ctx,
	}, nil)
}

// LogMetric emits a numeric measurement.
func (c *Client) LogMetric(name string, value float64, unit string, tags map[string]string) (backend.Result, error) {
	if name == "" {
		return backend.ResultDropped, sterrors.ErrMetricNameRequired
	}
	if tags == nil {
		tags = map[string]string{}
	}

	return c.emit(wire.TypeMetric, wire.MetricData{
		Name:  name,
		Value: value,
		Unit:  unit,
		Tags:  tags,
	}, nil)
}

// LogProgress emits a job progress update. Percent is clamped to [0, 100]
// and status defaults to "running".
func (c *Client) LogProgress(jobID string, percent float64, status string) (backend.Result, error) {
	if jobID == "" {
		return backend.ResultDropped, sterrors.ErrJobIDRequired
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if status == "" {
		status = "running"
	}

	return c.emit(wire.TypeProgress, wire.ProgressData{
		JobID:   jobID,
		Percent: percent,
		Status:  status,
	}, nil)
}

// LogResource emits a resource usage record. Negative CPU or memory values
// are replaced with sampled values from the running process.
func (c *Client) LogResource(cpuPercent, memoryMB, diskIOMB, networkIOMB float64) (backend.Result, error) {
	data := wire.ResourceData{
		CPUPercent:  cpuPercent,
		MemoryMB:    memoryMB,
		DiskIOMB:    diskIOMB,
		NetworkIOMB: networkIOMB,
	}
	if cpuPercent < 0 || memoryMB < 0 {
		sampled := c.tracker.Snapshot()
		if cpuPercent < 0 {
			data.CPUPercent = sampled.CPUPercent
		}
		if memoryMB < 0 {
			data.MemoryMB = sampled.MemoryMB
		}
		data.PID = sampled.PID
	}

	return c.emit(wire.TypeResource, data, nil)
}

// LogResourceAuto samples the running process and emits the result. CPU
// percent is a delta since the previous sample, so the first call reports
// zero CPU.
func (c *Client) LogResourceAuto() (backend.Result, error) {
	return c.emit(wire.TypeResource, c.tracker.Snapshot(), nil)
}

// StartSpan opens a span, makes it current, and emits its start record.
// Returns the span id to pass to EndSpan.
func (c *Client) StartSpan(name string, opts ...SpanOption) (string, error) {
	if name == "" {
		return "", sterrors.ErrSpanNameRequired
	}

	var o spanOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	if o.traceID != "" {
		if _, err := c.corr.setTraceID(o.traceID); err != nil {
			c.mu.Unlock()
			return "", err
		}
	}
	spanID, parentID := c.corr.startSpan()
	traceID := c.corr.traceID
	c.mu.Unlock()

	if c.bridge != nil {
		c.bridge.StartSpan(name, traceID, spanID, parentID)
	}

	start := time.Now().UnixMilli()
	_, err := c.emit(wire.TypeSpan, wire.SpanData{
		Name:   name,
		Start:  start,
		Status: "started",
		Tags:   map[string]string{},
	}, &correlationOverride{traceID: traceID, spanID: spanID, parentID: parentID})
	if err != nil {
		return spanID, err
	}
	return spanID, nil
}

// EndSpan closes a span and emits its end record. Status defaults to
// "success". If spanID is the client's current span, the parent span becomes
// current again.
func (c *Client) EndSpan(spanID, status string, tags map[string]string) (backend.Result, error) {
	if spanID == "" {
		return backend.ResultDropped, sterrors.ErrSpanIDRequired
	}
	if status == "" {
		status = "success"
	}
	if tags == nil {
		tags = map[string]string{}
	}

	c.mu.Lock()
	traceID := c.corr.traceID
	c.corr.endSpan(spanID)
	c.mu.Unlock()

	if c.bridge != nil {
		c.bridge.EndSpan(spanID, status)
	}

	end := time.Now().UnixMilli()
	return c.emit(wire.TypeSpan, wire.SpanData{
		End:    &end,
		Status: status,
		Tags:   tags,
	}, &correlationOverride{traceID: traceID, spanID: spanID})
}

// SetTraceID installs the trace id stamped on subsequent envelopes. An empty
// id generates a fresh one. Returns the id in effect.
func (c *Client) SetTraceID(traceID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.corr.setTraceID(traceID)
}

// Stats returns backend delivery counters, or a zero snapshot when the
// backend does not report them.
func (c *Client) Stats() backend.Stats {
	if r, ok := c.backend.(backend.StatsReporter); ok {
		return r.Stats()
	}
	return backend.Stats{}
}

// State returns the backend connection state. Backends without a connection
// report connected.
func (c *Client) State() backend.ConnectionState {
	if r, ok := c.backend.(backend.StateReporter); ok {
		return r.State()
	}
	return backend.StateConnected
}

// RuntimeStatus reports the runtime config reloader state, if configured.
func (c *Client) RuntimeStatus() runtimeconfig.Status {
	if c.reloader == nil {
		return runtimeconfig.Status{Settings: runtimeconfig.DefaultSettings()}
	}
	return c.reloader.Status()
}

// Close emits a goodbye record, closes the backend, and stops background
// collaborators. Safe to call multiple times.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	env := c.envelopeLocked(wire.TypeGoodbye, map[string]any{}, nil)
	c.mu.Unlock()

	// Best effort. The collector treats an abrupt disconnect the same way,
	// just without the clean shutdown marker.
	if payload, err := wire.Encode(env); err == nil {
		_, _ = c.backend.Emit(payload)
	}

	err := c.backend.Close(ctx)

	if c.reloader != nil {
		c.reloader.Stop()
	}
	if c.bridge != nil {
		c.bridge.Shutdown()
	}

	return err
}

// correlationOverride replaces the client's current correlation fields for a
// single envelope. Span records carry their own span's identifiers rather
// than whatever is current at emit time.
type correlationOverride struct {
	traceID  string
	spanID   string
	parentID string
}

func (c *Client) emit(recordType string, data any, override *correlationOverride) (backend.Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return backend.ResultDropped, backend.ErrClosed
	}
	env := c.envelopeLocked(recordType, data, override)
	c.mu.Unlock()

	if c.reloader != nil && !c.reloader.Allow() {
		return backend.ResultDropped, nil
	}

	payload, err := wire.Encode(env)
	if err != nil {
		return backend.ResultDropped, err
	}

	return c.backend.Emit(payload)
}

func (c *Client) envelopeLocked(recordType string, data any, override *correlationOverride) wire.Envelope {
	env := wire.NewEnvelope(c.source, recordType, data)
	if override != nil {
		env.TraceID = override.traceID
		env.SpanID = override.spanID
		env.ParentID = override.parentID
		return env
	}
	env.TraceID = c.corr.traceID
	env.SpanID = c.corr.spanID
	return env
}
