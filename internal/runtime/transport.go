package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/sidewire/sidewire/backend"
	sterrors "github.com/sidewire/sidewire/internal/runtime/errors"
	"github.com/sidewire/sidewire/internal/runtime/logging"
)

// TransportDeps carries the optional collaborators of a Transport. Zero value
// is valid: no hooks, no metrics, no logging.
type TransportDeps struct {
	Hooks   TransportHooks
	Metrics *TransportMetrics
	Logger  logging.ServiceLogger
}

// Transport delivers encoded payloads to the collector over a single TCP
// connection. Payloads that cannot be delivered are held in a bounded FIFO
// buffer and flushed, oldest first, once the connection comes back.
//
// The transport never spawns goroutines. Reconnection happens lazily inside
// Emit, throttled by exponential backoff, so an unreachable collector costs
// callers at most one dial timeout per backoff window.
type Transport struct {
	mu sync.Mutex

	conn   *connManager
	buffer *messageBuffer

	maxMessageSize int

	backoff     *backoff.Backoff
	delay       time.Duration
	lastAttempt time.Time

	state  backend.ConnectionState
	closed bool

	sent       uint64
	buffered   uint64
	dropped    uint64
	reconnects uint64
	overflows  uint64

	hooks   TransportHooks
	metrics *TransportMetrics
	log     logging.ServiceLogger

	// now is a test seam for backoff timing.
	now func() time.Time
}

// NewTransport creates a transport for the given config and attempts an
// initial connection. A failed initial connection is not an error; the
// transport starts disconnected and buffers until the collector appears.
func NewTransport(cfg backend.Config, deps TransportDeps) (*Transport, error) {
	if cfg == nil {
		return nil, sterrors.ErrConfigRequired
	}

	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}

	b := &backoff.Backoff{
		Min:    cfg.GetBackoffFloor(),
		Max:    cfg.GetBackoffCeiling(),
		Factor: 2,
		Jitter: cfg.GetBackoffJitter(),
	}

	t := &Transport{
		conn:           newConnManager(cfg.GetSidecarAddress(), cfg.GetDialTimeout(), cfg.GetWriteTimeout()),
		buffer:         newMessageBuffer(cfg.GetBufferCapacity()),
		maxMessageSize: cfg.GetMaxMessageSize(),
		backoff:        b,
		state:          backend.StateDisconnected,
		hooks:          deps.Hooks,
		metrics:        deps.Metrics,
		log:            log,
		now:            time.Now,
	}
	// Consume the backoff's first step so the delay after the first failure
	// is double the floor, matching the collector protocol's schedule.
	t.delay = b.Duration()

	t.mu.Lock()
	if t.ensureConnectedLocked(t.now()) {
		t.drainLocked()
	}
	t.mu.Unlock()

	return t, nil
}

// Emit delivers one payload. The result reports what happened to it:
// delivered to the collector, buffered for later, or dropped. Emit never
// blocks beyond one dial plus one write timeout.
func (t *Transport) Emit(payload []byte) (backend.Result, error) {
	if len(payload) == 0 {
		return backend.ResultDropped, backend.ErrEmptyPayload
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return backend.ResultDropped, backend.ErrClosed
	}

	if len(payload) > t.maxMessageSize {
		t.dropped++
		t.metrics.recordDropped(dropReasonOversize)
		if t.hooks.OnDrop != nil {
			t.hooks.OnDrop(t.dropped)
		}
		return backend.ResultDropped, backend.ErrPayloadTooLarge
	}

	// Fast path: connected with nothing queued ahead of this payload.
	if t.state == backend.StateConnected && t.conn.connected() && t.buffer.len() == 0 {
		if err := t.conn.write(payload); err == nil {
			t.sent++
			t.metrics.recordSent()
			return backend.ResultDelivered, nil
		}
		t.log.Debug("Write to collector failed, buffering", logging.LogFields{"addr": t.conn.addr})
		t.setStateLocked(backend.StateDisconnected)
	}

	result, err := t.pushLocked(payload)

	if t.ensureConnectedLocked(t.now()) {
		t.drainLocked()
	}

	return result, err
}

// Connect forces a connection attempt, subject to the usual backoff
// throttling, and drains the buffer on success. Returns true if the
// transport is connected afterwards.
func (t *Transport) Connect() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	if t.ensureConnectedLocked(t.now()) {
		t.drainLocked()
		return true
	}
	return false
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() backend.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return backend.Stats{
		Sent:        t.sent,
		Buffered:    t.buffered,
		Dropped:     t.dropped,
		Reconnects:  t.reconnects,
		Overflows:   t.overflows,
		BufferDepth: t.buffer.len(),
		State:       t.state,
	}
}

// State returns the current connection state.
func (t *Transport) State() backend.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close makes a final best-effort drain attempt and releases the connection.
// Payloads still buffered after the drain are lost; their count is logged.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.ensureConnectedLocked(t.now()) {
		t.drainLocked()
	}

	if remaining := t.buffer.len(); remaining > 0 {
		t.log.Info("Closing with undelivered payloads", logging.LogFields{
			"remaining": remaining,
			"sent":      t.sent,
			"dropped":   t.dropped,
		})
	}

	t.conn.close()
	t.setStateLocked(backend.StateDisconnected)
	return nil
}

// pushLocked queues a payload, recording an overflow when the buffer is full.
func (t *Transport) pushLocked(payload []byte) (backend.Result, error) {
	if !t.buffer.push(payload) {
		t.overflows++
		t.dropped++
		t.metrics.recordOverflow()
		t.metrics.recordDropped(dropReasonOverflow)
		t.setStateLocked(backend.StateOverflow)
		if t.hooks.OnDrop != nil {
			t.hooks.OnDrop(t.dropped)
		}
		return backend.ResultDropped, backend.ErrBufferFull
	}

	t.buffered++
	t.metrics.recordBuffered(t.buffer.len())
	return backend.ResultBuffered, nil
}

// ensureConnectedLocked returns true when a live connection exists, dialing
// if the backoff window allows. On success the backoff resets; on failure
// the delay doubles up to the ceiling.
func (t *Transport) ensureConnectedLocked(now time.Time) bool {
	if t.conn.connected() {
		return true
	}

	if !t.lastAttempt.IsZero() && now.Sub(t.lastAttempt) < t.delay {
		return false
	}
	t.lastAttempt = now

	if err := t.conn.dial(); err != nil {
		t.delay = t.backoff.Duration()
		t.log.Debug("Collector dial failed", logging.LogFields{
			"addr":       t.conn.addr,
			"next_delay": t.delay.String(),
		})
		return false
	}

	t.backoff.Reset()
	t.delay = t.backoff.Duration()
	t.reconnects++
	t.metrics.recordReconnect()
	if t.hooks.OnReconnect != nil {
		t.hooks.OnReconnect(t.reconnects)
	}
	// Overflow persists until the backlog fully drains so callers can see
	// that payloads were lost during the outage.
	if t.state == backend.StateDisconnected {
		t.setStateLocked(backend.StateConnected)
	}
	return true
}

// drainLocked flushes buffered payloads oldest first. Each payload is removed
// only after its write succeeds, so a mid-drain failure keeps the failed
// payload at the head for the next attempt.
func (t *Transport) drainLocked() {
	for t.conn.connected() {
		payload, ok := t.buffer.peek()
		if !ok {
			break
		}
		if err := t.conn.write(payload); err != nil {
			t.log.Debug("Drain interrupted", logging.LogFields{
				"remaining": t.buffer.len(),
			})
			t.setStateLocked(backend.StateDisconnected)
			t.metrics.recordDepth(t.buffer.len())
			return
		}
		t.buffer.pop()
		t.sent++
		t.metrics.recordSent()
	}

	t.metrics.recordDepth(t.buffer.len())
	if t.buffer.len() == 0 && t.state == backend.StateOverflow {
		t.setStateLocked(backend.StateConnected)
		t.overflows = 0
	}
}

func (t *Transport) setStateLocked(next backend.ConnectionState) {
	if t.state == next {
		return
	}
	prev := t.state
	t.state = next
	t.metrics.recordState(next)
	if t.hooks.OnStateChange != nil {
		t.hooks.OnStateChange(prev, next)
	}
}
