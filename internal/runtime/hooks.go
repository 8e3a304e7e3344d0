package runtime

import (
	"github.com/sidewire/sidewire/backend"
	"github.com/sidewire/sidewire/internal/runtime/logging"
)

// TransportHooks defines callbacks for transport lifecycle events.
// All hooks are optional - nil hooks are simply not called.
//
// Hooks run synchronously under the transport lock, so they must return
// quickly and must not call back into the transport.
type TransportHooks struct {
	// OnStateChange is called whenever the connection state transitions.
	OnStateChange func(prev, next backend.ConnectionState)

	// OnReconnect is called after a successful dial, with the total number
	// of connections established so far.
	OnReconnect func(total uint64)

	// OnDrop is called when a payload is discarded, with the total number
	// of drops so far.
	OnDrop func(total uint64)
}

// Merge combines two TransportHooks, creating a new TransportHooks that calls
// both. The hooks from 'other' are called after the hooks from 'h'.
func (h TransportHooks) Merge(other TransportHooks) TransportHooks {
	return TransportHooks{
		OnStateChange: chainStateHooks(h.OnStateChange, other.OnStateChange),
		OnReconnect:   chainCountHooks(h.OnReconnect, other.OnReconnect),
		OnDrop:        chainCountHooks(h.OnDrop, other.OnDrop),
	}
}

func chainStateHooks(a, b func(backend.ConnectionState, backend.ConnectionState)) func(backend.ConnectionState, backend.ConnectionState) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(prev, next backend.ConnectionState) {
		a(prev, next)
		b(prev, next)
	}
}

func chainCountHooks(a, b func(uint64)) func(uint64) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(total uint64) {
		a(total)
		b(total)
	}
}

// LoggingHooks returns pre-built hooks that log transport lifecycle events.
func LoggingHooks(logger logging.ServiceLogger) TransportHooks {
	return TransportHooks{
		OnStateChange: func(prev, next backend.ConnectionState) {
			logger.Info("Connection state changed", logging.LogFields{
				"prev": prev.String(),
				"next": next.String(),
			})
		},
		OnReconnect: func(total uint64) {
			logger.Info("Collector connection established", logging.LogFields{
				"reconnects": total,
			})
		},
		OnDrop: func(total uint64) {
			logger.Info("Payload dropped", logging.LogFields{
				"dropped": total,
			})
		},
	}
}
