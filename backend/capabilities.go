package backend

// Capabilities describes the delivery guarantees of a backend. Use this to
// introspect what a configured backend can promise at runtime.
type Capabilities struct {
	// Name is the registered name of the backend.
	Name string

	// Buffered indicates the backend queues payloads in memory across
	// collector outages instead of failing the caller.
	Buffered bool

	// Reconnects indicates the backend re-establishes its connection
	// after failures without caller involvement.
	Reconnects bool

	// Persistent indicates payloads survive a process restart once Emit
	// has returned ResultDelivered.
	Persistent bool

	// Ordered indicates payloads reach the collector in Emit order.
	Ordered bool

	// MaxMessageSize is the maximum payload size in bytes (0 = unknown).
	MaxMessageSize int64
}

// SurvivesOutage reports whether payloads emitted during a collector outage
// can still be delivered later.
func (c Capabilities) SurvivesOutage() bool {
	return c.Buffered && c.Reconnects
}

// Predefined capability sets for the built-in backends.
var (
	// SidecarCapabilities for the TCP sidecar backend.
	SidecarCapabilities = Capabilities{
		Name:           "sidecar",
		Buffered:       true,
		Reconnects:     true,
		Ordered:        true,
		MaxMessageSize: 65536,
	}

	// FileCapabilities for the rotating-file backend.
	FileCapabilities = Capabilities{
		Name:       "file",
		Persistent: true,
		Ordered:    true,
	}

	// HTTPCapabilities for the HTTP export backend.
	HTTPCapabilities = Capabilities{
		Name: "http",
	}

	// ChannelCapabilities for the in-memory channel backend.
	ChannelCapabilities = Capabilities{
		Name:    "channel",
		Ordered: true,
	}
)
