package runtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sidewire/sidewire/backend"
)

// Drop reasons used as the "reason" label on the dropped counter.
const (
	dropReasonOverflow = "overflow"
	dropReasonOversize = "oversize"
)

// TransportMetrics exports transport counters to Prometheus. The transport
// keeps its own authoritative counters; these collectors mirror them for
// scraping.
type TransportMetrics struct {
	mu sync.Mutex

	sentTotal       prometheus.Counter
	bufferedTotal   prometheus.Counter
	droppedTotal    *prometheus.CounterVec
	reconnectsTotal prometheus.Counter
	overflowsTotal  prometheus.Counter
	bufferDepth     prometheus.Gauge
	connectionState prometheus.Gauge

	registerer prometheus.Registerer
	registered bool
}

func newTransportCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sidewire",
		Subsystem: "transport",
		Name:      name,
		Help:      help,
	})
}

func newTransportGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sidewire",
		Subsystem: "transport",
		Name:      name,
		Help:      help,
	})
}

// NewTransportMetrics creates the transport metric collectors.
func NewTransportMetrics(registerer prometheus.Registerer) *TransportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &TransportMetrics{
		registerer:    registerer,
		sentTotal:     newTransportCounter("sent_total", "Total number of payloads delivered to the collector"),
		bufferedTotal: newTransportCounter("buffered_total", "Total number of payloads queued while the collector was unreachable"),
		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sidewire",
				Subsystem: "transport",
				Name:      "dropped_total",
				Help:      "Total number of payloads discarded, by reason",
			},
			[]string{"reason"},
		),
		reconnectsTotal: newTransportCounter("reconnects_total", "Total number of collector connections established"),
		overflowsTotal:  newTransportCounter("overflows_total", "Total number of times the buffer reached capacity"),
		bufferDepth:     newTransportGauge("buffer_depth", "Current number of payloads waiting in the buffer"),
		connectionState: newTransportGauge("connection_state", "Current connection state (0=disconnected, 1=connected, 2=overflow)"),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *TransportMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.sentTotal,
		m.bufferedTotal,
		m.droppedTotal,
		m.reconnectsTotal,
		m.overflowsTotal,
		m.bufferDepth,
		m.connectionState,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

func (m *TransportMetrics) recordSent() {
	if m == nil {
		return
	}
	m.sentTotal.Inc()
}

func (m *TransportMetrics) recordBuffered(depth int) {
	if m == nil {
		return
	}
	m.bufferedTotal.Inc()
	m.bufferDepth.Set(float64(depth))
}

func (m *TransportMetrics) recordDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *TransportMetrics) recordReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

func (m *TransportMetrics) recordOverflow() {
	if m == nil {
		return
	}
	m.overflowsTotal.Inc()
}

func (m *TransportMetrics) recordDepth(depth int) {
	if m == nil {
		return
	}
	m.bufferDepth.Set(float64(depth))
}

func (m *TransportMetrics) recordState(state backend.ConnectionState) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}
