package sidewire

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	backendpkg "github.com/sidewire/sidewire/backend"
	"github.com/sidewire/sidewire/backend/channel"
	"github.com/sidewire/sidewire/backend/file"
	httpbackend "github.com/sidewire/sidewire/backend/http"
	"github.com/sidewire/sidewire/backend/sidecar"
	runtimepkg "github.com/sidewire/sidewire/internal/runtime"
	configpkg "github.com/sidewire/sidewire/internal/runtime/config"
	errspkg "github.com/sidewire/sidewire/internal/runtime/errors"
	idspkg "github.com/sidewire/sidewire/internal/runtime/ids"
	jsoncodec "github.com/sidewire/sidewire/internal/runtime/jsoncodec"
	loggingpkg "github.com/sidewire/sidewire/internal/runtime/logging"
	runtimeconfigpkg "github.com/sidewire/sidewire/internal/runtime/runtimeconfig"
	tracingpkg "github.com/sidewire/sidewire/internal/runtime/tracing"
	wirepkg "github.com/sidewire/sidewire/internal/runtime/wire"
)

type (
	Config = configpkg.Config

	Client     = runtimepkg.Client
	ClientDeps = runtimepkg.ClientDeps
	SpanOption = runtimepkg.SpanOption

	Transport        = runtimepkg.Transport
	TransportDeps    = runtimepkg.TransportDeps
	TransportHooks   = runtimepkg.TransportHooks
	TransportMetrics = runtimepkg.TransportMetrics

	Backend         = backendpkg.Backend
	BackendBuilder  = backendpkg.Builder
	BackendRegistry = backendpkg.Registry
	Capabilities    = backendpkg.Capabilities
	Result          = backendpkg.Result
	ConnectionState = backendpkg.ConnectionState
	Stats           = backendpkg.Stats

	Envelope     = wirepkg.Envelope
	EventData    = wirepkg.EventData
	MetricData   = wirepkg.MetricData
	ProgressData = wirepkg.ProgressData
	ResourceData = wirepkg.ResourceData
	SpanData     = wirepkg.SpanData

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	RuntimeSettings = runtimeconfigpkg.Settings
	RuntimeStatus   = runtimeconfigpkg.Status

	TracingBridge = tracingpkg.Bridge
)

// Connection states and emission results.
const (
	StateDisconnected = backendpkg.StateDisconnected
	StateConnected    = backendpkg.StateConnected
	StateOverflow     = backendpkg.StateOverflow

	ResultDelivered = backendpkg.ResultDelivered
	ResultBuffered  = backendpkg.ResultBuffered
	ResultDropped   = backendpkg.ResultDropped
)

// Wire protocol constants.
const (
	ProtocolVersion = wirepkg.ProtocolVersion

	TypeEvent    = wirepkg.TypeEvent
	TypeMetric   = wirepkg.TypeMetric
	TypeProgress = wirepkg.TypeProgress
	TypeResource = wirepkg.TypeResource
	TypeSpan     = wirepkg.TypeSpan
	TypeGoodbye  = wirepkg.TypeGoodbye
)

var (
	ValidateConfig = configpkg.ValidateConfig

	NewTransport        = runtimepkg.NewTransport
	NewTransportMetrics = runtimepkg.NewTransportMetrics
	WithTraceID         = runtimepkg.WithTraceID
	LoggingHooks        = runtimepkg.LoggingHooks

	// Backend registry. Custom backends register a builder under a name
	// and become selectable via Config.Backend.
	DefaultBackendRegistry = backendpkg.DefaultRegistry
	RegisterBackend        = backendpkg.Register
	BuildBackend           = backendpkg.Build
	GetCapabilities        = backendpkg.GetCapabilities

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NopLogger                 = loggingpkg.Nop

	NewTracingBridge = tracingpkg.NewBridge

	EncodeEnvelope = wirepkg.Encode
	DecodeEnvelope = wirepkg.Decode

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	NewID      = idspkg.NewID
	NewTraceID = idspkg.NewTraceID

	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrBackendRequired    = errspkg.ErrBackendRequired
	ErrSourceRequired     = errspkg.ErrSourceRequired
	ErrLevelRequired      = errspkg.ErrLevelRequired
	ErrMessageRequired    = errspkg.ErrMessageRequired
	ErrMetricNameRequired = errspkg.ErrMetricNameRequired
	ErrJobIDRequired      = errspkg.ErrJobIDRequired
	ErrSpanNameRequired   = errspkg.ErrSpanNameRequired
	ErrSpanIDRequired     = errspkg.ErrSpanIDRequired
	ErrIdentifierTooLong  = errspkg.ErrIdentifierTooLong

	ErrEmptyPayload    = backendpkg.ErrEmptyPayload
	ErrPayloadTooLarge = backendpkg.ErrPayloadTooLarge
	ErrBufferFull      = backendpkg.ErrBufferFull
	ErrNotConnected    = backendpkg.ErrNotConnected
	ErrClosed          = backendpkg.ErrClosed
)

// Built-in backend names, usable as Config.Backend values.
const (
	BackendSidecar = sidecar.BackendName
	BackendFile    = file.BackendName
	BackendHTTP    = httpbackend.BackendName
	BackendChannel = channel.BackendName
)

// Options tunes the optional collaborators assembled by New. The zero value
// is valid.
type Options struct {
	// Hooks receive transport lifecycle callbacks (sidecar backend only).
	Hooks TransportHooks

	// MetricsRegisterer receives the transport's Prometheus collectors when
	// Config.MetricsEnabled is set. Nil means prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer

	// TracerProvider enables mirroring of spans into OpenTelemetry.
	TracerProvider trace.TracerProvider

	// Backend overrides backend construction entirely. Config.Backend is
	// ignored when set.
	Backend Backend
}

// New assembles a Client from config: it builds the configured backend,
// wires up metrics, runtime config reloading, and span mirroring, and
// attempts the initial collector connection.
func New(conf *Config, log ServiceLogger, opts Options) (*Client, error) {
	if conf == nil {
		return nil, ErrConfigRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = NopLogger()
	}

	be := opts.Backend
	if be == nil {
		var err error
		be, err = buildBackend(conf, log, opts)
		if err != nil {
			return nil, err
		}
	}

	var reloader *runtimeconfigpkg.Reloader
	if conf.RuntimeConfigPath != "" {
		reloader = runtimeconfigpkg.NewReloader(conf.RuntimeConfigPath, conf.GetReloadInterval(), log)
	}

	var bridge *tracingpkg.Bridge
	if opts.TracerProvider != nil {
		bridge = tracingpkg.NewBridge(opts.TracerProvider)
	}

	return runtimepkg.NewClient(conf.Source, ClientDeps{
		Backend: be,
		Logger:  log,
		Runtime: reloader,
		Tracing: bridge,
	})
}

func buildBackend(conf *Config, log ServiceLogger, opts Options) (Backend, error) {
	// The sidecar transport takes hooks and metrics that the registry
	// builder signature cannot carry, so it is constructed directly.
	if conf.GetBackend() == sidecar.BackendName {
		deps := TransportDeps{
			Hooks:  opts.Hooks,
			Logger: log,
		}
		if conf.MetricsEnabled {
			m := NewTransportMetrics(opts.MetricsRegisterer)
			if err := m.Register(); err != nil {
				return nil, err
			}
			deps.Metrics = m
		}
		return NewTransport(conf, deps)
	}

	return BuildBackend(context.Background(), conf, loggingpkg.NewWatermillAdapter(log))
}
