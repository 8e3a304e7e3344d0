// Package http provides a delivery backend that posts envelopes to a remote
// collector endpoint over HTTP.
package http

import (
	"context"
	"fmt"
	net_http "net/http"

	"github.com/ThreeDotsLabs/watermill"
	wmhttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sidewire/sidewire/backend"
)

// BackendName is the config value selecting this backend.
const BackendName = "http"

// IngestTopic is the path suffix appended to the configured endpoint.
const IngestTopic = "telemetry"

func init() {
	backend.RegisterWithCapabilities(BackendName, Build, backend.HTTPCapabilities)
}

// PublisherFactory creates the underlying watermill publisher. Exposed as a
// variable so tests can substitute a mock publisher.
var PublisherFactory = func(config wmhttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return wmhttp.NewPublisher(config, logger)
}

// Build creates the HTTP exporter from config. It satisfies backend.Builder.
func Build(ctx context.Context, cfg backend.Config, logger watermill.LoggerAdapter) (backend.Backend, error) {
	endpoint := cfg.GetHTTPEndpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("http backend: endpoint is required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	publisher, err := PublisherFactory(
		wmhttp.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*net_http.Request, error) {
				url := endpoint + "/" + topic
				return wmhttp.DefaultMarshalMessageFunc(url, msg)
			},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Exporter{publisher: publisher}, nil
}

// Exporter delivers each payload as one HTTP request. There is no local
// buffering; a failed request drops the payload.
type Exporter struct {
	publisher message.Publisher
}

// Emit posts one payload to the collector endpoint.
func (e *Exporter) Emit(payload []byte) (backend.Result, error) {
	if len(payload) == 0 {
		return backend.ResultDropped, backend.ErrEmptyPayload
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := e.publisher.Publish(IngestTopic, msg); err != nil {
		return backend.ResultDropped, err
	}
	return backend.ResultDelivered, nil
}

// Close shuts down the underlying publisher.
func (e *Exporter) Close(ctx context.Context) error {
	return e.publisher.Close()
}
