// Package channel provides an in-memory delivery backend backed by a
// watermill gochannel Pub/Sub. Intended for tests and embedded collectors
// running in the same process.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/sidewire/sidewire/backend"
)

// BackendName is the config value selecting this backend.
const BackendName = "channel"

// Topic is the in-memory topic carrying envelopes.
const Topic = "telemetry"

func init() {
	backend.RegisterWithCapabilities(BackendName, Build, backend.ChannelCapabilities)
}

// Build creates the in-memory backend. It satisfies backend.Builder.
func Build(ctx context.Context, cfg backend.Config, logger watermill.LoggerAdapter) (backend.Backend, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return New(logger), nil
}

// PubSub delivers payloads to in-process subscribers.
type PubSub struct {
	pubsub *gochannel.GoChannel
}

// New creates an in-memory backend with its own gochannel Pub/Sub.
func New(logger watermill.LoggerAdapter) *PubSub {
	return &PubSub{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, logger),
	}
}

// Emit publishes one payload to the telemetry topic.
func (p *PubSub) Emit(payload []byte) (backend.Result, error) {
	if len(payload) == 0 {
		return backend.ResultDropped, backend.ErrEmptyPayload
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pubsub.Publish(Topic, msg); err != nil {
		return backend.ResultDropped, err
	}
	return backend.ResultDelivered, nil
}

// Subscribe returns the stream of emitted payloads. Call before emitting;
// the gochannel Pub/Sub does not replay.
func (p *PubSub) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, Topic)
}

// Close shuts down the Pub/Sub and its subscribers.
func (p *PubSub) Close(ctx context.Context) error {
	return p.pubsub.Close()
}
