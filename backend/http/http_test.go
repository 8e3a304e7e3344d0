package http

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	wmhttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidewire/sidewire/backend"
	"github.com/sidewire/sidewire/internal/runtime/config"
)

type mockPublisher struct {
	published  []*message.Message
	topics     []string
	publishErr error
	closed     bool
}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.topics = append(m.topics, topic)
	m.published = append(m.published, messages...)
	return nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

func withMockPublisher(t *testing.T, mock *mockPublisher) {
	t.Helper()
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })
	PublisherFactory = func(cfg wmhttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return mock, nil
	}
}

func TestBuildRequiresEndpoint(t *testing.T) {
	cfg := &config.Config{Source: "svc", Backend: BackendName}
	_, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.Error(t, err)
}

func TestExporterPublishesPayloads(t *testing.T) {
	mock := &mockPublisher{}
	withMockPublisher(t, mock)

	cfg := &config.Config{
		Source:       "svc",
		Backend:      BackendName,
		HTTPEndpoint: "http://collector.internal",
	}
	be, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)

	result, err := be.Emit([]byte(`{"type":"event"}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, backend.ResultDelivered, result)

	require.Len(t, mock.published, 1)
	assert.Equal(t, IngestTopic, mock.topics[0])
	assert.Equal(t, `{"type":"event"}`+"\n", string(mock.published[0].Payload))
	assert.NotEmpty(t, mock.published[0].UUID)
}

func TestExporterDropsOnPublishError(t *testing.T) {
	mock := &mockPublisher{publishErr: errors.New("collector unavailable")}
	withMockPublisher(t, mock)

	cfg := &config.Config{Source: "svc", Backend: BackendName, HTTPEndpoint: "http://x"}
	be, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)

	result, err := be.Emit([]byte("{}\n"))
	require.Error(t, err)
	assert.Equal(t, backend.ResultDropped, result)
}

func TestExporterRejectsEmptyPayload(t *testing.T) {
	mock := &mockPublisher{}
	withMockPublisher(t, mock)

	cfg := &config.Config{Source: "svc", Backend: BackendName, HTTPEndpoint: "http://x"}
	be, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)

	result, err := be.Emit(nil)
	assert.ErrorIs(t, err, backend.ErrEmptyPayload)
	assert.Equal(t, backend.ResultDropped, result)
	assert.Empty(t, mock.published)
}

func TestExporterClose(t *testing.T) {
	mock := &mockPublisher{}
	withMockPublisher(t, mock)

	cfg := &config.Config{Source: "svc", Backend: BackendName, HTTPEndpoint: "http://x"}
	be, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, be.Close(context.Background()))
	assert.True(t, mock.closed)
}

func TestPublisherFactoryErrorPropagates(t *testing.T) {
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })
	PublisherFactory = func(cfg wmhttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, errors.New("publisher error")
	}

	cfg := &config.Config{Source: "svc", Backend: BackendName, HTTPEndpoint: "http://x"}
	_, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher error")
}
