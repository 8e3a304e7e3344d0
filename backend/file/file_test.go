package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidewire/sidewire/backend"
	"github.com/sidewire/sidewire/internal/runtime/config"
)

func TestWriterAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.ndjson")
	w := NewWriter(path, 0, 0)
	defer w.Close(context.Background())

	for _, line := range []string{"{\"a\":1}\n", "{\"b\":2}\n"} {
		result, err := w.Emit([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, backend.ResultDelivered, result)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))
}

func TestWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.ndjson")
	line := strings.Repeat("x", 9) + "\n"

	// Two lines fit; the third triggers rotation.
	w := NewWriter(path, 25, 2)
	defer w.Close(context.Background())

	for i := 0; i < 3; i++ {
		_, err := w.Emit([]byte(line))
		require.NoError(t, err)
	}

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, line+line, string(rotated))

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, line, string(current))
}

func TestWriterDiscardsOldestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.ndjson")
	line := strings.Repeat("y", 19) + "\n"

	// Every line rotates; only one backup is kept.
	w := NewWriter(path, 20, 1)
	defer w.Close(context.Background())

	for i := 0; i < 4; i++ {
		_, err := w.Emit([]byte(line))
		require.NoError(t, err)
	}

	_, err := os.Stat(path + ".1")
	require.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.True(t, os.IsNotExist(err))
}

func TestWriterRejectsEmptyPayload(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "t.ndjson"), 0, 0)
	defer w.Close(context.Background())

	result, err := w.Emit(nil)
	assert.ErrorIs(t, err, backend.ErrEmptyPayload)
	assert.Equal(t, backend.ResultDropped, result)
}

func TestWriterEmitAfterClose(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "t.ndjson"), 0, 0)
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))

	result, err := w.Emit([]byte("late\n"))
	assert.ErrorIs(t, err, backend.ErrClosed)
	assert.Equal(t, backend.ResultDropped, result)
}

func TestBuildRequiresPath(t *testing.T) {
	cfg := &config.Config{Source: "svc", Backend: BackendName}
	_, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.Error(t, err)

	cfg.FilePath = filepath.Join(t.TempDir(), "out.ndjson")
	be, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)
	defer be.Close(context.Background())

	result, err := be.Emit([]byte("{}\n"))
	require.NoError(t, err)
	assert.Equal(t, backend.ResultDelivered, result)
}
