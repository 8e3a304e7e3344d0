// Package file provides a delivery backend that appends envelopes to a local
// newline-delimited JSON file with size-based rotation. Useful when no
// collector runs on the host.
package file

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/sidewire/sidewire/backend"
)

// BackendName is the config value selecting this backend.
const BackendName = "file"

func init() {
	backend.RegisterWithCapabilities(BackendName, Build, backend.FileCapabilities)
}

// Build creates the file writer from config. It satisfies backend.Builder.
func Build(ctx context.Context, cfg backend.Config, logger watermill.LoggerAdapter) (backend.Backend, error) {
	path := cfg.GetFilePath()
	if path == "" {
		return nil, fmt.Errorf("file backend: path is required")
	}
	return NewWriter(path, cfg.GetFileMaxBytes(), cfg.GetFileMaxBackups()), nil
}

// Writer appends payloads to a file, rotating when it exceeds maxBytes.
// Rotation shifts path.1 -> path.2 and so on, keeping maxBackups files.
type Writer struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	file       *os.File
	size       int64
	closed     bool
}

// NewWriter creates a writer. The file is opened lazily on first Emit.
func NewWriter(path string, maxBytes int64, maxBackups int) *Writer {
	return &Writer{
		path:       path,
		maxBytes:   maxBytes,
		maxBackups: maxBackups,
	}
}

// Emit appends one payload. The payload is expected to carry its own
// newline framing.
func (w *Writer) Emit(payload []byte) (backend.Result, error) {
	if len(payload) == 0 {
		return backend.ResultDropped, backend.ErrEmptyPayload
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return backend.ResultDropped, backend.ErrClosed
	}

	if err := w.openLocked(); err != nil {
		return backend.ResultDropped, err
	}

	if w.maxBytes > 0 && w.size+int64(len(payload)) > w.maxBytes {
		if err := w.rotateLocked(); err != nil {
			return backend.ResultDropped, err
		}
	}

	n, err := w.file.Write(payload)
	w.size += int64(n)
	if err != nil {
		return backend.ResultDropped, err
	}
	return backend.ResultDelivered, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) openLocked() error {
	if w.file != nil {
		return nil
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *Writer) rotateLocked() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	// Shift existing backups up, discarding the oldest.
	for i := w.maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", w.path, i)
		to := fmt.Sprintf("%s.%d", w.path, i+1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return err
			}
		}
	}
	if w.maxBackups > 0 {
		if err := os.Rename(w.path, w.path+".1"); err != nil {
			return err
		}
	} else {
		if err := os.Remove(w.path); err != nil {
			return err
		}
	}

	return w.openLocked()
}
