// Package runtimeconfig polls a JSON settings file so operators can tune a
// running client without restarting it.
package runtimeconfig

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/sidewire/sidewire/internal/runtime/jsoncodec"
	"github.com/sidewire/sidewire/internal/runtime/logging"
)

// Settings are the operator-tunable knobs read from the config file.
type Settings struct {
	// Enabled gates all telemetry emission. Disabled clients drop records
	// locally without touching the transport.
	Enabled bool `json:"enabled"`

	// SampleRate keeps this fraction of records, 0.0 to 1.0.
	SampleRate float64 `json:"sample_rate"`
}

// DefaultSettings emits everything.
func DefaultSettings() Settings {
	return Settings{Enabled: true, SampleRate: 1.0}
}

// Status reports the reloader's view of the config file.
type Status struct {
	Path       string    `json:"path"`
	LastLoaded time.Time `json:"last_loaded,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Settings   Settings  `json:"settings"`
}

// Reloader watches a settings file by polling its modification time. A
// missing or unparseable file keeps the previous settings.
type Reloader struct {
	path     string
	interval time.Duration
	log      logging.ServiceLogger

	mu        sync.RWMutex
	settings  Settings
	lastMod   time.Time
	lastLoad  time.Time
	lastError error

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewReloader creates a reloader for the given path and performs an initial
// load. An empty path yields a static reloader pinned to the defaults.
func NewReloader(path string, interval time.Duration, log logging.ServiceLogger) *Reloader {
	if log == nil {
		log = logging.Nop()
	}
	r := &Reloader{
		path:     path,
		interval: interval,
		log:      log,
		settings: DefaultSettings(),
	}
	if path != "" {
		r.Reload()
	}
	return r
}

// Start launches the polling goroutine. No-op when no path is configured.
func (r *Reloader) Start() {
	if r.path == "" {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop()
}

// Stop terminates the polling goroutine. Safe to call multiple times and
// without a prior Start.
func (r *Reloader) Stop() {
	if r.stop == nil {
		return
	}
	r.once.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Reloader) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Reload()
		}
	}
}

// Reload re-reads the settings file if its modification time changed.
func (r *Reloader) Reload() {
	info, err := os.Stat(r.path)
	if err != nil {
		r.setError(fmt.Errorf("stat runtime config: %w", err))
		return
	}

	r.mu.RLock()
	unchanged := info.ModTime().Equal(r.lastMod)
	r.mu.RUnlock()
	if unchanged {
		return
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.setError(fmt.Errorf("read runtime config: %w", err))
		return
	}

	settings := DefaultSettings()
	if err := jsoncodec.Unmarshal(data, &settings); err != nil {
		r.setError(fmt.Errorf("parse runtime config: %w", err))
		return
	}
	if settings.SampleRate < 0 {
		settings.SampleRate = 0
	}
	if settings.SampleRate > 1 {
		settings.SampleRate = 1
	}

	r.mu.Lock()
	r.settings = settings
	r.lastMod = info.ModTime()
	r.lastLoad = time.Now()
	r.lastError = nil
	r.mu.Unlock()

	r.log.Info("Runtime config reloaded", logging.LogFields{
		"path":        r.path,
		"enabled":     settings.Enabled,
		"sample_rate": settings.SampleRate,
	})
}

func (r *Reloader) setError(err error) {
	r.mu.Lock()
	r.lastError = err
	r.mu.Unlock()
	r.log.Debug("Runtime config unavailable, keeping previous settings", logging.LogFields{
		"path": r.path,
	})
}

// Settings returns the current settings.
func (r *Reloader) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Status returns the reloader state for diagnostics.
func (r *Reloader) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Status{
		Path:       r.path,
		LastLoaded: r.lastLoad,
		Settings:   r.settings,
	}
	if r.lastError != nil {
		s.LastError = r.lastError.Error()
	}
	return s
}

// Allow reports whether the next record should be emitted, applying the
// enabled gate and the sampling rate.
func (r *Reloader) Allow() bool {
	s := r.Settings()
	if !s.Enabled {
		return false
	}
	if s.SampleRate >= 1.0 {
		return true
	}
	if s.SampleRate <= 0 {
		return false
	}
	return rand.Float64() < s.SampleRate
}
