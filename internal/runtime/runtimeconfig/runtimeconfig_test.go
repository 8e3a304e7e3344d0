package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func writeSettings(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func TestReloaderLoadsInitialSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettings(t, path, `{"enabled": false, "sample_rate": 0.5}`)

	r := NewReloader(path, time.Minute, nil)

	s := r.Settings()
	if s.Enabled {
		t.Error("expected disabled")
	}
	if s.SampleRate != 0.5 {
		t.Errorf("expected sample rate 0.5, got %v", s.SampleRate)
	}

	status := r.Status()
	if status.Path != path || status.LastError != "" {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.LastLoaded.IsZero() {
		t.Error("expected load timestamp")
	}
}

func TestReloaderKeepsPreviousSettingsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettings(t, path, `{"enabled": true, "sample_rate": 1.0}`)

	r := NewReloader(path, time.Minute, nil)

	writeSettings(t, path, `{broken`)
	// Push the mtime forward so the poll sees a change.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	r.Reload()

	if !r.Settings().Enabled {
		t.Error("broken file must not clobber previous settings")
	}
	if r.Status().LastError == "" {
		t.Error("expected recorded parse error")
	}
}

func TestReloaderPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettings(t, path, `{"enabled": true, "sample_rate": 1.0}`)

	r := NewReloader(path, time.Minute, nil)

	writeSettings(t, path, `{"enabled": false, "sample_rate": 1.0}`)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	r.Reload()

	if r.Settings().Enabled {
		t.Error("expected reloaded settings")
	}
}

func TestReloaderClampsSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettings(t, path, `{"enabled": true, "sample_rate": 7.5}`)

	r := NewReloader(path, time.Minute, nil)
	if got := r.Settings().SampleRate; got != 1.0 {
		t.Errorf("expected clamped sample rate 1.0, got %v", got)
	}
}

func TestReloaderMissingFileKeepsDefaults(t *testing.T) {
	r := NewReloader(filepath.Join(t.TempDir(), "nope.json"), time.Minute, nil)

	if r.Settings() != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", r.Settings())
	}
	if r.Status().LastError == "" {
		t.Error("expected recorded stat error")
	}
}

func TestAllowGating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	writeSettings(t, path, `{"enabled": false, "sample_rate": 1.0}`)
	r := NewReloader(path, time.Minute, nil)
	if r.Allow() {
		t.Error("disabled settings must not allow")
	}

	writeSettings(t, path, `{"enabled": true, "sample_rate": 0}`)
	future := time.Now().Add(time.Hour)
	os.Chtimes(path, future, future)
	r.Reload()
	if r.Allow() {
		t.Error("zero sample rate must not allow")
	}

	writeSettings(t, path, `{"enabled": true, "sample_rate": 1.0}`)
	future = future.Add(time.Hour)
	os.Chtimes(path, future, future)
	r.Reload()
	if !r.Allow() {
		t.Error("full sample rate must allow")
	}
}

func TestStartStopLeaksNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettings(t, path, `{"enabled": true, "sample_rate": 1.0}`)

	r := NewReloader(path, 10*time.Millisecond, nil)
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	r.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	r := NewReloader("", time.Minute, nil)
	r.Start()
	r.Stop()
	if !r.Settings().Enabled {
		t.Error("empty path must pin defaults")
	}
}
