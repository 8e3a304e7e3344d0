package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by the getter methods when a field is left at its zero
// value. Matching the sidecar collector's own defaults.
const (
	DefaultBackend        = "sidecar"
	DefaultSidecarHost    = "localhost"
	DefaultSidecarPort    = 17000
	DefaultBufferCapacity = 1000
	DefaultMaxMessageSize = 65536
	DefaultDialTimeout    = 5 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultBackoffFloor   = 1 * time.Second
	DefaultBackoffCeiling = 30 * time.Second
	DefaultFileMaxBytes   = 100 * 1024 * 1024
	DefaultFileMaxBackups = 3
	DefaultReloadInterval = 30 * time.Second
)

// Config groups the telemetry delivery settings required to initialise a
// Client. Each backend only uses the keys that are relevant to it.
type Config struct {
	// Source identifies the emitting component in every envelope.
	Source string

	// Backend selects the delivery mechanism. Supported values: "sidecar",
	// "file", "http", "channel". Empty defaults to "sidecar".
	Backend string

	// Sidecar configuration.
	SidecarHost string
	SidecarPort int

	// DialTimeout bounds each connection attempt to the collector.
	DialTimeout time.Duration
	// WriteTimeout bounds each socket write.
	WriteTimeout time.Duration

	// BufferCapacity is the maximum number of payloads held in memory while
	// the collector is unreachable.
	BufferCapacity int
	// MaxMessageSize is the largest accepted payload in bytes.
	MaxMessageSize int

	// Backoff tuning for reconnect attempts. Zero values fall back to the
	// defaults above.
	BackoffFloor   time.Duration
	BackoffCeiling time.Duration
	// BackoffJitter randomises reconnect delays to avoid thundering herds
	// when many clients lose the same collector.
	BackoffJitter bool

	// File backend configuration.
	FilePath       string
	FileMaxBytes   int64
	FileMaxBackups int

	// HTTP backend configuration.
	// HTTPEndpoint is the base URL where envelopes will be posted.
	HTTPEndpoint string

	// Metrics configuration.
	MetricsEnabled bool

	// Runtime configuration file, polled for changes while the client runs.
	RuntimeConfigPath string
	ReloadInterval    time.Duration
}

// Getter methods to implement backend.Config interface. They fold in the
// documented defaults so backends never see zero values.
func (c *Config) GetSource() string { return c.Source }

func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return DefaultBackend
	}
	return c.Backend
}

func (c *Config) GetSidecarAddress() string {
	host := c.SidecarHost
	if host == "" {
		host = DefaultSidecarHost
	}
	port := c.SidecarPort
	if port == 0 {
		port = DefaultSidecarPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Config) GetDialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return DefaultDialTimeout
	}
	return c.DialTimeout
}

func (c *Config) GetWriteTimeout() time.Duration {
	if c.WriteTimeout <= 0 {
		return DefaultWriteTimeout
	}
	return c.WriteTimeout
}

func (c *Config) GetBufferCapacity() int {
	if c.BufferCapacity <= 0 {
		return DefaultBufferCapacity
	}
	return c.BufferCapacity
}

func (c *Config) GetMaxMessageSize() int {
	if c.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

func (c *Config) GetBackoffFloor() time.Duration {
	if c.BackoffFloor <= 0 {
		return DefaultBackoffFloor
	}
	return c.BackoffFloor
}

func (c *Config) GetBackoffCeiling() time.Duration {
	if c.BackoffCeiling <= 0 {
		return DefaultBackoffCeiling
	}
	return c.BackoffCeiling
}

func (c *Config) GetBackoffJitter() bool { return c.BackoffJitter }

func (c *Config) GetFilePath() string { return c.FilePath }

func (c *Config) GetFileMaxBytes() int64 {
	if c.FileMaxBytes <= 0 {
		return DefaultFileMaxBytes
	}
	return c.FileMaxBytes
}

func (c *Config) GetFileMaxBackups() int {
	if c.FileMaxBackups <= 0 {
		return DefaultFileMaxBackups
	}
	return c.FileMaxBackups
}

func (c *Config) GetHTTPEndpoint() string { return c.HTTPEndpoint }

func (c *Config) GetReloadInterval() time.Duration {
	if c.ReloadInterval <= 0 {
		return DefaultReloadInterval
	}
	return c.ReloadInterval
}

// Validate checks that the configuration has all required fields for the
// selected backend. Returns an error describing any missing or invalid
// configuration. Validation of backend names is lenient to allow custom
// registered backends.
func (c *Config) Validate() error {
	var errs []error

	if c.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}

	errs = append(errs, c.validateBackend()...)
	errs = append(errs, c.validateLimits()...)
	errs = append(errs, c.validateBackoff()...)

	return errors.Join(errs...)
}

// validateBackend checks backend-specific required fields.
func (c *Config) validateBackend() []error {
	switch strings.ToLower(c.GetBackend()) {
	case "sidecar":
		if c.SidecarPort < 0 || c.SidecarPort > 65535 {
			return []error{fmt.Errorf("sidecar: invalid port %d", c.SidecarPort)}
		}
	case "file":
		if c.FilePath == "" {
			return []error{errors.New("file: path is required")}
		}
	case "http":
		if c.HTTPEndpoint == "" {
			return []error{errors.New("http: endpoint is required")}
		}
	}
	// channel and custom backends have no required config
	return nil
}

// validateLimits checks buffer and payload size values.
func (c *Config) validateLimits() []error {
	var errs []error
	if c.BufferCapacity < 0 {
		errs = append(errs, errors.New("buffer: capacity cannot be negative"))
	}
	if c.MaxMessageSize < 0 {
		errs = append(errs, errors.New("buffer: max message size cannot be negative"))
	}
	return errs
}

// validateBackoff checks reconnect backoff values.
func (c *Config) validateBackoff() []error {
	var errs []error
	if c.BackoffFloor < 0 {
		errs = append(errs, errors.New("backoff: floor cannot be negative"))
	}
	if c.BackoffCeiling < 0 {
		errs = append(errs, errors.New("backoff: ceiling cannot be negative"))
	}
	if c.BackoffFloor > 0 && c.BackoffCeiling > 0 && c.BackoffFloor > c.BackoffCeiling {
		errs = append(errs, errors.New("backoff: floor cannot exceed ceiling"))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
// Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
