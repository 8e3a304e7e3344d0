// Package sidecar provides the default delivery backend: a buffered,
// self-reconnecting TCP connection to the local collector process.
package sidecar

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/sidewire/sidewire/backend"
	"github.com/sidewire/sidewire/internal/runtime"
	"github.com/sidewire/sidewire/internal/runtime/logging"
)

// BackendName is the config value selecting this backend.
const BackendName = "sidecar"

func init() {
	backend.RegisterWithCapabilities(BackendName, Build, backend.SidecarCapabilities)
}

// Build creates the sidecar transport from config. It satisfies
// backend.Builder.
func Build(ctx context.Context, cfg backend.Config, logger watermill.LoggerAdapter) (backend.Backend, error) {
	deps := runtime.TransportDeps{}
	if logger != nil {
		deps.Logger = logging.NewWatermillServiceLogger(logger)
	}
	return runtime.NewTransport(cfg, deps)
}
