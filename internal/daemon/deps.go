// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server is the ingestion server owned by the manager. *proxy.Server
// satisfies it.
type Server interface {
	// Start blocks until Shutdown and returns nil after a clean stop.
	Start() error
	Shutdown(ctx context.Context) error
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	Server Server

	// MetricsHandler is served on MetricsAddr when both are set.
	MetricsHandler http.Handler
	MetricsAddr    string

	// ShutdownTimeout bounds graceful shutdown. Zero means 30s.
	ShutdownTimeout time.Duration
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Server == nil {
		return ErrMissingServer
	}
	return nil
}
