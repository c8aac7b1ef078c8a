// SPDX-License-Identifier: MIT

// Package daemon owns the runtime lifecycle of the ingestion proxy: server
// start and graceful shutdown, shutdown hooks and config reload wiring.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle: starting servers, handling shutdown.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown.
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers.
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown.
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	deps            Deps
	shutdownTimeout time.Duration
	logger          zerolog.Logger

	mu            sync.Mutex
	started       bool
	stopping      bool
	metricsServer *http.Server
	shutdownHooks []namedHook
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager checks deps and returns a manager that has not started yet.
func NewManager(deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	timeout := deps.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &manager{
		deps:            deps,
		shutdownTimeout: timeout,
		logger:          deps.Logger.With().Str(xglog.FieldComponent, "manager").Logger(),
	}, nil
}

// Start binds the metrics listener, starts the ingestion server and blocks
// until ctx ends or a server fails. Either way it shuts everything down
// before returning.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("manager already started")
	}

	// Bind before anything runs so a busy metrics port fails the start
	// instead of surfacing later as a background error.
	var metricsLn net.Listener
	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		ln, err := net.Listen("tcp", m.deps.MetricsAddr)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("metrics listen on %s: %w", m.deps.MetricsAddr, err)
		}
		metricsLn = ln
		m.metricsServer = &http.Server{
			Handler:           m.deps.MetricsHandler,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	m.started = true
	metricsServer := m.metricsServer
	m.mu.Unlock()

	m.logger.Info().
		Str(xglog.FieldEvent, "daemon.starting").
		Str("metrics_addr", m.deps.MetricsAddr).
		Dur("shutdown_timeout", m.shutdownTimeout).
		Msg("starting daemon manager")

	errCh := make(chan error, 2)
	if metricsServer != nil {
		go func() {
			m.logger.Info().Str("addr", metricsLn.Addr().String()).Msg("metrics server listening")
			if err := metricsServer.Serve(metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}
	go func() {
		if err := m.deps.Server.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		m.logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.server_failed").Msg("server error, initiating shutdown")
		if shutdownErr := m.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str(xglog.FieldEvent, "daemon.stopping").Msg("shutdown signal received")
		return m.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown stops the ingestion server, then the metrics server, then runs
// the hooks newest first. It is bounded by the shutdown timeout whatever
// the caller's deadline, and only the first call does any work.
func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown context is nil")
	}

	m.mu.Lock()
	switch {
	case m.stopping:
		m.mu.Unlock()
		return nil
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	metricsServer := m.metricsServer
	hooks := slices.Clone(m.shutdownHooks)
	m.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := m.deps.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("ingestion server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	slices.Reverse(hooks)
	errs = append(errs, m.runHooks(shutdownCtx, hooks)...)

	if err := errors.Join(errs...); err != nil {
		m.logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.stopped").Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown: %w", err)
	}
	m.logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("daemon manager stopped cleanly")
	return nil
}

func (m *manager) runHooks(ctx context.Context, hooks []namedHook) []error {
	var errs []error
	for _, h := range hooks {
		start := time.Now()
		err := h.hook(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook finished")
	}
	return errs
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{
		name: name,
		hook: hook,
	})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
