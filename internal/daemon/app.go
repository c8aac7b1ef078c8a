// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/biketrack/biketrack/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ApplyFunc pushes a reloaded configuration into the running services.
type ApplyFunc func(cfg config.Config) error

// App owns the long-lived runtime lifecycle (watcher, reload wiring) and
// delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	apply        ApplyFunc
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. holder and apply may be nil.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, apply ApplyFunc) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		apply:        apply,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		// The watcher is best-effort; the service keeps running without it.
		g.Go(func() error {
			if err := a.holder.Watch(gctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "config.watcher_failed").Msg("config watcher stopped")
			}
			return nil
		})
	}

	if a.holder != nil && a.apply != nil {
		applyCh := make(chan config.Config, 1)
		a.holder.Subscribe(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg := <-applyCh:
					if err := a.apply(cfg); err != nil {
						a.logger.Error().
							Err(err).
							Str("event", "config.apply_failed").
							Msg("reloaded config could not be applied")
					}
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-gctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.holder.Reload(gctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Main server lifecycle. It returns once ctx is done, which also stops
	// the helpers above.
	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	return g.Wait()
}
