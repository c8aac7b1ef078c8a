// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/metrics"
	"github.com/biketrack/biketrack/internal/secrets"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of file events into a single reload.
const DefaultDebounce = 500 * time.Millisecond

// Holder holds the proxy configuration and swaps it atomically on reload.
// A failed reload keeps the previous configuration.
type Holder struct {
	mu       sync.RWMutex
	current  Config
	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration

	subMu       sync.RWMutex
	subscribers []chan<- Config
}

// NewHolder creates a holder seeded with an already validated configuration.
func NewHolder(initial Config, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: DefaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the configuration again. Subscribers are
// notified only when the new configuration was applied.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	metrics.IncConfigReload(err == nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notify(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// Watch reloads the configuration whenever its file changes and blocks until
// ctx is cancelled. The parent directory is watched so that atomic
// replacements (write to temp file, rename) are seen as well.
// Without a config file Watch just waits for ctx.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		<-ctx.Done()
		return nil
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	timer := time.NewTimer(h.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str("event", "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")
			timer.Reset(h.debounce)

		case <-timer.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str("event", "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Subscribe registers a channel that receives every applied configuration.
// Sends never block; a full channel misses the update.
func (h *Holder) Subscribe(ch chan<- Config) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.subscribers = append(h.subscribers, ch)
}

func (h *Holder) notify(cfg Config) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, newCfg Config) {
	if old.Supabase.URL != newCfg.Supabase.URL {
		h.logger.Info().
			Str("old", secrets.MaskURL(old.Supabase.URL)).
			Str("new", secrets.MaskURL(newCfg.Supabase.URL)).
			Msg("config changed: supabase.url")
	}
	if old.Supabase.AnonKey != newCfg.Supabase.AnonKey {
		h.logger.Info().Msg("config changed: supabase.anonKey")
	}
	if old.Supabase.Table != newCfg.Supabase.Table {
		h.logger.Info().
			Str("old", old.Supabase.Table).
			Str("new", newCfg.Supabase.Table).
			Msg("config changed: supabase.table")
	}
	if old.RateLimit != newCfg.RateLimit {
		h.logger.Info().
			Int("old", old.RateLimit).
			Int("new", newCfg.RateLimit).
			Msg("config changed: rateLimit")
	}
	if old.ForwardRPS != newCfg.ForwardRPS {
		h.logger.Info().
			Float64("old", old.ForwardRPS).
			Float64("new", newCfg.ForwardRPS).
			Msg("config changed: forwardRps")
	}
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().
			Str("old", old.LogLevel).
			Str("new", newCfg.LogLevel).
			Msg("config changed: logLevel")
	}
	if old.Listen != newCfg.Listen || old.MetricsAddr != newCfg.MetricsAddr {
		h.logger.Warn().Msg("listen address changes take effect after restart")
	}
}
