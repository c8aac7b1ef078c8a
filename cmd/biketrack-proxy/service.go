// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/biketrack/biketrack/internal/config"
	"github.com/biketrack/biketrack/internal/daemon"
	"github.com/biketrack/biketrack/internal/kvstore"
	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/proxy"
	"github.com/biketrack/biketrack/internal/supabase"
	"github.com/biketrack/biketrack/internal/telemetry"
	"github.com/rs/zerolog"
)

const serviceName = "biketrack-proxy"

// service holds the runtime pieces built from one configuration. apply
// rebuilds the parts that may change on reload.
type service struct {
	logger zerolog.Logger
	server *proxy.Server
	tracer *telemetry.Provider

	mu       sync.Mutex
	listen   string
	storeDSN string
	store    kvstore.Store
}

func newService(ctx context.Context, cfg config.Config) (*service, error) {
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	s := &service{
		logger: xglog.WithComponent("service"),
		tracer: tp,
		listen: cfg.Listen,
	}

	if err := s.openStore(ctx, cfg.DeviceStore); err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	pcfg, err := s.proxyConfig(cfg)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	srv, err := proxy.New(pcfg)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("create proxy: %w", err)
	}
	s.server = srv
	return s, nil
}

func (s *service) proxyConfig(cfg config.Config) (proxy.Config, error) {
	client, err := supabase.New(supabase.Config{
		URL:     cfg.Supabase.URL,
		APIKey:  cfg.Supabase.AnonKey,
		Timeout: cfg.Supabase.Timeout,
		RPS:     cfg.ForwardRPS,
		Burst:   max(1, int(cfg.ForwardRPS)),
	})
	if err != nil {
		return proxy.Config{}, err
	}

	tracing := ""
	if s.tracer.Enabled() {
		tracing = serviceName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pcfg := proxy.Config{
		ListenAddr:     cfg.Listen,
		Table:          cfg.Supabase.Table,
		Forwarder:      client,
		RateLimit:      cfg.RateLimit,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TracingService: tracing,
		ServeMetrics:   cfg.MetricsAddr == "",
		Version:        cfg.Version,
	}
	if s.store != nil {
		pcfg.Devices = s.store
	}
	return pcfg, nil
}

func (s *service) openStore(ctx context.Context, dsn string) error {
	if dsn == "" {
		return nil
	}
	store, err := kvstore.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open device store: %w", err)
	}
	s.mu.Lock()
	s.store, s.storeDSN = store, dsn
	s.mu.Unlock()
	return nil
}

// apply pushes a reloaded configuration into the running proxy. The listen
// address and the device store are fixed for the life of the process.
func (s *service) apply(cfg config.Config) error {
	if err := xglog.SetLevel(cfg.LogLevel); err != nil {
		s.logger.Warn().Err(err).Msg("keeping previous log level")
	}
	s.mu.Lock()
	listen, dsn := s.listen, s.storeDSN
	s.mu.Unlock()

	if cfg.DeviceStore != dsn {
		s.logger.Warn().
			Str("event", "config.restart_required").
			Msg("device store changes take effect after restart")
	}
	cfg.Listen = listen

	pcfg, err := s.proxyConfig(cfg)
	if err != nil {
		return err
	}
	return s.server.Update(pcfg)
}

// registerHooks wires cleanup into the manager. Hooks run LIFO, so the
// store closes before pending spans are flushed.
func (s *service) registerHooks(mgr daemon.Manager) {
	mgr.RegisterShutdownHook("tracing", s.tracer.Shutdown)
	mgr.RegisterShutdownHook("device_store", func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.store == nil {
			return nil
		}
		return s.store.Close()
	})
}

func (s *service) close(ctx context.Context) {
	s.mu.Lock()
	if s.store != nil {
		_ = s.store.Close()
	}
	s.mu.Unlock()
	_ = s.tracer.Shutdown(ctx)
}
