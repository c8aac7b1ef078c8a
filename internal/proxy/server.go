// SPDX-License-Identifier: MIT

// Package proxy is the HTTP ingestion endpoint trackers post telemetry to.
// Rows are expanded, validated and inserted into the upstream table.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/biketrack/biketrack/internal/api/middleware"
	"github.com/biketrack/biketrack/internal/health"
	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/resilience"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Forwarder inserts rows into the upstream table.
type Forwarder interface {
	Insert(ctx context.Context, table string, row any) error
	Ping(ctx context.Context) error
}

// DeviceLookup answers whether a device has been provisioned. Get returns
// kvstore.ErrNotFound for unknown devices.
type DeviceLookup interface {
	Get(ctx context.Context, deviceID string) (map[string]string, error)
	Ping(ctx context.Context) error
}

// Config holds the configuration for the proxy server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	Table     string
	Forwarder Forwarder
	// Devices restricts ingestion to provisioned devices when set.
	Devices DeviceLookup

	// RateLimit is requests per minute per client IP, zero disables it.
	RateLimit    int
	MaxBodyBytes int64

	// TracingService names server spans; empty disables tracing.
	TracingService string
	// ServeMetrics mounts /metrics on the ingestion listener.
	ServeMetrics bool

	// BreakerThreshold consecutive upstream failures open the circuit for
	// BreakerCooldown. Zero values select 5 failures and 30s. Both are read
	// by New only.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	Version string
}

func (c Config) validate() error {
	if c.Table == "" {
		return errors.New("table is required")
	}
	if c.Forwarder == nil {
		return errors.New("forwarder is required")
	}
	return nil
}

// Server represents the ingestion server.
type Server struct {
	addr       string
	httpServer *http.Server
	logger     zerolog.Logger
	startTime  time.Time
	breaker    *resilience.CircuitBreaker

	// handler is swapped by Update; in-flight requests finish on the old one.
	handler atomic.Pointer[http.Handler]

	mu       sync.Mutex
	bound    net.Addr
	lastSeen time.Time
	lastErr  string
}

// New creates a new proxy server.
func New(cfg Config) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		addr:      cfg.ListenAddr,
		logger:    xglog.WithComponent("proxy"),
		startTime: time.Now(),
		breaker: resilience.NewCircuitBreaker("supabase", cfg.BreakerThreshold, cfg.BreakerCooldown,
			resilience.WithFailurePredicate(isUpstreamFailure)),
	}
	s.install(cfg)

	s.httpServer = &http.Server{
		Addr: cfg.ListenAddr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			(*s.handler.Load()).ServeHTTP(w, r)
		}),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    16 << 10,
	}
	return s, nil
}

// Update applies a new configuration without dropping the listener. The
// listen address cannot change.
func (s *Server) Update(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	s.install(cfg)
	s.logger.Info().
		Str(xglog.FieldEvent, "proxy.updated").
		Str("table", cfg.Table).
		Bool("device_check", cfg.Devices != nil).
		Msg("ingestion settings applied")
	return nil
}

func (s *Server) install(cfg Config) {
	h := http.Handler(s.routes(cfg))
	s.handler.Store(&h)
}

func (s *Server) routes(cfg Config) *chi.Mux {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("supabase", true, cfg.Forwarder.Ping))
	if cfg.Devices != nil {
		hm.RegisterChecker(health.NewPingChecker("device_store", true, cfg.Devices.Ping))
	}
	hm.RegisterChecker(health.NewLastForwardChecker(0, s.lastForward))
	hm.RegisterChecker(health.NewPingChecker("upstream_circuit", false, func(context.Context) error {
		return s.breaker.Check()
	}))

	r := chi.NewRouter()
	// Health endpoints sit outside the ingress stack: no rate limit, no access log.
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	if cfg.ServeMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		middleware.ApplyStack(r, middleware.StackConfig{
			EnableSecurityHeaders: true,
			EnableMetrics:         true,
			TracingService:        cfg.TracingService,
			EnableLogging:         true,
			RateLimit:             cfg.RateLimit,
			RateWindow:            time.Minute,
			MaxBodyBytes:          cfg.MaxBodyBytes,
		})
		r.Post("/proxy", s.handleIngest(ingestTarget{
			table:     cfg.Table,
			forwarder: cfg.Forwarder,
			devices:   cfg.Devices,
		}))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler returns the current router. Used by tests and embedding callers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.bound = ln.Addr()
	s.mu.Unlock()

	s.logger.Info().
		Str(xglog.FieldEvent, "proxy.started").
		Str("addr", ln.Addr().String()).
		Msg("starting ingestion proxy")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("proxy server failed: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound == nil {
		return ""
	}
	return s.bound.String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str(xglog.FieldEvent, "proxy.stopping").Msg("shutting down ingestion proxy")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) recordForward(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

func (s *Server) lastForward() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.lastErr
}
