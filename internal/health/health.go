// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for the proxy.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/biketrack/biketrack/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds a single checker.
const DefaultCheckTimeout = 3 * time.Second

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	checkers  []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
	}
}

// RegisterChecker adds a health checker to the manager. Not safe for use
// once the manager serves requests.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	results := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy
	for _, checker := range m.checkers {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		result := checker.Check(cctx)
		cancel()
		results[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return results, overall
}

// Health performs a health check (liveness). Component checks only run
// in verbose mode and never turn liveness into a failure status code.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.startTime).Seconds()),
		Timestamp: time.Now(),
	}
	if verbose && len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.runChecks(ctx)
	}
	return resp
}

// Ready performs a readiness check (readiness). Any unhealthy
// component makes the service not ready; degraded ones do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks, resp.Status = m.runChecks(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// PingChecker wraps a dependency ping. Failures of a non-critical dependency
// only degrade the service.
type PingChecker struct {
	name     string
	ping     func(context.Context) error
	critical bool
}

// NewPingChecker creates a checker around ping.
func NewPingChecker(name string, critical bool, ping func(context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, critical: critical}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		status := StatusDegraded
		if c.critical {
			status = StatusUnhealthy
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// LastForwardChecker reports on the most recent forward to the upstream.
type LastForwardChecker struct {
	lastForward func() (time.Time, string)
	maxAge      time.Duration
	now         func() time.Time
}

// NewLastForwardChecker creates the checker. lastForward returns the time of
// the last attempt and the error text of that attempt, if any. A maxAge of
// zero disables the staleness check.
func NewLastForwardChecker(maxAge time.Duration, lastForward func() (time.Time, string)) *LastForwardChecker {
	return &LastForwardChecker{lastForward: lastForward, maxAge: maxAge, now: time.Now}
}

func (c *LastForwardChecker) Name() string {
	return "last_forward"
}

// Check reports at most degraded.
func (c *LastForwardChecker) Check(_ context.Context) CheckResult {
	last, lastError := c.lastForward()

	if last.IsZero() {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "no telemetry forwarded yet",
		}
	}

	if lastError != "" {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   lastError,
			Message: "last forward failed",
		}
	}

	if c.maxAge > 0 && c.now().Sub(last) > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no telemetry forwarded recently",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "last forward successful",
	}
}
