// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []Checker{&mockChecker{"a", StatusHealthy}, &mockChecker{"b", StatusHealthy}}, true, StatusHealthy},
		{"degraded is ready", []Checker{&mockChecker{"a", StatusDegraded}}, true, StatusDegraded},
		{"unhealthy wins", []Checker{&mockChecker{"a", StatusUnhealthy}, &mockChecker{"b", StatusDegraded}}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(NewPingChecker("supabase", true, func(context.Context) error {
		return errors.New("connection refused")
	}))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, "connection refused", resp.Checks["supabase"].Error)
}

func TestManager_ServeHealthAlways200(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(&mockChecker{name: "broken", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_CheckTimeout(t *testing.T) {
	m := NewManager("test")
	m.timeout = 20 * time.Millisecond
	m.RegisterChecker(NewPingChecker("slow", true, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks["slow"].Error)
}

func TestPingChecker(t *testing.T) {
	fail := func(context.Context) error { return errors.New("down") }

	assert.Equal(t, StatusHealthy, NewPingChecker("ok", true, func(context.Context) error { return nil }).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewPingChecker("crit", true, fail).Check(context.Background()).Status)
	assert.Equal(t, StatusDegraded, NewPingChecker("opt", false, fail).Check(context.Background()).Status)
}

func TestLastForwardChecker(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		err  string
		want Status
	}{
		{"never used", time.Time{}, "", StatusHealthy},
		{"recent success", now.Add(-time.Minute), "", StatusHealthy},
		{"failed", now.Add(-time.Minute), "upstream returned 500", StatusDegraded},
		{"stale", now.Add(-2 * time.Hour), "", StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLastForwardChecker(time.Hour, func() (time.Time, string) { return tt.last, tt.err })
			c.now = func() time.Time { return now }
			got := c.Check(context.Background())
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.err, got.Error)
		})
	}
}
