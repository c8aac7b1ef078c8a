// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestHolder(t *testing.T, path string) *Holder {
	t.Helper()
	l := NewLoader(path, "test")
	cfg, err := l.Load()
	require.NoError(t, err)
	h := NewHolder(cfg, l)
	h.debounce = 20 * time.Millisecond
	return h
}

func TestHolder_ReloadAppliesAndNotifies(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), validYAML)
	h := newTestHolder(t, path)

	updates := make(chan Config, 1)
	h.Subscribe(updates)

	writeConfig(t, filepath.Dir(path), strings.Replace(validYAML, "table: telemetry", "table: positions", 1))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "positions", h.Get().Supabase.Table)
	select {
	case cfg := <-updates:
		assert.Equal(t, "positions", cfg.Supabase.Table)
	default:
		t.Fatal("subscriber was not notified")
	}
}

func TestHolder_FailedReloadKeepsCurrent(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), validYAML)
	h := newTestHolder(t, path)

	updates := make(chan Config, 1)
	h.Subscribe(updates)

	writeConfig(t, filepath.Dir(path), validYAML+"bogus: true\n")
	require.Error(t, h.Reload(context.Background()))

	assert.Equal(t, "telemetry", h.Get().Supabase.Table)
	assert.Empty(t, updates)
}

func TestHolder_NotifyNeverBlocks(t *testing.T) {
	clearEnv(t)
	h := newTestHolder(t, writeConfig(t, t.TempDir(), validYAML))

	full := make(chan Config) // unbuffered, nobody reading
	h.Subscribe(full)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Reload(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Reload blocked on a full subscriber")
	}
}

func TestHolder_WatchReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	clearEnv(t)

	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	h := newTestHolder(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	watchErr := make(chan error, 1)
	go func() { watchErr <- h.Watch(ctx) }()

	// Keep rewriting until the watcher has been registered and picked it up.
	updated := strings.Replace(validYAML, "rateLimit: 30", "rateLimit: 45", 1)
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(updated), 0o600)
		return h.Get().RateLimit == 45
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-watchErr)
}

func TestHolder_WatchWithoutFileWaitsForContext(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSupabaseURL, "https://exampleproject.supabase.co")
	t.Setenv(EnvSupabaseKey, "k")
	h := newTestHolder(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, h.Watch(ctx))
}
