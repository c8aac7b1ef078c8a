// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/biketrack/biketrack/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One test per process: secrets.Install succeeds only once.
func TestRunPostsTelemetryToRecordProxy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxy", r.URL.Path)
		hits.Add(1)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)

	file := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`variant: cellular
simPin: "2305"
apn: mmsbouygtel.com
deviceId: A7670E_001
proxyUrl: `+srv.URL+`/proxy
`), 0o600))

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--file", file, "--count", "3", "--interval", "0", "--seed", "5"}, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, int32(3), hits.Load())

	installed, ok := secrets.Current()
	require.True(t, ok)
	assert.Equal(t, "A7670E_001", installed.DeviceID())

	// A second record never replaces the installed one.
	var otherHits atomic.Int32
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		otherHits.Add(1)
	}))
	t.Cleanup(other.Close)
	otherFile := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(otherFile, []byte(`variant: cellular
simPin: "2305"
apn: free
deviceId: B_002
proxyUrl: `+other.URL+`/proxy
`), 0o600))

	stderr.Reset()
	code = run(context.Background(), []string{"--file", otherFile, "--count", "1", "--interval", "0"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), secrets.ErrAlreadyInstalled.Error())
	assert.Zero(t, otherHits.Load())
	installed, _ = secrets.Current()
	assert.Equal(t, "A7670E_001", installed.DeviceID())
}

func TestRunRejectsInvalidRecord(t *testing.T) {
	file := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(file, []byte("variant: cellular\nsimPin: \"12\"\n"), 0o600))

	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"--file", file}, &stderr))
	assert.Contains(t, stderr.String(), "Device configuration error")
}

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"--count", "many"}, &stderr))
}
