// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validYAML = `listen: ":8080"
logLevel: debug
supabase:
  url: https://exampleproject.supabase.co
  anonKey: test-anon-key
  table: telemetry
  timeout: 3s
rateLimit: 30
forwardRps: 5
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv makes the test independent of the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvListen, EnvMetricsAddr, EnvLogLevel, EnvSupabaseURL, EnvSupabaseKey,
		EnvSupabaseTable, EnvUpstreamTimeout, EnvRateLimit, EnvForwardRPS,
		EnvMaxBodyBytes, EnvTracingExporter, EnvTracingEndpoint, EnvTracingSample,
		EnvDeviceStore,
	} {
		t.Setenv(key, "")
	}
}
