// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/biketrack/biketrack/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys read by the proxy.
const (
	EnvListen          = "BIKETRACK_LISTEN"
	EnvMetricsAddr     = "BIKETRACK_METRICS_ADDR"
	EnvLogLevel        = "BIKETRACK_LOG_LEVEL"
	EnvSupabaseURL     = "BIKETRACK_SUPABASE_URL"
	EnvSupabaseKey     = "BIKETRACK_SUPABASE_ANON_KEY"
	EnvSupabaseTable   = "BIKETRACK_SUPABASE_TABLE"
	EnvUpstreamTimeout = "BIKETRACK_UPSTREAM_TIMEOUT"
	EnvRateLimit       = "BIKETRACK_RATE_LIMIT"
	EnvForwardRPS      = "BIKETRACK_FORWARD_RPS"
	EnvMaxBodyBytes    = "BIKETRACK_MAX_BODY_BYTES"
	EnvTracingExporter = "BIKETRACK_TRACING_EXPORTER"
	EnvTracingEndpoint = "BIKETRACK_TRACING_ENDPOINT"
	EnvTracingSample   = "BIKETRACK_TRACING_SAMPLE_RATIO"
	EnvDeviceStore     = "BIKETRACK_DEVICE_STORE"
)

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "key") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "password") || strings.Contains(lower, "store")
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	switch {
	case !exists:
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	case value == "":
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return defaultValue
	case isSensitiveKey(key):
		// For sensitive vars, just log that it was set
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
	default:
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return value
}

// parseEnv is the shared shape of the typed parsers: empty or invalid values
// fall back to the default, invalid ones with a warning.
func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}

// ParseInt reads an integer from environment variable or returns default value.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// ParseInt64 reads a 64-bit integer from environment variable or returns default value.
func ParseInt64(key string, defaultValue int64) int64 {
	return parseEnv(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseDuration reads a duration in Go format (e.g. "5s") from environment
// variable or returns default value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}
