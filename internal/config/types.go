// SPDX-License-Identifier: MIT

package config

import "time"

// Config is the complete proxy configuration.
type Config struct {
	// Listen is the address of the ingestion endpoint.
	Listen string `yaml:"listen"`
	// MetricsAddr serves /metrics on a separate listener when set; otherwise
	// metrics share the ingestion listener.
	MetricsAddr string `yaml:"metricsAddr"`
	LogLevel    string `yaml:"logLevel"`

	Supabase SupabaseConfig `yaml:"supabase"`
	Tracing  TracingConfig  `yaml:"tracing"`

	// RateLimit is the number of requests per minute accepted from one
	// client IP. Zero disables limiting.
	RateLimit int `yaml:"rateLimit"`
	// ForwardRPS paces inserts into Supabase. Zero disables pacing.
	ForwardRPS   float64 `yaml:"forwardRps"`
	MaxBodyBytes int64   `yaml:"maxBodyBytes"`

	// DeviceStore is a kvstore DSN. When set, telemetry is only accepted from
	// device IDs provisioned in the store.
	DeviceStore string `yaml:"deviceStore"`

	Version string `yaml:"-"`
}

// SupabaseConfig describes the upstream REST API.
type SupabaseConfig struct {
	URL     string        `yaml:"url"`
	AnonKey string        `yaml:"anonKey"`
	Table   string        `yaml:"table"`
	Timeout time.Duration `yaml:"timeout"`
}

// TracingConfig selects the OpenTelemetry exporter.
type TracingConfig struct {
	// Exporter is one of none, grpc, http.
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen:   ":3000",
		LogLevel: "info",
		Supabase: SupabaseConfig{
			Table:   "bike_telemetry",
			Timeout: 10 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			SampleRatio: 1.0,
		},
		RateLimit:    120,
		MaxBodyBytes: 16 << 10,
	}
}
