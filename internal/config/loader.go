// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/biketrack/biketrack/internal/platform/yamlx"
)

// ErrUnknownConfigField marks a config file naming a key Config lacks.
// Test with errors.Is.
var ErrUnknownConfigField = yamlx.ErrUnknownField

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Path returns the configuration file path, empty for ENV-only setups.
func (l *Loader) Path() string { return l.configPath }

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: parse file (strict) -> apply env -> validate.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.MetricsAddr = l.envString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Supabase.URL = l.envString(EnvSupabaseURL, cfg.Supabase.URL)
	cfg.Supabase.AnonKey = l.envString(EnvSupabaseKey, cfg.Supabase.AnonKey)
	cfg.Supabase.Table = l.envString(EnvSupabaseTable, cfg.Supabase.Table)
	cfg.Supabase.Timeout = l.envDuration(EnvUpstreamTimeout, cfg.Supabase.Timeout)

	cfg.RateLimit = l.envInt(EnvRateLimit, cfg.RateLimit)
	cfg.ForwardRPS = l.envFloat(EnvForwardRPS, cfg.ForwardRPS)
	cfg.MaxBodyBytes = l.envInt64(EnvMaxBodyBytes, cfg.MaxBodyBytes)

	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRatio = l.envFloat(EnvTracingSample, cfg.Tracing.SampleRatio)

	cfg.DeviceStore = l.envString(EnvDeviceStore, cfg.DeviceStore)
}

// loadFile decodes the YAML file over cfg with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if err := yamlx.DecodeStrict(data, cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}
