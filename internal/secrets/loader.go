// SPDX-License-Identifier: MIT

package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/platform/yamlx"
	"github.com/rs/zerolog"
)

// EnvVariant selects the variant from the environment.
const EnvVariant = "BIKETRACK_VARIANT"

// Loader loads a device record with precedence ENV > file > defaults.
// Environment keys are the symbol names (SECRET_APN, PROXY_PORT, ...).
type Loader struct {
	path   string
	lookup func(string) (string, bool)
	logger zerolog.Logger

	// ConsumedEnvKeys records every environment key that was consulted.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader for the given file. An empty path loads from the
// environment only.
func NewLoader(path string) *Loader {
	return &Loader{
		path:            path,
		lookup:          os.LookupEnv,
		logger:          xglog.WithComponent("secrets"),
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envLookup(key string) (string, bool) {
	l.ConsumedEnvKeys[key] = struct{}{}
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Load returns the validated record.
func (l *Loader) Load() (DeviceConfig, error) {
	f, err := l.LoadFile()
	if err != nil {
		return DeviceConfig{}, err
	}
	cfg, err := Build(f)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("device config validation failed: %w", err)
	}
	l.logger.Info().
		Str(xglog.FieldEvent, "secrets.loaded").
		Str(xglog.FieldDeviceID, cfg.DeviceID()).
		Str(xglog.FieldVariant, string(cfg.Variant())).
		Msg("device configuration loaded")
	return cfg, nil
}

// LoadFile merges file and environment without validating the result.
func (l *Loader) LoadFile() (File, error) {
	var f File
	if l.path != "" {
		fileCfg, err := ReadFile(l.path)
		if err != nil {
			return File{}, fmt.Errorf("load device file: %w", err)
		}
		f = fileCfg
		l.logSources(f, "file")
	}

	if v, ok := l.envLookup(EnvVariant); ok {
		f.Variant = v
	}
	variant, err := ParseVariant(f.Variant)
	if err != nil {
		return File{}, err
	}
	f.Variant = string(variant)

	for _, s := range allSymbols {
		val, ok := l.envLookup(string(s))
		if !ok {
			continue
		}
		if !variant.Has(s) {
			l.logger.Debug().
				Str(xglog.FieldSymbol, string(s)).
				Str(xglog.FieldVariant, string(variant)).
				Msg("ignoring environment variable outside variant")
			continue
		}
		if err := f.set(s, val); err != nil {
			return File{}, fmt.Errorf("environment: %w", err)
		}
		l.logSource(s, val, "environment")
	}
	return f, nil
}

func (l *Loader) logSources(f File, source string) {
	for _, s := range allSymbols {
		if val, set := f.value(s); set {
			l.logSource(s, val, source)
		}
	}
}

func (l *Loader) logSource(s Symbol, val, source string) {
	evt := l.logger.Debug().
		Str(xglog.FieldSymbol, string(s)).
		Str(xglog.FieldSource, source)
	if s.Sensitive() {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Str("value", maskedValue(s, val))
	}
	evt.Msg("using configured value")
}

// ReadFile reads a device file with strict YAML parsing: unknown keys,
// multiple documents and trailing content are rejected.
func ReadFile(path string) (File, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return File{}, fmt.Errorf("unsupported device file format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- device file paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read file: %w", err)
	}
	return DecodeFile(data)
}

// DecodeFile strictly decodes a device file from YAML bytes.
func DecodeFile(data []byte) (File, error) {
	var f File
	if err := yamlx.DecodeStrict(data, &f); err != nil {
		return File{}, fmt.Errorf("device file: %w", err)
	}
	return f, nil
}
