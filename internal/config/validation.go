// SPDX-License-Identifier: MIT

package config

import (
	"net"
	"regexp"

	platformnet "github.com/biketrack/biketrack/internal/platform/net"
	"github.com/biketrack/biketrack/internal/validate"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Validate checks the configuration and reports every problem at once.
func Validate(cfg Config) error {
	v := validate.New()

	validateListenAddr(v, "listen", cfg.Listen)
	if cfg.MetricsAddr != "" {
		validateListenAddr(v, "metricsAddr", cfg.MetricsAddr)
	}
	v.OneOf("logLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	if u := v.URL("supabase.url", cfg.Supabase.URL, []string{"http", "https"}); u != nil {
		if _, ok := platformnet.ParseDirectHTTPURL(cfg.Supabase.URL); !ok {
			v.AddError("supabase.url", "must not carry credentials or a fragment",
				platformnet.SanitizeURL(cfg.Supabase.URL))
		}
	}
	v.NotEmpty("supabase.anonKey", cfg.Supabase.AnonKey)
	v.Matches("supabase.table", cfg.Supabase.Table, tablePattern, "a SQL identifier")
	if cfg.Supabase.Timeout <= 0 {
		v.AddError("supabase.timeout", "must be positive", cfg.Supabase.Timeout.String())
	}

	validate.AtLeast(v, "rateLimit", cfg.RateLimit, 0)
	validate.AtLeast(v, "forwardRps", cfg.ForwardRPS, 0)
	validate.AtLeast(v, "maxBodyBytes", cfg.MaxBodyBytes, 1)

	v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{"none", "grpc", "http"})
	switch cfg.Tracing.Exporter {
	case "grpc", "http":
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
	}
	validate.Between(v, "tracing.sampleRatio", cfg.Tracing.SampleRatio, 0, 1)

	return v.Err()
}

func validateListenAddr(v *validate.Validator, field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, "must be host:port", addr)
		return
	}
	if port == "" {
		v.AddError(field, "port cannot be empty", addr)
	}
}
