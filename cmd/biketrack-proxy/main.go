// SPDX-License-Identifier: MIT

// biketrack-proxy receives compact telemetry from trackers and forwards it
// to the Supabase REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/biketrack/biketrack/internal/config"
	"github.com/biketrack/biketrack/internal/daemon"
	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/metrics"
	"github.com/biketrack/biketrack/internal/secrets"
	"github.com/biketrack/biketrack/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "biketrack-proxy",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "biketrack-proxy",
		Version: cfg.Version,
	})

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("loaded configuration")

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Listen).
		Msg("starting biketrack-proxy")
	logger.Info().Msgf("→ Supabase: %s (table %s)", secrets.MaskURL(cfg.Supabase.URL), cfg.Supabase.Table)
	if cfg.DeviceStore != "" {
		logger.Info().Msgf("→ Device registry: %s", secrets.MaskURL(cfg.DeviceStore))
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ Device registry: NOT configured, telemetry is accepted from any device ID")
	}

	metrics.SetBuildInfo(version.Version)

	svc, err := newService(ctx, cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.failed").
			Msg("failed to initialise services")
	}

	deps := daemon.Deps{
		Logger: logger,
		Server: svc.server,
	}
	if cfg.MetricsAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.MetricsAddr
	}

	mgr, err := daemon.NewManager(deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}
	svc.registerHooks(mgr)

	holder := config.NewHolder(cfg, loader)
	app := daemon.NewApp(logger, mgr, holder, svc.apply)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
