// SPDX-License-Identifier: MIT

// trackersim stands in for a tracker: it installs a device record and posts
// synthetic telemetry to the proxy URL the record names.
//
// Usage:
//
//	trackersim --file device.yaml [--count n] [--interval d]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biketrack/biketrack/internal/devicesim"
	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/secrets"
	"github.com/biketrack/biketrack/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("trackersim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file := fs.String("file", "", "device file (YAML); the environment may override any key")
	count := fs.Int("count", 10, "messages to send, 0 runs until interrupted")
	interval := fs.Duration("interval", 5*time.Second, "delay between messages")
	timeout := fs.Duration("timeout", 10*time.Second, "per-request timeout")
	seed := fs.Uint64("seed", 0, "track seed, 0 picks a random one")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	xglog.Configure(xglog.Config{
		Level:   *logLevel,
		Output:  stderr,
		Service: "trackersim",
		Version: version.Version,
	})
	logger := xglog.WithComponent("trackersim")

	cfg, err := secrets.NewLoader(*file).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Device configuration error:\n  %v\n", err)
		return 1
	}
	// The firmware's boot sequence: the record is fixed before any network
	// activity, and everything after reads the installed copy.
	device, err := installRecord(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	sender, err := devicesim.NewDeviceSender(device, *timeout, *interval)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var opts []devicesim.GeneratorOption
	if *seed != 0 {
		opts = append(opts, devicesim.WithSeed(*seed))
	}
	gen := devicesim.NewGenerator(device.DeviceID(), opts...)

	logger.Info().
		Str(xglog.FieldEvent, "trackersim.start").
		Str(xglog.FieldDeviceID, device.DeviceID()).
		Str("proxy", secrets.MaskURL(device.ProxyURL())).
		Int("count", *count).
		Dur("interval", *interval).
		Msg("simulating tracker")

	sent, err := sender.Run(ctx, gen, *count)
	logger.Info().
		Str(xglog.FieldEvent, "trackersim.done").
		Int("accepted", sent).
		Msg("simulation finished")
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func installRecord(cfg secrets.DeviceConfig) (secrets.DeviceConfig, error) {
	if err := secrets.Install(cfg); err != nil {
		return secrets.DeviceConfig{}, err
	}
	device, ok := secrets.Current()
	if !ok {
		return secrets.DeviceConfig{}, errors.New("device configuration not installed")
	}
	return device, nil
}
