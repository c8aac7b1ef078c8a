// SPDX-License-Identifier: MIT

// trackerctl provisions BikeTrack trackers: it validates device files,
// renders arduino_secrets.h at flash time and moves records in and out of a
// device store.
//
// Usage:
//
//	trackerctl template  [--variant full|cellular|final] [--out file]
//	trackerctl validate  --file device.yaml
//	trackerctl dump      --file device.yaml [--format yaml|json]
//	trackerctl render    --file device.yaml [--out arduino_secrets.h]
//	trackerctl import    --header arduino_secrets.h [--variant v] [--out device.yaml]
//	trackerctl push      --file device.yaml --store <dsn>
//	trackerctl pull      --device <id> --store <dsn> [--out device.yaml]
//
// Exit codes:
//   - 0: success
//   - 1: invalid record or runtime failure
//   - 2: usage error
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/version"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Logs go to stderr so stdout stays clean for rendered output.
	level := os.Getenv("BIKETRACK_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	xglog.Configure(xglog.Config{
		Level:   level,
		Output:  stderr,
		Service: "trackerctl",
		Version: version.Version,
	})

	c := &cli{stdout: stdout, stderr: stderr}
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage()
		return exitOK
	}

	switch args[0] {
	case "template":
		return c.template(args[1:])
	case "validate":
		return c.validate(args[1:])
	case "dump":
		return c.dump(args[1:])
	case "render":
		return c.render(args[1:])
	case "import":
		return c.importHeader(args[1:])
	case "push":
		return c.push(ctx, args[1:])
	case "pull":
		return c.pull(ctx, args[1:])
	case "version", "--version":
		fmt.Fprintln(stdout, version.String())
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		c.usage()
		return exitUsage
	}
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "Usage:")
	fmt.Fprintln(c.stderr, "  trackerctl template  [--variant full|cellular|final] [--out file]")
	fmt.Fprintln(c.stderr, "  trackerctl validate  --file device.yaml")
	fmt.Fprintln(c.stderr, "  trackerctl dump      --file device.yaml [--format yaml|json]")
	fmt.Fprintln(c.stderr, "  trackerctl render    --file device.yaml [--out arduino_secrets.h]")
	fmt.Fprintln(c.stderr, "  trackerctl import    --header arduino_secrets.h [--variant v] [--out device.yaml]")
	fmt.Fprintln(c.stderr, "  trackerctl push      --file device.yaml --store <dsn>")
	fmt.Fprintln(c.stderr, "  trackerctl pull      --device <id> --store <dsn> [--out device.yaml]")
}
