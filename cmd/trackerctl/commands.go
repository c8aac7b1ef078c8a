// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/biketrack/biketrack/internal/kvstore"
	"github.com/biketrack/biketrack/internal/secrets"
	"github.com/biketrack/biketrack/internal/validate"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("trackerctl "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) required(name, value string) bool {
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(c.stderr, "Error: --%s is required\n", name)
		return false
	}
	return true
}

// reportInvalid prints one line per failing field when err is a validation
// error, or err itself otherwise.
func (c *cli) reportInvalid(what string, err error) {
	fmt.Fprintf(c.stderr, "Validation error in %s:\n", what)
	var verr validate.ValidationError
	if errors.As(err, &verr) {
		for _, e := range verr.Errors() {
			fmt.Fprintf(c.stderr, "  %s: %s\n", e.Field, e.Message)
		}
		return
	}
	fmt.Fprintf(c.stderr, "  %v\n", err)
}

// output writes data to path atomically, or to stdout when path is empty.
func (c *cli) output(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	return renameio.WriteFile(path, data, perm)
}

func (c *cli) load(file string) (secrets.DeviceConfig, bool) {
	cfg, err := secrets.NewLoader(file).Load()
	if err != nil {
		c.reportInvalid(file, err)
		return secrets.DeviceConfig{}, false
	}
	return cfg, true
}

func (c *cli) template(args []string) int {
	fs := c.flagSet("template")
	variant := fs.String("variant", string(secrets.VariantFull), "variant: full, cellular or final")
	out := fs.String("out", "", "write the template to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	v, err := secrets.ParseVariant(*variant)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitUsage
	}
	var buf bytes.Buffer
	if err := secrets.RenderTemplate(&buf, v); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	// The template holds no secrets and is meant to be committed.
	if err := c.output(*out, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(c.stderr, "Error: write template: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func (c *cli) validate(args []string) int {
	fs := c.flagSet("validate")
	file := fs.String("file", "", "device file (YAML)")
	fs.StringVar(file, "f", "", "device file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.required("file", *file) {
		return exitUsage
	}

	cfg, ok := c.load(*file)
	if !ok {
		return exitFailure
	}
	fmt.Fprintf(c.stdout, "✓ %s is valid (variant %s, device %s)\n", *file, cfg.Variant(), cfg.DeviceID())
	return exitOK
}

type dumpDoc struct {
	Variant string            `yaml:"variant" json:"variant"`
	Symbols map[string]string `yaml:"symbols" json:"symbols"`
}

func (c *cli) dump(args []string) int {
	fs := c.flagSet("dump")
	file := fs.String("file", "", "device file (YAML)")
	fs.StringVar(file, "f", "", "device file (shorthand)")
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.required("file", *file) {
		return exitUsage
	}
	if *format != "yaml" && *format != "json" {
		fmt.Fprintf(c.stderr, "Error: unsupported format %q (use yaml or json)\n", *format)
		return exitUsage
	}

	cfg, ok := c.load(*file)
	if !ok {
		return exitFailure
	}
	doc := dumpDoc{Variant: string(cfg.Variant()), Symbols: secrets.Redacted(cfg)}

	var data []byte
	var err error
	if *format == "json" {
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: encode: %v\n", err)
		return exitFailure
	}
	_, _ = c.stdout.Write(data)
	return exitOK
}

func (c *cli) render(args []string) int {
	fs := c.flagSet("render")
	file := fs.String("file", "", "device file (YAML)")
	fs.StringVar(file, "f", "", "device file (shorthand)")
	out := fs.String("out", "", "header path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.required("file", *file) {
		return exitUsage
	}

	cfg, ok := c.load(*file)
	if !ok {
		return exitFailure
	}
	if *out == "" {
		if err := secrets.RenderHeader(c.stdout, cfg); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}
	if err := secrets.WriteHeaderFile(*out, cfg); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(c.stderr, "wrote %s for device %s\n", *out, cfg.DeviceID())
	return exitOK
}

// importHeader converts a legacy arduino_secrets.h into a device file. The
// file is written even when the values do not validate, so placeholders can
// be filled in afterwards; the exit code still reports the problems.
func (c *cli) importHeader(args []string) int {
	fs := c.flagSet("import")
	header := fs.String("header", "", "legacy arduino_secrets.h")
	variant := fs.String("variant", "", "override the detected variant")
	out := fs.String("out", "", "device file to write (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.required("header", *header) {
		return exitUsage
	}

	fh, err := os.Open(*header)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer func() { _ = fh.Close() }()

	h, err := secrets.ParseHeader(fh)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: parse %s: %v\n", *header, err)
		return exitFailure
	}
	for _, name := range h.Unknown() {
		fmt.Fprintf(c.stderr, "warning: ignoring unknown macro %s\n", name)
	}
	f, err := h.File()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	if *variant != "" {
		v, err := secrets.ParseVariant(*variant)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitUsage
		}
		f.Variant = string(v)
	}

	var buf bytes.Buffer
	if err := secrets.EncodeFile(&buf, f); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := c.output(*out, buf.Bytes(), 0o600); err != nil {
		fmt.Fprintf(c.stderr, "Error: write device file: %v\n", err)
		return exitFailure
	}

	if _, err := secrets.Build(f); err != nil {
		c.reportInvalid(*header, err)
		return exitFailure
	}
	return exitOK
}

func (c *cli) push(ctx context.Context, args []string) int {
	fs := c.flagSet("push")
	file := fs.String("file", "", "device file (YAML)")
	fs.StringVar(file, "f", "", "device file (shorthand)")
	dsn := fs.String("store", "", "device store DSN")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.required("file", *file) || !c.required("store", *dsn) {
		return exitUsage
	}

	cfg, ok := c.load(*file)
	if !ok {
		return exitFailure
	}
	store, err := kvstore.Open(ctx, *dsn)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer func() { _ = store.Close() }()

	if err := kvstore.SaveConfig(ctx, store, cfg); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(c.stdout, "stored device %s (variant %s) in %s\n", cfg.DeviceID(), cfg.Variant(), secrets.MaskURL(*dsn))
	return exitOK
}

func (c *cli) pull(ctx context.Context, args []string) int {
	fs := c.flagSet("pull")
	device := fs.String("device", "", "device ID")
	dsn := fs.String("store", "", "device store DSN")
	out := fs.String("out", "", "device file to write (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.required("device", *device) || !c.required("store", *dsn) {
		return exitUsage
	}

	store, err := kvstore.Open(ctx, *dsn)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer func() { _ = store.Close() }()

	cfg, err := kvstore.LoadConfig(ctx, store, *device)
	if errors.Is(err, kvstore.ErrNotFound) {
		fmt.Fprintf(c.stderr, "Error: device %s not found in store\n", *device)
		return exitFailure
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}

	var buf bytes.Buffer
	if err := secrets.EncodeFile(&buf, cfg.File()); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := c.output(*out, buf.Bytes(), 0o600); err != nil {
		fmt.Fprintf(c.stderr, "Error: write device file: %v\n", err)
		return exitFailure
	}
	return exitOK
}
