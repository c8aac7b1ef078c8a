// SPDX-License-Identifier: MIT

package secrets

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/renameio/v2"
)

// RenderHeader writes arduino_secrets.h for the record. Only the symbols of
// the record's variant are emitted; PROXY_PORT is an integer literal and every
// other value a C string literal. The output is wrapped in an include guard.
func RenderHeader(w io.Writer, cfg DeviceConfig) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("render header: %w", err)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "// arduino_secrets.h generated by trackerctl; do not edit or commit.")
	fmt.Fprintf(bw, "// device: %s, variant: %s\n\n", cfg.DeviceID(), cfg.Variant())
	fmt.Fprintf(bw, "#ifndef %s\n#define %s\n\n", HeaderGuard, HeaderGuard)
	for _, s := range cfg.Variant().Symbols() {
		val, _ := cfg.Value(s)
		if s.Integer() {
			fmt.Fprintf(bw, "#define %s %s\n", s, val)
			continue
		}
		fmt.Fprintf(bw, "#define %s %s\n", s, quoteC(val))
	}
	fmt.Fprintf(bw, "\n#endif // %s\n", HeaderGuard)
	return bw.Flush()
}

// WriteHeaderFile atomically replaces path with the rendered header. The file
// is only readable by its owner.
func WriteHeaderFile(path string, cfg DeviceConfig) error {
	var b strings.Builder
	if err := RenderHeader(&b, cfg); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	return nil
}

// quoteC renders s as a C string literal. Bytes outside printable ASCII use
// three-digit octal escapes, which unlike \x cannot swallow following digits.
func quoteC(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '?':
			// Avoid trigraph sequences such as ??= in older toolchains.
			if i+1 < len(s) && s[i+1] == '?' {
				b.WriteString(`\?`)
			} else {
				b.WriteByte(c)
			}
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
