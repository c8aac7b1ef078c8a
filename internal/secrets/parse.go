// SPDX-License-Identifier: MIT

package secrets

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// MacroKind classifies the replacement text of a #define.
type MacroKind int

const (
	// MacroFlag has no replacement text (include guards).
	MacroFlag MacroKind = iota
	// MacroString is a C string literal.
	MacroString
	// MacroInt is a decimal integer literal.
	MacroInt
	// MacroPlaceholder is a template marker such as {YOUR_APN}.
	MacroPlaceholder
	// MacroRaw is any other token sequence, kept verbatim.
	MacroRaw
)

// Macro is one #define of a parsed header.
type Macro struct {
	Name  string
	Kind  MacroKind
	Value string // decoded string, integer or raw text
	Line  int
}

// Header is the result of parsing an arduino_secrets.h file.
type Header struct {
	// Guard is the include guard macro, empty when the header has none.
	Guard  string
	Macros []Macro
}

var (
	identPattern       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
	intLiteralPattern  = regexp.MustCompile(`^-?[0-9]+$`)
	placeholderLiteral = regexp.MustCompile(`^\{[A-Za-z0-9_]+\}$`)
)

// Lookup returns the macro with the given name.
func (h Header) Lookup(name string) (Macro, bool) {
	for _, m := range h.Macros {
		if m.Name == name {
			return m, true
		}
	}
	return Macro{}, false
}

// Unknown returns the names of defined macros that are neither symbols nor the guard.
func (h Header) Unknown() []string {
	var out []string
	for _, m := range h.Macros {
		if m.Name == h.Guard {
			continue
		}
		if _, ok := ParseSymbol(m.Name); !ok {
			out = append(out, m.Name)
		}
	}
	return out
}

// File converts the header's symbols into a provisioning file. The variant is
// the smallest one carrying every symbol found. Placeholders are kept as-is so
// validation reports them.
func (h Header) File() (File, error) {
	present := make(map[Symbol]bool)
	var f File
	for _, m := range h.Macros {
		s, ok := ParseSymbol(m.Name)
		if !ok {
			continue
		}
		present[s] = true
		val := m.Value
		if s.Integer() && m.Kind != MacroInt {
			// A placeholder port is dropped; Build derives it from the URL.
			continue
		}
		if err := f.set(s, val); err != nil {
			return File{}, fmt.Errorf("line %d: %w", m.Line, err)
		}
	}
	f.Variant = string(CoveringVariant(present))
	return f, nil
}

type conditional struct {
	parentActive bool
	active       bool
	taken        bool
}

// ParseHeader reads a secrets header the way the preprocessor would for the
// subset of directives such headers use: #ifndef/#ifdef/#else/#endif,
// #define and #undef. Conditional blocks that are skipped (for example the
// second inclusion of a guarded header) define nothing. Defining a macro that
// is already defined fails with ErrDuplicateDefinition.
func ParseHeader(r io.Reader) (Header, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	text := stripComments(joinContinuations(string(raw)))

	var (
		h       Header
		stack   []conditional
		defined = make(map[string]int)
		first   = true
		pending string
	)
	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		return stack[len(stack)-1].active
	}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		directive, rest := splitDirective(line)

		switch directive {
		case "ifndef", "ifdef":
			name := identPattern.FindString(rest)
			if name == "" {
				return Header{}, fmt.Errorf("line %d: #%s without macro name", lineNo, directive)
			}
			_, isDefined := defined[name]
			cond := isDefined
			if directive == "ifndef" {
				cond = !isDefined
			}
			parent := active()
			stack = append(stack, conditional{parentActive: parent, active: parent && cond, taken: cond})
			if first && directive == "ifndef" {
				pending = name
			}
		case "else":
			if len(stack) == 0 {
				return Header{}, fmt.Errorf("line %d: #else without #if", lineNo)
			}
			top := &stack[len(stack)-1]
			top.active = top.parentActive && !top.taken
			top.taken = true
		case "endif":
			if len(stack) == 0 {
				return Header{}, fmt.Errorf("line %d: #endif without #if", lineNo)
			}
			stack = stack[:len(stack)-1]
		case "define":
			if !active() {
				break
			}
			m, err := parseDefine(rest, lineNo)
			if err != nil {
				return Header{}, err
			}
			if prev, dup := defined[m.Name]; dup {
				return Header{}, fmt.Errorf("line %d: %w: %s (first defined on line %d)",
					lineNo, ErrDuplicateDefinition, m.Name, prev)
			}
			defined[m.Name] = lineNo
			h.Macros = append(h.Macros, m)
			if pending != "" && m.Name == pending && m.Kind == MacroFlag && h.Guard == "" {
				h.Guard = pending
			}
		case "undef":
			if !active() {
				break
			}
			name := identPattern.FindString(rest)
			delete(defined, name)
			for j := range h.Macros {
				if h.Macros[j].Name == name {
					h.Macros = append(h.Macros[:j], h.Macros[j+1:]...)
					break
				}
			}
		}
		if directive != "ifndef" {
			pending = ""
		}
		first = false
	}
	if len(stack) != 0 {
		return Header{}, fmt.Errorf("unterminated conditional block (%d open)", len(stack))
	}
	return h, nil
}

func splitDirective(line string) (string, string) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	name := identPattern.FindString(line)
	return name, strings.TrimSpace(line[len(name):])
}

func parseDefine(rest string, lineNo int) (Macro, error) {
	name := identPattern.FindString(rest)
	if name == "" {
		return Macro{}, fmt.Errorf("line %d: #define without macro name", lineNo)
	}
	if strings.HasPrefix(rest[len(name):], "(") {
		return Macro{}, fmt.Errorf("line %d: function-like macro %s is not supported", lineNo, name)
	}
	body := strings.TrimSpace(rest[len(name):])
	m := Macro{Name: name, Line: lineNo}

	switch {
	case body == "":
		m.Kind = MacroFlag
	case strings.HasPrefix(body, `"`):
		s, err := decodeStringLiterals(body)
		if err != nil {
			return Macro{}, fmt.Errorf("line %d: %s: %w", lineNo, name, err)
		}
		m.Kind, m.Value = MacroString, s
	case intLiteralPattern.MatchString(body):
		m.Kind, m.Value = MacroInt, body
	case placeholderLiteral.MatchString(body):
		m.Kind, m.Value = MacroPlaceholder, body
	default:
		m.Kind, m.Value = MacroRaw, body
	}
	return m, nil
}

// decodeStringLiterals decodes one or more adjacent C string literals.
func decodeStringLiterals(body string) (string, error) {
	var out strings.Builder
	rest := body
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return out.String(), nil
		}
		if rest[0] != '"' {
			return "", fmt.Errorf("unexpected text after string literal: %q", rest)
		}
		i := 1
		closed := false
		for i < len(rest) {
			c := rest[i]
			if c == '"' {
				closed = true
				i++
				break
			}
			if c != '\\' {
				out.WriteByte(c)
				i++
				continue
			}
			n, err := decodeEscape(rest[i:], &out)
			if err != nil {
				return "", err
			}
			i += n
		}
		if !closed {
			return "", fmt.Errorf("unterminated string literal")
		}
		rest = rest[i:]
	}
}

// decodeEscape decodes the escape sequence at the start of s (which begins
// with a backslash) and returns the number of bytes consumed.
func decodeEscape(s string, out *strings.Builder) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("dangling backslash")
	}
	switch s[1] {
	case 'n':
		out.WriteByte('\n')
	case 't':
		out.WriteByte('\t')
	case 'r':
		out.WriteByte('\r')
	case 'a':
		out.WriteByte('\a')
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case 'v':
		out.WriteByte('\v')
	case '\\', '"', '\'', '?':
		out.WriteByte(s[1])
	case 'x':
		j := 2
		for j < len(s) && isHex(s[j]) {
			j++
		}
		if j == 2 {
			return 0, fmt.Errorf("\\x without hex digits")
		}
		v, err := strconv.ParseUint(s[2:j], 16, 64)
		if err != nil || v > 0xff {
			return 0, fmt.Errorf("hex escape out of range: %s", s[:j])
		}
		out.WriteByte(byte(v))
		return j, nil
	default:
		if s[1] < '0' || s[1] > '7' {
			return 0, fmt.Errorf("unknown escape sequence \\%c", s[1])
		}
		j := 1
		for j < len(s) && j < 4 && s[j] >= '0' && s[j] <= '7' {
			j++
		}
		v, _ := strconv.ParseUint(s[1:j], 8, 16)
		if v > 0xff {
			return 0, fmt.Errorf("octal escape out of range: %s", s[:j])
		}
		out.WriteByte(byte(v))
		return j, nil
	}
	return 2, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// joinContinuations splices backslash-newline sequences, keeping a newline
// per spliced line so line numbers stay stable.
func joinContinuations(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	carry := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasSuffix(line, `\`) {
			b.WriteString(strings.TrimSuffix(line, `\`))
			carry++
			continue
		}
		b.WriteString(line)
		b.WriteString(strings.Repeat("\n", carry+1))
		carry = 0
	}
	out := b.String()
	return strings.TrimSuffix(out, "\n")
}

// stripComments removes // and /* */ comments outside string and character
// literals. Newlines inside block comments are kept.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	const (
		code = iota
		str
		char
		line
		block
	)
	state := code
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case code:
			switch {
			case c == '"':
				state = str
				b.WriteByte(c)
			case c == '\'':
				state = char
				b.WriteByte(c)
			case c == '/' && i+1 < len(s) && s[i+1] == '/':
				state = line
				i++
			case c == '/' && i+1 < len(s) && s[i+1] == '*':
				state = block
				b.WriteByte(' ')
				i++
			default:
				b.WriteByte(c)
			}
		case str, char:
			b.WriteByte(c)
			switch {
			case c == '\\' && i+1 < len(s):
				i++
				b.WriteByte(s[i])
			case c == '"' && state == str, c == '\'' && state == char:
				state = code
			case c == '\n':
				state = code
			}
		case line:
			if c == '\n' {
				state = code
				b.WriteByte(c)
			}
		case block:
			if c == '*' && i+1 < len(s) && s[i+1] == '/' {
				state = code
				i++
			} else if c == '\n' {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
