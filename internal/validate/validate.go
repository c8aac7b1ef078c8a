// SPDX-License-Identifier: MIT

// Package validate accumulates field errors so a caller can report every
// problem with a device record or a telemetry row at once.
package validate

import (
	"cmp"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Error is one failing field. Value ends up in logs; validators of secret
// fields are built with NewMasked.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects errors in the order checks run.
type Validator struct {
	errors []Error
	mask   func(field string, value any) any
}

// ValidationError is the error form of a failed Validator.
type ValidationError struct {
	errors []Error
}

func New() *Validator {
	return &Validator{}
}

// NewMasked returns a Validator that passes every failing value through
// mask before storing it.
func NewMasked(mask func(field string, value any) any) *Validator {
	return &Validator{mask: mask}
}

// AddError records a failure found by a check this package does not offer.
func (v *Validator) AddError(field, message string, value any) {
	if v.mask != nil {
		value = v.mask(field, value)
	}
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

func (v *Validator) Errors() []Error { return v.errors }

// Err returns nil or a ValidationError holding a copy of the errors so far.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

func (e ValidationError) Errors() []Error { return e.errors }

// Fields lists the failing field names in report order. A field that failed
// several checks appears once.
func (e ValidationError) Fields() []string {
	out := make([]string, 0, len(e.errors))
	for _, err := range e.errors {
		if !slices.Contains(out, err.Field) {
			out = append(out, err.Field)
		}
	}
	return out
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// URL checks for an absolute URL with a host and one of the allowed schemes
// and returns it parsed, or nil after recording the failure.
func (v *Validator) URL(field, value string, allowedSchemes []string) *url.URL {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return nil
	}
	u, err := url.Parse(value)
	switch {
	case err != nil:
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return nil
	case u.Host == "":
		v.AddError(field, "URL must have a host", value)
		return nil
	case len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme):
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %s)",
			u.Scheme, strings.Join(allowedSchemes, ", ")), value)
		return nil
	}
	return u
}

// Port checks a TCP port number.
func (v *Validator) Port(field string, port int) {
	if port < 1 || port > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 1 and 65535, got %d", port), port)
	}
}

// Length checks the byte length of s. Modem firmware counts bytes, not runes.
func (v *Validator) Length(field, s string, minLen, maxLen int) {
	if n := len(s); n < minLen || n > maxLen {
		v.AddError(field, fmt.Sprintf("length must be between %d and %d bytes, got %d", minLen, maxLen, n), s)
	}
}

func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// Matches records "must be <description>" when re does not match.
func (v *Validator) Matches(field, value string, re *regexp.Regexp, description string) {
	if !re.MatchString(value) {
		v.AddError(field, "must be "+description, value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, ", "), value), value)
	}
}

// Between checks lo <= value <= hi. Methods cannot take type parameters,
// hence the free functions.
func Between[T cmp.Ordered](v *Validator, field string, value, lo, hi T) {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("must be between %v and %v, got %v", lo, hi, value), value)
	}
}

// AtLeast checks value >= lo.
func AtLeast[T cmp.Ordered](v *Validator, field string, value, lo T) {
	if value < lo {
		v.AddError(field, fmt.Sprintf("must be at least %v, got %v", lo, value), value)
	}
}
