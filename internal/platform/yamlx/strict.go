// SPDX-License-Identifier: MIT

// Package yamlx decodes operator-written YAML files strictly.
package yamlx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownField marks a document that names a key the target type lacks.
	ErrUnknownField = errors.New("unknown config field")
	// ErrTrailingContent marks a file holding more than one document.
	ErrTrailingContent = errors.New("multiple documents or trailing content")
)

// DecodeStrict decodes a single YAML document into out, rejecting unknown
// keys. Empty input leaves out untouched.
func DecodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if unknownField(err) {
			return fmt.Errorf("%w: %v", ErrUnknownField, err)
		}
		return fmt.Errorf("strict parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrTrailingContent
	}
	return nil
}

// unknownField reports whether err lists a key missing from the target type.
// yaml.v3 has no typed error for it, only "field x not found in type y".
func unknownField(err error) bool {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return false
	}
	for _, msg := range te.Errors {
		if strings.Contains(msg, "field ") && strings.Contains(msg, " not found in type") {
			return true
		}
	}
	return false
}
