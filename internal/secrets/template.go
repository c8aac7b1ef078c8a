// SPDX-License-Identifier: MIT

package secrets

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const templateHeadComment = `BikeTrack device provisioning file.
Fill in a copy per tracker and keep that copy out of version control.
Every key can be overridden at flash time by the environment variable
named in its comment; trackerctl render turns the result into
arduino_secrets.h.`

// RenderTemplate writes the YAML template of expected keys for a variant.
// Values are placeholders that fail validation until they are replaced.
func RenderTemplate(w io.Writer, variant Variant) error {
	if _, ok := variantSymbols[variant]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content,
		&yaml.Node{
			Kind:        yaml.ScalarNode,
			Value:       "variant",
			HeadComment: fmt.Sprintf("%s: one of full, cellular, final", EnvVariant),
		},
		&yaml.Node{Kind: yaml.ScalarNode, Value: string(variant)},
	)

	for _, s := range variant.Symbols() {
		info := symbolTable[s]
		key := &yaml.Node{
			Kind:        yaml.ScalarNode,
			Value:       info.yamlKey,
			HeadComment: fmt.Sprintf("%s: %s", s, info.description),
		}
		val := &yaml.Node{Kind: yaml.ScalarNode, Value: info.placeholder, Style: yaml.DoubleQuotedStyle}
		if s.Integer() {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: "0"}
		}
		mapping.Content = append(mapping.Content, key, val)
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: templateHeadComment,
		Content:     []*yaml.Node{mapping},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	return enc.Close()
}

// EncodeFile renders a provisioning file as YAML.
func EncodeFile(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode device file: %w", err)
	}
	return enc.Close()
}

// WriteFile atomically replaces path with the YAML form of f. The file is
// only readable by its owner.
func WriteFile(path string, f File) error {
	var buf bytes.Buffer
	if err := EncodeFile(&buf, f); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write device file %s: %w", path, err)
	}
	return nil
}
