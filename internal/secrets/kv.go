// SPDX-License-Identifier: MIT

package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// ToKV flattens the record into a map keyed by symbol name. Only the symbols
// of the record's variant are present; PROXY_PORT is stored in decimal.
func ToKV(cfg DeviceConfig) map[string]string {
	out := make(map[string]string, len(cfg.variant.Symbols()))
	for _, s := range cfg.variant.Symbols() {
		val, _ := cfg.Value(s)
		out[string(s)] = val
	}
	return out
}

// FromKV rebuilds a record from a map produced by ToKV. The variant is
// recovered from the set of keys present.
func FromKV(kv map[string]string) (DeviceConfig, error) {
	present := make(map[Symbol]bool, len(kv))
	var unknown []string
	for k := range kv {
		s, ok := ParseSymbol(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		present[s] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return DeviceConfig{}, fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}

	variant, err := DetectVariant(present)
	if err != nil {
		return DeviceConfig{}, err
	}

	f := File{Variant: string(variant)}
	for s := range present {
		if err := f.set(s, kv[string(s)]); err != nil {
			return DeviceConfig{}, err
		}
	}
	return Build(f)
}
