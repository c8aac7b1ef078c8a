// SPDX-License-Identifier: MIT

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Flag is a validity bit. Firmware builds send it either as a JSON boolean
// or as 0/1.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1", `"1"`, `"true"`:
		*f = true
		return nil
	case "false", "0", `"0"`, `"false"`:
		*f = false
		return nil
	}
	if n, err := strconv.ParseFloat(string(data), 64); err == nil {
		*f = n != 0
		return nil
	}
	return fmt.Errorf("invalid flag value %s", data)
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

func flagPtr(f *Flag) *bool {
	if f == nil {
		return nil
	}
	b := bool(*f)
	return &b
}
