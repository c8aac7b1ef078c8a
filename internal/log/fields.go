// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldDeviceID  = "device_id"

	// Process fields
	FieldEvent  = "event"
	FieldSource = "source"

	// Provisioning fields
	FieldSymbol  = "symbol"
	FieldVariant = "variant"
	FieldPath    = "path"
	FieldStore   = "store"

	// HTTP fields
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUpstream   = "upstream"
)
