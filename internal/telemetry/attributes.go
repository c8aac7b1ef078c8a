// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by the ingestion spans.
const (
	DeviceIDKey       = "biketrack.device_id"
	PayloadBytesKey   = "biketrack.payload_bytes"
	GPSFixKey         = "biketrack.gps_fix"
	UpstreamTableKey  = "biketrack.upstream.table"
	UpstreamStatusKey = "biketrack.upstream.status"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// TelemetryAttributes describes one ingested row.
func TelemetryAttributes(deviceID string, payloadBytes int, gpsFix bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if deviceID != "" {
		attrs = append(attrs, attribute.String(DeviceIDKey, deviceID))
	}
	return append(attrs,
		attribute.Int(PayloadBytesKey, payloadBytes),
		attribute.Bool(GPSFixKey, gpsFix),
	)
}

// UpstreamAttributes describes the insert into the upstream table. A zero
// status is left out.
func UpstreamAttributes(table string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(UpstreamTableKey, table)}
	if status != 0 {
		attrs = append(attrs, attribute.Int(UpstreamStatusKey, status))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
