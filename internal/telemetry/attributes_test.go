// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestTelemetryAttributes(t *testing.T) {
	attrs := TelemetryAttributes("A7670E_001", 87, false)
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(DeviceIDKey, "A7670E_001"),
		attribute.Int(PayloadBytesKey, 87),
		attribute.Bool(GPSFixKey, false),
	}, attrs)

	assert.Len(t, TelemetryAttributes("", 0, false), 2)
}

func TestUpstreamAttributes(t *testing.T) {
	assert.Len(t, UpstreamAttributes("bike_telemetry", 0), 1)
	attrs := UpstreamAttributes("bike_telemetry", 201)
	assert.Equal(t, attribute.Int(UpstreamStatusKey, 201), attrs[1])
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("upstream")
	assert.Equal(t, attribute.Bool(ErrorKey, true), attrs[0])
	assert.Equal(t, attribute.String(ErrorTypeKey, "upstream"), attrs[1])
}
