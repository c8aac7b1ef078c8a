// SPDX-License-Identifier: MIT

package ingest

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/biketrack/biketrack/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandJSON(t *testing.T, body string) Row {
	t.Helper()
	p, err := Decode([]byte(body))
	require.NoError(t, err)
	return Expand(p)
}

func rowJSON(t *testing.T, r Row) map[string]any {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestExpandCompactPayload(t *testing.T) {
	r := expandJSON(t, `{
		"id": "A7670E_001", "sig": 18, "src": "4G", "up": 3600,
		"gps": 1, "lat": 45.7640, "lng": 4.8357, "alt": 173.5, "sat": 9, "hdop": 0.9,
		"acc": true, "ax": 0.01, "ay": -0.02, "az": 0.98,
		"gyr": false,
		"tmp": 21.5
	}`)

	assert.Equal(t, map[string]any{
		"device_id":      "A7670E_001",
		"signal_quality": float64(18),
		"data_source":    "4G",
		"uptime_seconds": float64(3600),
		"gps_valid":      true,
		"latitude":       45.764,
		"longitude":      4.8357,
		"altitude":       173.5,
		"satellites":     float64(9),
		"hdop":           0.9,
		"accel_valid":    true,
		"accel_x":        0.01,
		"accel_y":        -0.02,
		"accel_z":        0.98,
		"gyro_valid":     false,
		"temp_valid":     true,
		"temperature":    21.5,
	}, rowJSON(t, r))
	require.NoError(t, r.Validate())
}

func TestExpandLongPayload(t *testing.T) {
	r := expandJSON(t, `{"device_id": "A7670E_002", "latitude": 48.85, "longitude": 2.35, "temp_valid": false, "mag_valid": 1, "mag_x": 12.5}`)

	assert.Equal(t, "A7670E_002", r.DeviceID)
	require.NotNil(t, r.TempValid)
	assert.False(t, *r.TempValid)
	require.NotNil(t, r.MagValid)
	assert.True(t, *r.MagValid)
	assert.Equal(t, 12.5, *r.MagX)
	assert.Nil(t, r.Temperature)
}

func TestExpandCompactWins(t *testing.T) {
	r := expandJSON(t, `{"id": "compact", "device_id": "long", "sig": 0, "signal_quality": 20, "gps": false, "gps_valid": true, "tmp": 0, "temp_valid": false}`)

	assert.Equal(t, "compact", r.DeviceID)
	assert.Equal(t, 0, *r.SignalQuality, "zero compact value must not fall through")
	assert.False(t, *r.GPSValid)
	assert.Equal(t, 0.0, *r.Temperature)
	assert.True(t, *r.TempValid)
}

func TestExpandEmptyCompactStringFallsThrough(t *testing.T) {
	r := expandJSON(t, `{"id": "", "device_id": "X", "src": "", "data_source": "WiFi", "sig": 0, "signal_quality": 20}`)

	assert.Equal(t, "X", r.DeviceID)
	require.NotNil(t, r.DataSource)
	assert.Equal(t, "WiFi", *r.DataSource)
	assert.Equal(t, 0, *r.SignalQuality)
	require.NoError(t, r.Validate())
}

func TestExpandOmitsAbsentValues(t *testing.T) {
	out := rowJSON(t, expandJSON(t, `{"id": "A7670E_001"}`))
	assert.Equal(t, map[string]any{"device_id": "A7670E_001"}, out)
}

func TestRowValidate(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing id", `{"lat": 1}`, "device_id"},
		{"latitude", `{"id": "d", "lat": 91}`, "latitude"},
		{"longitude", `{"id": "d", "lng": -180.5}`, "longitude"},
		{"signal", `{"id": "d", "sig": 32}`, "signal_quality"},
		{"satellites", `{"id": "d", "sat": -1}`, "satellites"},
		{"uptime", `{"id": "d", "up": -5}`, "uptime_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := expandJSON(t, tt.body).Validate()
			require.Error(t, err)
			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields(), tt.field)
		})
	}

	require.NoError(t, expandJSON(t, `{"id": "d", "sig": 99}`).Validate())
	require.NoError(t, expandJSON(t, `{"id": "d", "lat": -90, "lng": 180}`).Validate())
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte("  "))
	assert.True(t, errors.Is(err, ErrEmptyPayload))

	for _, body := range []string{
		`[1,2]`,
		`{"id": 12}`,
		`{"gps": "maybe"}`,
		`{"id": "a"} {"id": "b"}`,
		`{"id": "a"`,
	} {
		_, err := Decode([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestDecodeIgnoresUnknownKeys(t *testing.T) {
	p, err := Decode([]byte(`{"id": "A7670E_001", "bat": 87}`))
	require.NoError(t, err)
	assert.Equal(t, "A7670E_001", *p.ID)
}

func TestPayloadMarshalsCompactly(t *testing.T) {
	id, lat := "A7670E_001", 45.5
	gps := Flag(true)
	data, err := json.Marshal(Payload{ID: &id, Lat: &lat, GPS: &gps})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"A7670E_001","gps":true,"lat":45.5}`, string(data))
}

func TestFlagUnmarshal(t *testing.T) {
	tests := map[string]bool{
		"true": true, "false": false, "1": true, "0": false,
		`"1"`: true, `"false"`: false, "2": true, "0.0": false,
	}
	for in, want := range tests {
		var f Flag
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, bool(f), in)
	}
}
