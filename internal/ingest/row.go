// SPDX-License-Identifier: MIT

package ingest

import (
	"github.com/biketrack/biketrack/internal/validate"
)

// Row is the telemetry table row. Absent values are omitted so the
// database applies its column defaults.
type Row struct {
	DeviceID      string  `json:"device_id"`
	SignalQuality *int    `json:"signal_quality,omitempty"`
	DataSource    *string `json:"data_source,omitempty"`
	UptimeSeconds *int64  `json:"uptime_seconds,omitempty"`

	GPSValid   *bool    `json:"gps_valid,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Altitude   *float64 `json:"altitude,omitempty"`
	Satellites *int     `json:"satellites,omitempty"`
	HDOP       *float64 `json:"hdop,omitempty"`

	AccelValid *bool    `json:"accel_valid,omitempty"`
	AccelX     *float64 `json:"accel_x,omitempty"`
	AccelY     *float64 `json:"accel_y,omitempty"`
	AccelZ     *float64 `json:"accel_z,omitempty"`

	GyroValid *bool    `json:"gyro_valid,omitempty"`
	GyroX     *float64 `json:"gyro_x,omitempty"`
	GyroY     *float64 `json:"gyro_y,omitempty"`
	GyroZ     *float64 `json:"gyro_z,omitempty"`

	MagValid *bool    `json:"mag_valid,omitempty"`
	MagX     *float64 `json:"mag_x,omitempty"`
	MagY     *float64 `json:"mag_y,omitempty"`
	MagZ     *float64 `json:"mag_z,omitempty"`

	TempValid   *bool    `json:"temp_valid,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// SignalUnknown is the modem's "not known or not detectable" signal quality.
const SignalUnknown = 99

func pick[T any](compact, long *T) *T {
	if compact != nil {
		return compact
	}
	return long
}

// pickText is pick for strings, except that an empty compact value falls
// through. An empty identifier or source names nothing.
func pickText(compact, long *string) *string {
	if compact != nil && *compact != "" {
		return compact
	}
	return long
}

// Expand maps a payload onto the row schema. A compact key wins over its long
// spelling when both are present, even when it is zero or false; an empty
// compact string falls through to the long key. temp_valid is true whenever the compact
// temperature is present.
func Expand(p Payload) Row {
	r := Row{
		SignalQuality: pick(p.Sig, p.SignalQuality),
		DataSource:    pickText(p.Src, p.DataSource),
		UptimeSeconds: pick(p.Up, p.UptimeSeconds),

		GPSValid:   flagPtr(pick(p.GPS, p.GPSValid)),
		Latitude:   pick(p.Lat, p.Latitude),
		Longitude:  pick(p.Lng, p.Longitude),
		Altitude:   pick(p.Alt, p.Altitude),
		Satellites: pick(p.Sat, p.Satellites),
		HDOP:       p.HDOP,

		AccelValid: flagPtr(pick(p.Acc, p.AccelValid)),
		AccelX:     pick(p.AX, p.AccelX),
		AccelY:     pick(p.AY, p.AccelY),
		AccelZ:     pick(p.AZ, p.AccelZ),

		GyroValid: flagPtr(pick(p.Gyr, p.GyroValid)),
		GyroX:     pick(p.GX, p.GyroX),
		GyroY:     pick(p.GY, p.GyroY),
		GyroZ:     pick(p.GZ, p.GyroZ),

		MagValid: flagPtr(pick(p.Mag, p.MagValid)),
		MagX:     pick(p.MX, p.MagX),
		MagY:     pick(p.MY, p.MagY),
		MagZ:     pick(p.MZ, p.MagZ),

		Temperature: pick(p.Tmp, p.Temperature),
		TempValid:   flagPtr(p.TempValid),
	}
	if id := pickText(p.ID, p.DeviceID); id != nil {
		r.DeviceID = *id
	}
	if p.Tmp != nil {
		valid := true
		r.TempValid = &valid
	}
	return r
}

// Validate checks the row before it is forwarded.
func (r Row) Validate() error {
	v := validate.New()
	v.NotEmpty("device_id", r.DeviceID)
	v.Length("device_id", r.DeviceID, 0, 64)
	if r.SignalQuality != nil && *r.SignalQuality != SignalUnknown {
		validate.Between(v, "signal_quality", *r.SignalQuality, 0, 31)
	}
	if r.Latitude != nil {
		validate.Between(v, "latitude", *r.Latitude, -90, 90)
	}
	if r.Longitude != nil {
		validate.Between(v, "longitude", *r.Longitude, -180, 180)
	}
	if r.Satellites != nil {
		validate.AtLeast(v, "satellites", *r.Satellites, 0)
	}
	if r.UptimeSeconds != nil {
		validate.AtLeast(v, "uptime_seconds", *r.UptimeSeconds, 0)
	}
	if r.HDOP != nil {
		validate.AtLeast(v, "hdop", *r.HDOP, 0)
	}
	return v.Err()
}
