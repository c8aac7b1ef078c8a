// SPDX-License-Identifier: MIT

// Package ingest expands compact tracker telemetry into database rows.
//
// Trackers post short keys (id, sig, lat, ...) to save mobile bandwidth;
// older builds and test tools post the long column names instead. A payload
// may mix both.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Payload is one telemetry message as posted by a tracker. Every field is
// optional; compact and long spellings are kept apart until Expand.
type Payload struct {
	ID       *string `json:"id,omitempty"`
	DeviceID *string `json:"device_id,omitempty"`

	Sig           *int    `json:"sig,omitempty"`
	SignalQuality *int    `json:"signal_quality,omitempty"`
	Src           *string `json:"src,omitempty"`
	DataSource    *string `json:"data_source,omitempty"`
	Up            *int64  `json:"up,omitempty"`
	UptimeSeconds *int64  `json:"uptime_seconds,omitempty"`

	GPS        *Flag    `json:"gps,omitempty"`
	GPSValid   *Flag    `json:"gps_valid,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Alt        *float64 `json:"alt,omitempty"`
	Altitude   *float64 `json:"altitude,omitempty"`
	Sat        *int     `json:"sat,omitempty"`
	Satellites *int     `json:"satellites,omitempty"`
	HDOP       *float64 `json:"hdop,omitempty"`

	Acc        *Flag    `json:"acc,omitempty"`
	AccelValid *Flag    `json:"accel_valid,omitempty"`
	AX         *float64 `json:"ax,omitempty"`
	AccelX     *float64 `json:"accel_x,omitempty"`
	AY         *float64 `json:"ay,omitempty"`
	AccelY     *float64 `json:"accel_y,omitempty"`
	AZ         *float64 `json:"az,omitempty"`
	AccelZ     *float64 `json:"accel_z,omitempty"`

	Gyr       *Flag    `json:"gyr,omitempty"`
	GyroValid *Flag    `json:"gyro_valid,omitempty"`
	GX        *float64 `json:"gx,omitempty"`
	GyroX     *float64 `json:"gyro_x,omitempty"`
	GY        *float64 `json:"gy,omitempty"`
	GyroY     *float64 `json:"gyro_y,omitempty"`
	GZ        *float64 `json:"gz,omitempty"`
	GyroZ     *float64 `json:"gyro_z,omitempty"`

	Mag      *Flag    `json:"mag,omitempty"`
	MagValid *Flag    `json:"mag_valid,omitempty"`
	MX       *float64 `json:"mx,omitempty"`
	MagX     *float64 `json:"mag_x,omitempty"`
	MY       *float64 `json:"my,omitempty"`
	MagY     *float64 `json:"mag_y,omitempty"`
	MZ       *float64 `json:"mz,omitempty"`
	MagZ     *float64 `json:"mag_z,omitempty"`

	Tmp         *float64 `json:"tmp,omitempty"`
	TempValid   *Flag    `json:"temp_valid,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ErrEmptyPayload is returned by Decode for a body without any JSON value.
var ErrEmptyPayload = errors.New("empty payload")

// Decode parses a single JSON object. Unknown keys are ignored so newer
// firmware can add fields before the proxy learns about them.
func Decode(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	if data[0] != '{' {
		return Payload{}, errors.New("payload must be a JSON object")
	}

	var p Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if dec.More() {
		return Payload{}, errors.New("payload contains trailing data")
	}
	return p, nil
}
