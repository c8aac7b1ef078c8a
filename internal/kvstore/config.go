// SPDX-License-Identifier: MIT

package kvstore

import (
	"context"
	"fmt"

	"github.com/biketrack/biketrack/internal/secrets"
)

// SaveConfig stores the record under its device ID.
func SaveConfig(ctx context.Context, store Store, cfg secrets.DeviceConfig) error {
	if err := secrets.Validate(cfg); err != nil {
		return fmt.Errorf("save device config: %w", err)
	}
	return store.Put(ctx, cfg.DeviceID(), secrets.ToKV(cfg))
}

// LoadConfig reads and validates the record of a device.
func LoadConfig(ctx context.Context, store Store, deviceID string) (secrets.DeviceConfig, error) {
	kv, err := store.Get(ctx, deviceID)
	if err != nil {
		return secrets.DeviceConfig{}, err
	}
	cfg, err := secrets.FromKV(kv)
	if err != nil {
		return secrets.DeviceConfig{}, fmt.Errorf("device %s: %w", deviceID, err)
	}
	if cfg.DeviceID() != deviceID {
		return secrets.DeviceConfig{}, fmt.Errorf("device %s: stored record belongs to %s", deviceID, cfg.DeviceID())
	}
	return cfg, nil
}
