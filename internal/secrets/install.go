// SPDX-License-Identifier: MIT

package secrets

import "sync"

var (
	installMu sync.RWMutex
	installed *DeviceConfig
)

// Install makes cfg the process-wide record. It must run before any network
// or sensor activity and succeeds only once per process.
func Install(cfg DeviceConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil {
		return ErrAlreadyInstalled
	}
	c := cfg
	installed = &c
	return nil
}

// Current returns the installed record.
func Current() (DeviceConfig, bool) {
	installMu.RLock()
	defer installMu.RUnlock()
	if installed == nil {
		return DeviceConfig{}, false
	}
	return *installed, true
}
