// SPDX-License-Identifier: MIT

package secrets

import "time"

// resetInstalled clears the process-wide record between tests.
func resetInstalled() {
	installMu.Lock()
	installed = nil
	installMu.Unlock()
}

// setNow pins the clock used for key expiry checks.
func setNow(t time.Time) func() {
	prev := now
	now = func() time.Time { return t }
	return func() { now = prev }
}
