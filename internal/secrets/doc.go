// SPDX-License-Identifier: MIT

// Package secrets holds the tracker's device configuration record: the SIM,
// cellular, WiFi, proxy and Supabase settings that the firmware reads through
// the macros of arduino_secrets.h.
//
// The record is loaded at provisioning time from a YAML file and the
// environment, validated, and then rendered into the header that is compiled
// into the firmware image. The header checked into version control is only a
// template of the expected keys (see RenderTemplate).
package secrets
