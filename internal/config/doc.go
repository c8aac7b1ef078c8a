// SPDX-License-Identifier: MIT

// Package config loads the ingestion proxy configuration.
//
// Precedence is ENV > file > defaults. The YAML file is parsed strictly:
// unknown keys, multiple documents and trailing content are rejected. A
// Holder keeps the active configuration and swaps it atomically when the
// file changes on disk.
package config
