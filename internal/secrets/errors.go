// SPDX-License-Identifier: MIT

package secrets

import (
	"errors"

	"github.com/biketrack/biketrack/internal/platform/yamlx"
)

var (
	// ErrAlreadyInstalled is returned when a second record is installed in the process.
	ErrAlreadyInstalled = errors.New("device configuration already installed")
	// ErrDuplicateDefinition is returned when a header defines a macro twice.
	ErrDuplicateDefinition = errors.New("duplicate macro definition")
	// ErrUnknownVariant is returned when a symbol set matches no variant.
	ErrUnknownVariant = errors.New("unknown configuration variant")
	// ErrUnknownConfigField marks a device file naming a key File lacks.
	ErrUnknownConfigField = yamlx.ErrUnknownField
)
