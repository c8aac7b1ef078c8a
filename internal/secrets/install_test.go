// SPDX-License-Identifier: MIT

package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallOnce(t *testing.T) {
	resetInstalled()
	t.Cleanup(resetInstalled)

	_, ok := Current()
	require.False(t, ok)

	cfg := mustBuild(t, cellularFile())
	require.NoError(t, Install(cfg))

	got, ok := Current()
	require.True(t, ok)
	assert.True(t, cfg.Equal(got))

	err := Install(mustBuild(t, finalFile(t)))
	assert.True(t, errors.Is(err, ErrAlreadyInstalled))

	got, _ = Current()
	assert.Equal(t, VariantCellular, got.Variant())
}

func TestInstallRejectsInvalidRecord(t *testing.T) {
	resetInstalled()
	t.Cleanup(resetInstalled)

	require.Error(t, Install(DeviceConfig{}))
	_, ok := Current()
	assert.False(t, ok)
}
