// SPDX-License-Identifier: MIT

package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderHeader(t *testing.T, cfg DeviceConfig) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, RenderHeader(&buf, cfg))
	return buf.String()
}

func TestRenderHeaderCellular(t *testing.T) {
	out := renderHeader(t, mustBuild(t, cellularFile()))

	want := `#ifndef ARDUINO_SECRETS_H
#define ARDUINO_SECRETS_H

#define SECRET_SIM_PIN_CODE "2305"
#define SECRET_APN "mmsbouygtel.com"
#define SECRET_GPRS_USER ""
#define SECRET_GPRS_PASS ""
#define SECRET_DEVICE_ID "A7670E_001"
#define SECRET_PROXY_URL "http://203.0.113.10:3000/proxy"
#define PROXY_HOST "203.0.113.10"
#define PROXY_PORT 3000

#endif // ARDUINO_SECRETS_H
`
	idx := strings.Index(out, "#ifndef")
	require.GreaterOrEqual(t, idx, 0)
	if diff := cmp.Diff(want, out[idx:]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, strings.HasPrefix(out, "// arduino_secrets.h generated by trackerctl"))
}

func TestRenderHeaderRejectsInvalidRecord(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, RenderHeader(&buf, DeviceConfig{}))
	assert.Zero(t, buf.Len())
}

func TestHeaderRoundTrip(t *testing.T) {
	files := []File{cellularFile(), finalFile(t), fullFile(t)}
	tricky := fullFile(t)
	tricky.WiFiPassword = "p\"ss\\wörd??!"
	tricky.APN = "apn\twith\ttabs"
	files = append(files, tricky)

	for _, f := range files {
		cfg := mustBuild(t, f)
		h, err := ParseHeader(strings.NewReader(renderHeader(t, cfg)))
		require.NoError(t, err)
		assert.Equal(t, HeaderGuard, h.Guard)
		assert.Empty(t, h.Unknown())

		parsed, err := h.File()
		require.NoError(t, err)
		again := mustBuild(t, parsed)
		assert.True(t, cfg.Equal(again), "variant %s: %s", cfg.Variant(), cmp.Diff(cfg.File(), again.File()))
	}
}

func TestHeaderIncludeGuard(t *testing.T) {
	header := renderHeader(t, mustBuild(t, cellularFile()))

	h, err := ParseHeader(strings.NewReader(header + header))
	require.NoError(t, err)
	assert.Len(t, h.Macros, len(VariantCellular.Symbols())+1)

	unguarded := strings.NewReader("#define SECRET_APN \"free\"\n#define SECRET_APN \"free\"\n")
	_, err = ParseHeader(unguarded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateDefinition))
	assert.Contains(t, err.Error(), "line 2")
}

func TestWriteHeaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arduino_secrets.h")
	cfg := mustBuild(t, finalFile(t))
	require.NoError(t, WriteHeaderFile(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `#define SECRET_SMS_TARGET "+33612345678"`)
	assert.NotContains(t, string(data), "PROXY_PORT")
}

func TestQuoteC(t *testing.T) {
	tests := map[string]string{
		"plain":      `"plain"`,
		`a"b`:        `"a\"b"`,
		`back\slash`: `"back\\slash"`,
		"line\nfeed": `"line\nfeed"`,
		"é":          `"\303\251"`,
		"??=":        `"\??="`,
		"why?":       `"why?"`,
		"\x01":       `"\001"`,
	}
	for in, want := range tests {
		assert.Equal(t, want, quoteC(in), "quoteC(%q)", in)
	}
}
