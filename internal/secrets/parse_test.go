// SPDX-License-Identifier: MIT

package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T, name string) Header {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	h, err := ParseHeader(f)
	require.NoError(t, err)
	return h
}

func TestParseLegacyCellularTemplate(t *testing.T) {
	h := parseFixture(t, "legacy_cellular.h")
	assert.Equal(t, HeaderGuard, h.Guard)
	assert.Empty(t, h.Unknown())

	pin, ok := h.Lookup("SECRET_SIM_PIN_CODE")
	require.True(t, ok)
	assert.Equal(t, MacroPlaceholder, pin.Kind)
	assert.Equal(t, "{PIN_SIM_CARD}", pin.Value)

	port, ok := h.Lookup("PROXY_PORT")
	require.True(t, ok)
	assert.Equal(t, MacroInt, port.Kind)
	assert.Equal(t, "3000", port.Value)

	user, ok := h.Lookup("SECRET_GPRS_USER")
	require.True(t, ok)
	assert.Equal(t, MacroString, user.Kind)
	assert.Equal(t, "", user.Value)

	f, err := h.File()
	require.NoError(t, err)
	assert.Equal(t, string(VariantCellular), f.Variant)
	assert.Equal(t, 3000, f.ProxyPort)

	_, err = Build(f)
	assert.Equal(t, []string{
		"SECRET_SIM_PIN_CODE",
		"SECRET_APN",
		"SECRET_DEVICE_ID",
		"SECRET_PROXY_URL",
		"PROXY_HOST",
	}, failingFields(t, err))
}

func TestParseLegacyFinalHeader(t *testing.T) {
	h := parseFixture(t, "legacy_final.h")
	assert.Equal(t, HeaderGuard, h.Guard)

	f, err := h.File()
	require.NoError(t, err)
	cfg := mustBuild(t, f)

	assert.Equal(t, VariantFinal, cfg.Variant())
	assert.Equal(t, "A7670E_003", cfg.DeviceID())
	assert.Equal(t, "+33600000000", cfg.SMSTarget())
	assert.Equal(t, "http://203.0.113.10:3000/proxy", cfg.ProxyURL())
}

func TestParseHeaderDirectives(t *testing.T) {
	src := `
#ifdef USE_STAGING
#define SECRET_APN "staging"
#else
#define SECRET_APN "free"
#endif
#define SECRET_PROXY_URL "http://proxy.example.net" \
                         ":3000/proxy"
#define SECRET_DEVICE_ID "A7670E_\x34\062" /* trailing */
#define SECRET_GPRS_USER "a//b" // not a comment inside
#define DEBUG_LEVEL 2
#define TEMP_ID A7670E
#undef DEBUG_LEVEL
#define DEBUG_LEVEL 3
`
	h, err := ParseHeader(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "", h.Guard)

	get := func(name string) Macro {
		m, ok := h.Lookup(name)
		require.True(t, ok, name)
		return m
	}
	assert.Equal(t, "free", get("SECRET_APN").Value)
	assert.Equal(t, "http://proxy.example.net:3000/proxy", get("SECRET_PROXY_URL").Value)
	assert.Equal(t, "A7670E_42", get("SECRET_DEVICE_ID").Value)
	assert.Equal(t, "a//b", get("SECRET_GPRS_USER").Value)
	assert.Equal(t, "3", get("DEBUG_LEVEL").Value)
	assert.Equal(t, MacroRaw, get("TEMP_ID").Kind)
	assert.Equal(t, 9, get("SECRET_DEVICE_ID").Line)
	assert.ElementsMatch(t, []string{"DEBUG_LEVEL", "TEMP_ID"}, h.Unknown())
}

func TestParseHeaderErrors(t *testing.T) {
	tests := map[string]string{
		"function-like":   "#define SECRET_APN(x) x\n",
		"unterminated if": "#ifndef A\n#define A\n",
		"stray endif":     "#endif\n",
		"stray else":      "#else\n",
		"open string":     "#define SECRET_APN \"free\n",
		"bad escape":      "#define SECRET_APN \"\\q\"\n",
		"trailing text":   "#define SECRET_APN \"free\" extra\n",
		"missing name":    "#define\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHeader(strings.NewReader(src))
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrDuplicateDefinition))
		})
	}
}

func TestHeaderFileDropsPlaceholderPort(t *testing.T) {
	src := "#define SECRET_PROXY_URL \"http://h.example:3000/p\"\n#define PROXY_PORT {PORT}\n"
	h, err := ParseHeader(strings.NewReader(src))
	require.NoError(t, err)

	f, err := h.File()
	require.NoError(t, err)
	assert.Equal(t, 0, f.ProxyPort)
	assert.Equal(t, string(VariantCellular), f.Variant)
}

func TestHeaderFileRejectsNegativePortLiteral(t *testing.T) {
	h, err := ParseHeader(strings.NewReader("#define PROXY_PORT -1\n"))
	require.NoError(t, err)
	f, err := h.File()
	require.NoError(t, err)
	assert.Equal(t, -1, f.ProxyPort)
	_, err = Build(f)
	require.Error(t, err)
}
