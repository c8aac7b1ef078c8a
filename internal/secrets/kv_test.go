// SPDX-License-Identifier: MIT

package secrets

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVRoundTrip(t *testing.T) {
	for _, f := range []File{cellularFile(), finalFile(t), fullFile(t)} {
		cfg := mustBuild(t, f)
		kv := ToKV(cfg)
		assert.Len(t, kv, len(cfg.Variant().Symbols()))

		back, err := FromKV(kv)
		require.NoError(t, err)
		if !cfg.Equal(back) {
			t.Errorf("variant %s round trip mismatch (-want +got):\n%s",
				cfg.Variant(), cmp.Diff(cfg.File(), back.File()))
		}
	}
}

func TestToKVCellular(t *testing.T) {
	kv := ToKV(mustBuild(t, cellularFile()))
	want := map[string]string{
		"SECRET_SIM_PIN_CODE": "2305",
		"SECRET_APN":          "mmsbouygtel.com",
		"SECRET_GPRS_USER":    "",
		"SECRET_GPRS_PASS":    "",
		"SECRET_DEVICE_ID":    "A7670E_001",
		"SECRET_PROXY_URL":    "http://203.0.113.10:3000/proxy",
		"PROXY_HOST":          "203.0.113.10",
		"PROXY_PORT":          "3000",
	}
	if diff := cmp.Diff(want, kv); diff != "" {
		t.Errorf("ToKV mismatch (-want +got):\n%s", diff)
	}
}

func TestFromKVErrors(t *testing.T) {
	kv := ToKV(mustBuild(t, cellularFile()))

	t.Run("unknown key", func(t *testing.T) {
		in := cloneKV(kv)
		in["SECRET_LORA_KEY"] = "x"
		_, err := FromKV(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SECRET_LORA_KEY")
	})
	t.Run("partial key set", func(t *testing.T) {
		in := cloneKV(kv)
		delete(in, "PROXY_HOST")
		_, err := FromKV(in)
		assert.True(t, errors.Is(err, ErrUnknownVariant))
	})
	t.Run("non-integer port", func(t *testing.T) {
		in := cloneKV(kv)
		in["PROXY_PORT"] = "three thousand"
		_, err := FromKV(in)
		require.Error(t, err)
	})
	t.Run("invalid value", func(t *testing.T) {
		in := cloneKV(kv)
		in["SECRET_SIM_PIN_CODE"] = "1"
		_, err := FromKV(in)
		assert.Equal(t, []string{"SECRET_SIM_PIN_CODE"}, failingFields(t, err))
	})
}

func cloneKV(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
