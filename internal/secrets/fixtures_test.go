// SPDX-License-Identifier: MIT

package secrets

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var keyExpiry = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

func signKey(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"iss": "supabase", "role": role}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-secret"))
	require.NoError(t, err)
	return token
}

func cellularFile() File {
	return File{
		Variant:  string(VariantCellular),
		SimPin:   "2305",
		APN:      "mmsbouygtel.com",
		DeviceID: "A7670E_001",
		ProxyURL: "http://203.0.113.10:3000/proxy",
	}
}

func finalFile(t *testing.T) File {
	return File{
		Variant:         string(VariantFinal),
		SupabaseURL:     "https://exampleproject.supabase.co",
		SupabaseAnonKey: signKey(t, "anon", keyExpiry),
		SimPin:          "1234",
		SMSTarget:       "+33612345678",
		APN:             "orange.fr",
		DeviceID:        "A7670E_003",
		WiFiSSID:        "Tracker_Hotspot",
		WiFiPassword:    "correct-horse",
		ProxyURL:        "https://proxy.example.net:8443/proxy",
	}
}

func fullFile(t *testing.T) File {
	f := finalFile(t)
	f.Variant = string(VariantFull)
	f.GPRSUser = "gprs"
	f.GPRSPass = "gprs-secret"
	f.ProxyHost = "proxy.example.net"
	f.ProxyPort = 8443
	return f
}

func mustBuild(t *testing.T, f File) DeviceConfig {
	t.Helper()
	cfg, err := Build(f)
	require.NoError(t, err)
	return cfg
}
