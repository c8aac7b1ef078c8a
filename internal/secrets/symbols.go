// SPDX-License-Identifier: MIT

package secrets

import (
	"fmt"
	"strings"
)

// Symbol is the name of a macro in arduino_secrets.h. Firmware modules depend
// on these exact names; they double as environment keys and KV keys.
type Symbol string

const (
	SymbolSimPinCode      Symbol = "SECRET_SIM_PIN_CODE"
	SymbolAPN             Symbol = "SECRET_APN"
	SymbolGPRSUser        Symbol = "SECRET_GPRS_USER"
	SymbolGPRSPass        Symbol = "SECRET_GPRS_PASS"
	SymbolDeviceID        Symbol = "SECRET_DEVICE_ID"
	SymbolProxyURL        Symbol = "SECRET_PROXY_URL"
	SymbolProxyHost       Symbol = "PROXY_HOST"
	SymbolProxyPort       Symbol = "PROXY_PORT"
	SymbolSMSTarget       Symbol = "SECRET_SMS_TARGET"
	SymbolWiFiSSID        Symbol = "SECRET_WIFI_SSID"
	SymbolWiFiPassword    Symbol = "SECRET_WIFI_PASSWORD"
	SymbolSupabaseURL     Symbol = "SECRET_SUPABASE_URL"
	SymbolSupabaseAnonKey Symbol = "SECRET_SUPABASE_ANON_KEY"
)

// HeaderGuard is the include guard of the rendered header.
const HeaderGuard = "ARDUINO_SECRETS_H"

type symbolInfo struct {
	yamlKey     string
	description string
	placeholder string
	sensitive   bool
	integer     bool
}

var symbolTable = map[Symbol]symbolInfo{
	SymbolSimPinCode:      {"simPin", "SIM unlock code (4-8 digits)", "{PIN_SIM_CARD}", true, false},
	SymbolAPN:             {"apn", "carrier access point name, e.g. mmsbouygtel.com, orange.fr, websfr, free", "{YOUR_APN}", false, false},
	SymbolGPRSUser:        {"gprsUser", "GPRS user name (usually empty for French carriers)", "", false, false},
	SymbolGPRSPass:        {"gprsPass", "GPRS password (usually empty for French carriers)", "", true, false},
	SymbolDeviceID:        {"deviceId", "unique tracker identifier, e.g. A7670E_001", "{NAME_DEVICE}", false, false},
	SymbolProxyURL:        {"proxyUrl", "full URL of the ingestion proxy", "http://{IP_ADRESS}:3000/proxy", false, false},
	SymbolProxyHost:       {"proxyHost", "proxy host name or IP (derived from proxyUrl when empty)", "", false, false},
	SymbolProxyPort:       {"proxyPort", "proxy TCP port (derived from proxyUrl when 0)", "", false, true},
	SymbolSMSTarget:       {"smsTarget", "phone number receiving alert SMS, E.164", "{SMS_TARGET}", false, false},
	SymbolWiFiSSID:        {"wifiSsid", "fallback WiFi network name", "{WIFI_SSID}", false, false},
	SymbolWiFiPassword:    {"wifiPassword", "fallback WiFi password", "{WIFI_PASSWORD}", true, false},
	SymbolSupabaseURL:     {"supabaseUrl", "Supabase project URL", "{SUPABASE_URL}", false, false},
	SymbolSupabaseAnonKey: {"supabaseAnonKey", "Supabase anon API key (never the service_role key)", "{SUPABASE_ANON_KEY}", true, false},
}

var allSymbols = []Symbol{
	SymbolSimPinCode,
	SymbolAPN,
	SymbolGPRSUser,
	SymbolGPRSPass,
	SymbolDeviceID,
	SymbolProxyURL,
	SymbolProxyHost,
	SymbolProxyPort,
	SymbolSMSTarget,
	SymbolWiFiSSID,
	SymbolWiFiPassword,
	SymbolSupabaseURL,
	SymbolSupabaseAnonKey,
}

// Symbols returns every known symbol in canonical order.
func Symbols() []Symbol {
	out := make([]Symbol, len(allSymbols))
	copy(out, allSymbols)
	return out
}

// ParseSymbol resolves a macro name to a known symbol.
func ParseSymbol(name string) (Symbol, bool) {
	s := Symbol(name)
	_, ok := symbolTable[s]
	return s, ok
}

// String returns the macro name.
func (s Symbol) String() string { return string(s) }

// YAMLKey returns the key used for the symbol in device files.
func (s Symbol) YAMLKey() string { return symbolTable[s].yamlKey }

// Sensitive reports whether the value must never be logged in clear.
func (s Symbol) Sensitive() bool { return symbolTable[s].sensitive }

// Integer reports whether the macro is rendered as an integer literal.
func (s Symbol) Integer() bool { return symbolTable[s].integer }

// Variant names one of the field sets the tracker firmware has been built with.
type Variant string

const (
	// VariantFull carries every symbol and is the canonical record.
	VariantFull Variant = "full"
	// VariantCellular is the 4G-only build: SIM, APN, device ID and the
	// decomposed proxy target.
	VariantCellular Variant = "cellular"
	// VariantFinal adds Supabase, SMS alerting and WiFi fallback but has no
	// decomposed proxy host/port.
	VariantFinal Variant = "final"
)

var variantSymbols = map[Variant][]Symbol{
	VariantFull: allSymbols,
	VariantCellular: {
		SymbolSimPinCode,
		SymbolAPN,
		SymbolGPRSUser,
		SymbolGPRSPass,
		SymbolDeviceID,
		SymbolProxyURL,
		SymbolProxyHost,
		SymbolProxyPort,
	},
	VariantFinal: {
		SymbolSupabaseURL,
		SymbolSupabaseAnonKey,
		SymbolSimPinCode,
		SymbolSMSTarget,
		SymbolAPN,
		SymbolGPRSUser,
		SymbolGPRSPass,
		SymbolDeviceID,
		SymbolWiFiSSID,
		SymbolWiFiPassword,
		SymbolProxyURL,
	},
}

// Variants returns the known variants, smallest field set first.
func Variants() []Variant {
	return []Variant{VariantCellular, VariantFinal, VariantFull}
}

// ParseVariant parses a variant name. The empty string selects VariantFull.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return VariantFull, nil
	}
	if _, ok := variantSymbols[v]; !ok {
		return "", fmt.Errorf("unknown variant %q (known: full, cellular, final)", s)
	}
	return v, nil
}

// Symbols returns the variant's symbols in header order.
func (v Variant) Symbols() []Symbol {
	syms := variantSymbols[v]
	out := make([]Symbol, len(syms))
	copy(out, syms)
	return out
}

// Has reports whether the variant carries the symbol.
func (v Variant) Has(s Symbol) bool {
	for _, sym := range variantSymbols[v] {
		if sym == s {
			return true
		}
	}
	return false
}

// String returns the variant name.
func (v Variant) String() string { return string(v) }

// DetectVariant returns the variant whose symbol set is exactly present.
func DetectVariant(present map[Symbol]bool) (Variant, error) {
	for _, v := range Variants() {
		syms := variantSymbols[v]
		if len(syms) != len(present) {
			continue
		}
		match := true
		for _, s := range syms {
			if !present[s] {
				match = false
				break
			}
		}
		if match {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %d symbols do not match any variant", ErrUnknownVariant, len(present))
}

// CoveringVariant returns the smallest variant carrying every present symbol.
func CoveringVariant(present map[Symbol]bool) Variant {
	for _, v := range Variants() {
		covers := true
		for s := range present {
			if !v.Has(s) {
				covers = false
				break
			}
		}
		if covers {
			return v
		}
	}
	return VariantFull
}
