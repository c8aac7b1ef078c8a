// SPDX-License-Identifier: MIT

package secrets

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	platformnet "github.com/biketrack/biketrack/internal/platform/net"
	"github.com/biketrack/biketrack/internal/validate"
	"github.com/golang-jwt/jwt/v5"
)

var (
	simPinPattern      = regexp.MustCompile(`^[0-9]{4,8}$`)
	deviceIDPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	smsTargetPattern   = regexp.MustCompile(`^\+[0-9]{8,15}$`)
	placeholderPattern = regexp.MustCompile(`\{[A-Za-z0-9_]+\}`)
)

// now is replaced in tests.
var now = time.Now

// Validate checks every field of the record and reports all problems at once.
// Field names in the returned validate.ValidationError are symbol names.
func Validate(cfg DeviceConfig) error {
	v := validate.NewMasked(maskFieldValue)

	if _, ok := variantSymbols[cfg.variant]; !ok {
		v.AddError("variant", fmt.Sprintf("unknown variant %q", cfg.variant), string(cfg.variant))
		return v.Err()
	}

	for _, s := range cfg.variant.Symbols() {
		val, _ := cfg.Value(s)
		if m := placeholderPattern.FindString(val); m != "" {
			v.AddError(string(s), fmt.Sprintf("unresolved template placeholder %s", m), val)
		}
	}
	if !v.IsValid() {
		return v.Err()
	}

	v.Matches(string(SymbolSimPinCode), cfg.simPin, simPinPattern, "4 to 8 decimal digits")
	v.NotEmpty(string(SymbolAPN), cfg.apn)
	v.Matches(string(SymbolDeviceID), cfg.deviceID, deviceIDPattern,
		"1 to 64 characters of letters, digits, '_', '.' or '-'")

	proxy := v.URL(string(SymbolProxyURL), cfg.proxyURL, []string{"http", "https"})
	if cfg.variant.Has(SymbolProxyPort) {
		v.NotEmpty(string(SymbolProxyHost), cfg.proxyHost)
		if cfg.proxyHost != "" {
			if _, err := platformnet.NormalizeHost(cfg.proxyHost); err != nil {
				v.AddError(string(SymbolProxyHost), err.Error(), cfg.proxyHost)
			}
		}
		v.Port(string(SymbolProxyPort), cfg.proxyPort)
		if proxy != nil {
			validateProxyConsistency(v, proxy.Host, cfg.proxyHost, cfg.proxyPort)
		}
	}

	if cfg.variant.Has(SymbolSMSTarget) {
		v.Matches(string(SymbolSMSTarget), cfg.smsTarget, smsTargetPattern,
			"an E.164 phone number ('+' followed by 8 to 15 digits)")
	}

	if cfg.variant.Has(SymbolWiFiSSID) {
		v.Length(string(SymbolWiFiSSID), cfg.wifiSSID, 1, 32)
		// An empty password selects an open network.
		if cfg.wifiPassword != "" {
			v.Length(string(SymbolWiFiPassword), cfg.wifiPassword, 8, 63)
		}
	}

	if cfg.variant.Has(SymbolSupabaseURL) {
		v.URL(string(SymbolSupabaseURL), cfg.supabaseURL, []string{"https"})
		if err := checkAnonKey(cfg.supabaseAnonKey); err != nil {
			v.AddError(string(SymbolSupabaseAnonKey), err.Error(), cfg.supabaseAnonKey)
		}
	}

	return v.Err()
}

// maskFieldValue keeps secrets and URL credentials out of validate.Error.
func maskFieldValue(field string, value any) any {
	if s, ok := value.(string); ok {
		return maskedValue(Symbol(field), s)
	}
	return value
}

// validateProxyConsistency requires the URL authority to carry exactly the
// decomposed host and port.
func validateProxyConsistency(v *validate.Validator, authority, host string, port int) {
	urlHost, urlPort, err := net.SplitHostPort(authority)
	if err != nil {
		v.AddError(string(SymbolProxyURL),
			fmt.Sprintf("must carry an explicit port matching %s", SymbolProxyPort), authority)
		return
	}
	if host != "" && !platformnet.SameHost(urlHost, host) {
		v.AddError(string(SymbolProxyHost),
			fmt.Sprintf("%q does not match host %q of %s", host, urlHost, SymbolProxyURL), host)
	}
	if port > 0 && urlPort != strconv.Itoa(port) {
		v.AddError(string(SymbolProxyPort),
			fmt.Sprintf("%d does not match port %s of %s", port, urlPort, SymbolProxyURL), port)
	}
}

// checkAnonKey inspects the claims of a Supabase API key without verifying
// its signature; devices have no access to the project secret.
func checkAnonKey(token string) error {
	if token == "" {
		return errors.New("value cannot be empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("not a JWT: %v", err)
	}
	role, _ := claims["role"].(string)
	switch role {
	case "anon":
	case "service_role":
		return errors.New("service_role key must never be provisioned on a device")
	default:
		return fmt.Errorf("role claim must be \"anon\", got %q", role)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("invalid exp claim: %v", err)
	}
	if exp != nil && !exp.After(now()) {
		return fmt.Errorf("key expired at %s", exp.UTC().Format(time.RFC3339))
	}
	return nil
}
