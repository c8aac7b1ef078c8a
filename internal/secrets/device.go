// SPDX-License-Identifier: MIT

package secrets

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/biketrack/biketrack/internal/validate"
)

// File is the YAML shape of a device provisioning file.
type File struct {
	Variant         string `yaml:"variant,omitempty" json:"variant,omitempty"`
	SimPin          string `yaml:"simPin,omitempty" json:"simPin,omitempty"`
	APN             string `yaml:"apn,omitempty" json:"apn,omitempty"`
	GPRSUser        string `yaml:"gprsUser,omitempty" json:"gprsUser,omitempty"`
	GPRSPass        string `yaml:"gprsPass,omitempty" json:"gprsPass,omitempty"`
	DeviceID        string `yaml:"deviceId,omitempty" json:"deviceId,omitempty"`
	ProxyURL        string `yaml:"proxyUrl,omitempty" json:"proxyUrl,omitempty"`
	ProxyHost       string `yaml:"proxyHost,omitempty" json:"proxyHost,omitempty"`
	ProxyPort       int    `yaml:"proxyPort,omitempty" json:"proxyPort,omitempty"`
	SMSTarget       string `yaml:"smsTarget,omitempty" json:"smsTarget,omitempty"`
	WiFiSSID        string `yaml:"wifiSsid,omitempty" json:"wifiSsid,omitempty"`
	WiFiPassword    string `yaml:"wifiPassword,omitempty" json:"wifiPassword,omitempty"`
	SupabaseURL     string `yaml:"supabaseUrl,omitempty" json:"supabaseUrl,omitempty"`
	SupabaseAnonKey string `yaml:"supabaseAnonKey,omitempty" json:"supabaseAnonKey,omitempty"`
}

// DeviceConfig is the immutable configuration record of one tracker. Values
// are produced by Build (directly or through Loader, FromKV and the header
// importer) and are never modified afterwards; copies are safe to share.
type DeviceConfig struct {
	variant         Variant
	simPin          string
	apn             string
	gprsUser        string
	gprsPass        string
	deviceID        string
	proxyURL        string
	proxyHost       string
	proxyPort       int
	smsTarget       string
	wifiSSID        string
	wifiPassword    string
	supabaseURL     string
	supabaseAnonKey string
}

func (c DeviceConfig) Variant() Variant        { return c.variant }
func (c DeviceConfig) SimPin() string          { return c.simPin }
func (c DeviceConfig) APN() string             { return c.apn }
func (c DeviceConfig) GPRSUser() string        { return c.gprsUser }
func (c DeviceConfig) GPRSPass() string        { return c.gprsPass }
func (c DeviceConfig) DeviceID() string        { return c.deviceID }
func (c DeviceConfig) ProxyURL() string        { return c.proxyURL }
func (c DeviceConfig) ProxyHost() string       { return c.proxyHost }
func (c DeviceConfig) ProxyPort() int          { return c.proxyPort }
func (c DeviceConfig) SMSTarget() string       { return c.smsTarget }
func (c DeviceConfig) WiFiSSID() string        { return c.wifiSSID }
func (c DeviceConfig) WiFiPassword() string    { return c.wifiPassword }
func (c DeviceConfig) SupabaseURL() string     { return c.supabaseURL }
func (c DeviceConfig) SupabaseAnonKey() string { return c.supabaseAnonKey }

// Equal reports whether both records carry the same variant and values.
func (c DeviceConfig) Equal(o DeviceConfig) bool { return c == o }

// Value returns the textual value of a symbol and whether the record's
// variant carries it.
func (c DeviceConfig) Value(s Symbol) (string, bool) {
	if !c.variant.Has(s) {
		return "", false
	}
	switch s {
	case SymbolSimPinCode:
		return c.simPin, true
	case SymbolAPN:
		return c.apn, true
	case SymbolGPRSUser:
		return c.gprsUser, true
	case SymbolGPRSPass:
		return c.gprsPass, true
	case SymbolDeviceID:
		return c.deviceID, true
	case SymbolProxyURL:
		return c.proxyURL, true
	case SymbolProxyHost:
		return c.proxyHost, true
	case SymbolProxyPort:
		return strconv.Itoa(c.proxyPort), true
	case SymbolSMSTarget:
		return c.smsTarget, true
	case SymbolWiFiSSID:
		return c.wifiSSID, true
	case SymbolWiFiPassword:
		return c.wifiPassword, true
	case SymbolSupabaseURL:
		return c.supabaseURL, true
	case SymbolSupabaseAnonKey:
		return c.supabaseAnonKey, true
	}
	return "", false
}

// File converts the record back into its YAML shape.
func (c DeviceConfig) File() File {
	f := File{
		Variant:         string(c.variant),
		SimPin:          c.simPin,
		APN:             c.apn,
		GPRSUser:        c.gprsUser,
		GPRSPass:        c.gprsPass,
		DeviceID:        c.deviceID,
		ProxyURL:        c.proxyURL,
		SMSTarget:       c.smsTarget,
		WiFiSSID:        c.wifiSSID,
		WiFiPassword:    c.wifiPassword,
		SupabaseURL:     c.supabaseURL,
		SupabaseAnonKey: c.supabaseAnonKey,
	}
	if c.variant.Has(SymbolProxyHost) {
		f.ProxyHost = c.proxyHost
		f.ProxyPort = c.proxyPort
	}
	return f
}

// value returns the file's raw value for a symbol and whether it is set.
func (f File) value(s Symbol) (string, bool) {
	var v string
	switch s {
	case SymbolSimPinCode:
		v = f.SimPin
	case SymbolAPN:
		v = f.APN
	case SymbolGPRSUser:
		v = f.GPRSUser
	case SymbolGPRSPass:
		v = f.GPRSPass
	case SymbolDeviceID:
		v = f.DeviceID
	case SymbolProxyURL:
		v = f.ProxyURL
	case SymbolProxyHost:
		v = f.ProxyHost
	case SymbolProxyPort:
		if f.ProxyPort == 0 {
			return "", false
		}
		return strconv.Itoa(f.ProxyPort), true
	case SymbolSMSTarget:
		v = f.SMSTarget
	case SymbolWiFiSSID:
		v = f.WiFiSSID
	case SymbolWiFiPassword:
		v = f.WiFiPassword
	case SymbolSupabaseURL:
		v = f.SupabaseURL
	case SymbolSupabaseAnonKey:
		v = f.SupabaseAnonKey
	}
	return v, v != ""
}

// set assigns a textual value to the field of a symbol.
func (f *File) set(s Symbol, v string) error {
	switch s {
	case SymbolSimPinCode:
		f.SimPin = v
	case SymbolAPN:
		f.APN = v
	case SymbolGPRSUser:
		f.GPRSUser = v
	case SymbolGPRSPass:
		f.GPRSPass = v
	case SymbolDeviceID:
		f.DeviceID = v
	case SymbolProxyURL:
		f.ProxyURL = v
	case SymbolProxyHost:
		f.ProxyHost = v
	case SymbolProxyPort:
		if v == "" {
			f.ProxyPort = 0
			return nil
		}
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: not an integer: %q", s, v)
		}
		f.ProxyPort = port
	case SymbolSMSTarget:
		f.SMSTarget = v
	case SymbolWiFiSSID:
		f.WiFiSSID = v
	case SymbolWiFiPassword:
		f.WiFiPassword = v
	case SymbolSupabaseURL:
		f.SupabaseURL = v
	case SymbolSupabaseAnonKey:
		f.SupabaseAnonKey = v
	default:
		return fmt.Errorf("unknown symbol %q", s)
	}
	return nil
}

// Build normalizes a provisioning file into a validated record. Proxy host
// and port are derived from the proxy URL when the variant carries them and
// the file leaves them unset.
func Build(f File) (DeviceConfig, error) {
	variant, err := ParseVariant(f.Variant)
	if err != nil {
		return DeviceConfig{}, err
	}

	v := validate.New()
	for _, s := range allSymbols {
		if variant.Has(s) {
			continue
		}
		if _, set := f.value(s); set {
			v.AddError(string(s), fmt.Sprintf("not part of variant %q", variant), nil)
		}
	}
	if err := v.Err(); err != nil {
		return DeviceConfig{}, err
	}

	cfg := DeviceConfig{variant: variant}
	cfg.simPin = f.SimPin
	cfg.apn = f.APN
	cfg.gprsUser = f.GPRSUser
	cfg.gprsPass = f.GPRSPass
	cfg.deviceID = f.DeviceID
	cfg.proxyURL = f.ProxyURL
	cfg.smsTarget = f.SMSTarget
	cfg.wifiSSID = f.WiFiSSID
	cfg.wifiPassword = f.WiFiPassword
	cfg.supabaseURL = f.SupabaseURL
	cfg.supabaseAnonKey = f.SupabaseAnonKey

	if variant.Has(SymbolProxyHost) {
		cfg.proxyHost = f.ProxyHost
		cfg.proxyPort = f.ProxyPort
		if host, port, ok := splitProxyURL(f.ProxyURL); ok {
			if cfg.proxyHost == "" {
				cfg.proxyHost = host
			}
			if cfg.proxyPort == 0 {
				cfg.proxyPort = port
			}
		}
	}

	if err := Validate(cfg); err != nil {
		return DeviceConfig{}, err
	}
	return cfg, nil
}

// splitProxyURL extracts host and explicit port from a proxy URL.
func splitProxyURL(raw string) (string, int, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", 0, false
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return u.Hostname(), 0, true
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0, true
	}
	return host, port, true
}
