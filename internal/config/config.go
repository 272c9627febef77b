// Package config loads edge-node settings from environment variables:
// an optional ini file provides a base, and every key can be overridden
// by its environment variable of the same name.
package config

import (
	"encoding/hex"
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"edgevless/internal/dialer"
)

var errShortUUID = errors.New("uuid must decode to 16 bytes")

// Settings holds the full set of edge-node configuration keys.
type Settings struct {
	UUID      [16]byte
	HasUUID   bool
	Proxy     []string
	WSPath    string
	XHTTPPath string

	DoHQueryPath string
	IPQueryPath  string

	BufferSizeKiB  int
	XPaddingRange  string
	RelayScheduler string
	YieldSizeKiB   int
	YieldDelayMS   int

	UpstreamDoH string
	LogLevel    string
	TimeZone    string

	ListenAddr string
}

// defaults for every setting.
const (
	defaultBufferSizeKiB  = 128
	defaultXPaddingRange  = "100-1000"
	defaultRelayScheduler = "pipe"
	defaultYieldSizeKiB   = 2048
	defaultYieldDelayMS   = 0
	defaultUpstreamDoH    = "https://dns.google/dns-query"
	defaultLogLevel       = "none"
	defaultListenAddr     = "0.0.0.0:8080"
)

// Load builds Settings from environment variables, optionally seeded by
// an ini file at configPath (ignored if configPath is empty or unreadable).
func Load(configPath string) (*Settings, error) {
	s := &Settings{
		BufferSizeKiB:  defaultBufferSizeKiB,
		XPaddingRange:  defaultXPaddingRange,
		RelayScheduler: defaultRelayScheduler,
		YieldSizeKiB:   defaultYieldSizeKiB,
		YieldDelayMS:   defaultYieldDelayMS,
		UpstreamDoH:    defaultUpstreamDoH,
		LogLevel:       defaultLogLevel,
		ListenAddr:     defaultListenAddr,
	}

	raw := map[string]string{}
	if configPath != "" {
		if iniFile, err := ini.Load(configPath); err == nil {
			sec := iniFile.Section("edge")
			for _, key := range sec.Keys() {
				raw[key.Name()] = key.Value()
			}
		}
	}
	for _, name := range []string{
		"UUID", "PROXY", "WS_PATH", "XHTTP_PATH", "DOH_QUERY_PATH",
		"IP_QUERY_PATH", "BUFFER_SIZE", "XPADDING_RANGE", "RELAY_SCHEDULER",
		"YIELD_SIZE", "YIELD_DELAY", "UPSTREAM_DOH", "LOG_LEVEL", "TIME_ZONE",
		"LISTEN_ADDR",
	} {
		if v := os.Getenv(name); v != "" {
			raw[name] = v
		}
	}

	if v, ok := raw["UUID"]; ok && v != "" {
		u, err := parseUUID(v)
		if err != nil {
			return nil, err
		}
		s.UUID = u
		s.HasUUID = true
	}

	s.Proxy = dialer.ParseRelays(raw["PROXY"])
	s.WSPath = normalizePath(raw["WS_PATH"])
	s.XHTTPPath = normalizePath(raw["XHTTP_PATH"])
	s.DoHQueryPath = normalizePath(raw["DOH_QUERY_PATH"])
	s.IPQueryPath = normalizePath(raw["IP_QUERY_PATH"])

	overrideInt(&s.BufferSizeKiB, raw["BUFFER_SIZE"])
	if v, ok := raw["XPADDING_RANGE"]; ok && v != "" {
		s.XPaddingRange = v
	}
	if v, ok := raw["RELAY_SCHEDULER"]; ok && v != "" {
		s.RelayScheduler = v
	}
	overrideInt(&s.YieldSizeKiB, raw["YIELD_SIZE"])
	overrideInt(&s.YieldDelayMS, raw["YIELD_DELAY"])
	if v, ok := raw["UPSTREAM_DOH"]; ok && v != "" {
		s.UpstreamDoH = v
	}
	if v, ok := raw["LOG_LEVEL"]; ok && v != "" {
		s.LogLevel = v
	}
	if v, ok := raw["TIME_ZONE"]; ok && v != "" {
		s.TimeZone = v
	}
	if v, ok := raw["LISTEN_ADDR"]; ok && v != "" {
		s.ListenAddr = v
	}

	return s, nil
}

func overrideInt(target *int, value string) {
	if value == "" {
		return
	}
	if n, err := strconv.Atoi(value); err == nil {
		*target = n
	}
}

// normalizePath ensures a non-empty path ends with "/"; empty stays empty
// (disabling the feature).
func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

// parseUUID decodes a canonical dashed UUID string into 16 bytes.
func parseUUID(s string) ([16]byte, error) {
	var out [16]byte
	hexOnly := strings.ReplaceAll(s, "-", "")
	b, err := hex.DecodeString(hexOnly)
	if err != nil {
		return out, err
	}
	if len(b) != 16 {
		return out, errShortUUID
	}
	copy(out[:], b)
	return out, nil
}
