package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"UUID", "PROXY", "WS_PATH", "XHTTP_PATH", "DOH_QUERY_PATH",
		"IP_QUERY_PATH", "BUFFER_SIZE", "XPADDING_RANGE", "RELAY_SCHEDULER",
		"YIELD_SIZE", "YIELD_DELAY", "UPSTREAM_DOH", "LOG_LEVEL", "TIME_ZONE",
		"LISTEN_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	s, err := Load("")
	require.NoError(t, err)

	assert.False(t, s.HasUUID)
	assert.Equal(t, defaultBufferSizeKiB, s.BufferSizeKiB)
	assert.Equal(t, defaultXPaddingRange, s.XPaddingRange)
	assert.Equal(t, defaultRelayScheduler, s.RelayScheduler)
	assert.Equal(t, defaultYieldSizeKiB, s.YieldSizeKiB)
	assert.Equal(t, defaultYieldDelayMS, s.YieldDelayMS)
	assert.Equal(t, defaultUpstreamDoH, s.UpstreamDoH)
	assert.Equal(t, defaultLogLevel, s.LogLevel)
	assert.Equal(t, defaultListenAddr, s.ListenAddr)
	assert.Empty(t, s.WSPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("UUID", "01020304-0506-0708-090a-0b0c0d0e0f10")
	t.Setenv("PROXY", "1.2.3.4, 5.6.7.8")
	t.Setenv("WS_PATH", "ws")
	t.Setenv("BUFFER_SIZE", "256")
	t.Setenv("RELAY_SCHEDULER", "yield")
	t.Setenv("LOG_LEVEL", "debug")

	s, err := Load("")
	require.NoError(t, err)

	assert.True(t, s.HasUUID)
	assert.Equal(t, [16]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}, s.UUID)
	assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, s.Proxy)
	assert.Equal(t, "ws/", s.WSPath)
	assert.Equal(t, 256, s.BufferSizeKiB)
	assert.Equal(t, "yield", s.RelayScheduler)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoadRejectsShortUUID(t *testing.T) {
	clearEnv(t)
	t.Setenv("UUID", "deadbeef")
	_, err := Load("")
	assert.ErrorIs(t, err, errShortUUID)
}

func TestLoadRejectsNonHexUUID(t *testing.T) {
	clearEnv(t)
	t.Setenv("UUID", "not-hex-at-all-zz")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFromIniFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "edge.ini")
	contents := "[edge]\nBUFFER_SIZE = 64\nLOG_LEVEL = warn\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, s.BufferSizeKiB)
	assert.Equal(t, "warn", s.LogLevel)

	t.Setenv("LOG_LEVEL", "error")
	s, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", s.LogLevel, "env must win over the ini file")
}

func TestNormalizePathAppendsTrailingSlash(t *testing.T) {
	assert.Equal(t, "", normalizePath(""))
	assert.Equal(t, "foo/", normalizePath("foo"))
	assert.Equal(t, "foo/", normalizePath("foo/"))
}
