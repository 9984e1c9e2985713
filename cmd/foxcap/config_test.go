package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory that also serves as HOME.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"FOXCAP_HOST", "FOXCAP_PORT", "FOXCAP_TRANSPORT", "FOXCAP_PATH", "FOXCAP_TIMEOUT", "FOXCAP_OUTPUT", "FOXCAP_LOG_LEVEL", "FOXCAP_METRICS_ADDR", "FOXCAP_FIREFOX", "FOXCAP_PROFILE"} {
		t.Setenv(key, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestConfig_Precedence(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".foxcaprc"), `
host: rc-host
port: 1111
output: text
timeout: 7s
firefox: /opt/firefox/firefox
`)
	writeFile(t, filepath.Join(dir, ".env"), "FOXCAP_HOST=dotenv-host\nFOXCAP_PORT=2222\n")
	t.Setenv("FOXCAP_PORT", "3333")

	cfg := testConfig()
	require.Equal(t, ExitSuccess, run([]string{"help"}, cfg))

	assert.Equal(t, "dotenv-host", cfg.Host)
	assert.Equal(t, 3333, cfg.Port)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, "/opt/firefox/firefox", cfg.FirefoxPath)

	cfg = testConfig()
	require.Equal(t, ExitSuccess, run([]string{"--port", "4444", "--host", "flag-host", "help"}, cfg))
	assert.Equal(t, "flag-host", cfg.Host)
	assert.Equal(t, 4444, cfg.Port)

	_, set := os.LookupEnv("FOXCAP_HOST")
	assert.True(t, set)
	assert.Empty(t, os.Getenv("FOXCAP_HOST"), ".env must not leak into the process environment")
}

func TestConfig_HomeFile(t *testing.T) {
	dir := isolate(t)
	home := filepath.Join(dir, "home")
	require.NoError(t, os.Mkdir(home, 0o700))
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".foxcaprc"), "port: 5555\nwindow: 2\n")

	cfg := testConfig()
	require.Equal(t, ExitSuccess, run([]string{"help"}, cfg))
	assert.Equal(t, 5555, cfg.Port)
	assert.Equal(t, 2, cfg.Window)

	writeFile(t, filepath.Join(dir, ".foxcaprc"), "port: 6666\n")
	cfg = testConfig()
	require.Equal(t, ExitSuccess, run([]string{"help"}, cfg))
	assert.Equal(t, 6666, cfg.Port)
	assert.Equal(t, -1, cfg.Window, "only the first file found applies")
}

func TestConfig_MalformedFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".foxcaprc"), "port: [not a port\n")

	cfg := testConfig()
	assert.Equal(t, ExitError, run([]string{"help"}, cfg))
	assert.Contains(t, stderr(cfg), ".foxcaprc")
}

func TestConfig_InvalidEnvPortIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("FOXCAP_PORT", "99999")

	cfg := testConfig()
	require.Equal(t, ExitSuccess, run([]string{"help"}, cfg))
	assert.Equal(t, 9997, cfg.Port)
}

func TestConfig_MetricsEndpoint(t *testing.T) {
	isolate(t)

	cfg := testConfig()
	require.Equal(t, ExitSuccess, run([]string{"--metrics-addr", "127.0.0.1:0", "help"}, cfg))
	assert.False(t, strings.Contains(stderr(cfg), "error"), stderr(cfg))
}

func TestParsePort(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		in   string
		want int
		ok   bool
	}{
		{"9997", 9997, true},
		{"1", 1, true},
		{"0", 0, false},
		{"65536", 0, false},
		{"port", 0, false},
	} {
		got, err := parsePort(tt.in)
		if tt.ok {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}
