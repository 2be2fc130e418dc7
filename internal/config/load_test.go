package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	loaded, err := Load("")
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
backend:
  base_url: https://desk.example.net
  timeout: 10s
audio:
  input: usb-mic
speech:
  command: say
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "https://desk.example.net", loaded.Config.Backend.BaseURL)
	require.Equal(t, 10*time.Second, loaded.Config.Backend.Timeout)
	require.Equal(t, "usb-mic", loaded.Config.Audio.Input)
	require.Equal(t, "say", loaded.Config.Speech.Command)
	// Untouched sections keep defaults.
	require.Equal(t, "/health", loaded.Config.Backend.HealthPath)
	require.Equal(t, "default", loaded.Config.Audio.Fallback)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FRONTDESK_BACKEND_BASE_URL", "http://10.0.0.4:5000")

	loaded, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://10.0.0.4:5000", loaded.Config.Backend.BaseURL)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  base_url: \"\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "base_url")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*Config) {}, wantErr: ""},
		{name: "empty base url", mutate: func(c *Config) { c.Backend.BaseURL = " " }, wantErr: "base_url"},
		{name: "relative base url", mutate: func(c *Config) { c.Backend.BaseURL = "desk.example.net" }, wantErr: "absolute URL"},
		{name: "bad scheme", mutate: func(c *Config) { c.Backend.BaseURL = "ftp://x.example" }, wantErr: "scheme"},
		{name: "zero timeout", mutate: func(c *Config) { c.Backend.Timeout = 0 }, wantErr: "timeout"},
		{name: "health path without slash", mutate: func(c *Config) { c.Backend.HealthPath = "health" }, wantErr: "health_path"},
		{name: "empty speech command", mutate: func(c *Config) { c.Speech.Command = "" }, wantErr: "speech.command"},
		{name: "zero latency", mutate: func(c *Config) { c.Playback.LatencySeconds = 0 }, wantErr: "latency_seconds"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.yaml")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.yaml", path)
}

func TestResolvePathUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/xdg/frontdesk/config.yaml", path)
}
