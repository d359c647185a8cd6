package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, RevisionMonitoring, cfg.BackendRevision)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
backend_url: http://analysis.internal:9000
backend_revision: dashboard
severity_mode: graded
refresh_interval: 45s
max_retries: 0
`)
	require.NoError(t, os.WriteFile(path, body, 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://analysis.internal:9000", cfg.BackendURL)
	assert.Equal(t, RevisionDashboard, cfg.BackendRevision)
	assert.Equal(t, "graded", cfg.SeverityMode)
	assert.Equal(t, 45*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SECDASH_BACKEND_REVISION", "legacy")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web_port: 9999\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, RevisionLegacy, cfg.BackendRevision)
	assert.Equal(t, 9999, cfg.WebPort)
}

func TestLoadConfigRejectsUnknownRevision(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_revision: v9\n"), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "backend_revision")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.BackendURL = "" }},
		{"bad mode", func(c *Config) { c.SeverityMode = "fuzzy" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero refresh", func(c *Config) { c.RefreshInterval = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("debug").String())
	assert.Equal(t, "warn", ParseLevel("warning").String())
	assert.Equal(t, "info", ParseLevel("bogus").String())
}
