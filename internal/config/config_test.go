package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "/sumo", cfg.StatusPath)
	assert.Equal(t, "/api", cfg.CommandPath)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_URL", "http://sim.local:9000")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("OUTPUT", "html")
	t.Setenv("COMMAND_RATE_LIMIT", "0.5")
	t.Setenv("ALLOWED_ORIGINS", "http://a.local, http://b.local")
	t.Setenv("METRICS_PORT", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://sim.local:9000", cfg.ServerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "html", cfg.Output)
	assert.Equal(t, 0.5, cfg.CommandRateLimit)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.AllowedOrigins)
	assert.Equal(t, 9090, cfg.MetricsPort)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	content := `
server_url: http://from-file:8080
poll_interval: 2s
output: html
allowed_origins:
  - http://ui.local
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("POLL_INTERVAL", "500ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:8080", cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "html", cfg.Output)
	assert.Equal(t, []string{"http://ui.local"}, cfg.AllowedOrigins)
	assert.Equal(t, "/sumo", cfg.StatusPath)
}

func TestLoadOverridesRunBeforeValidation(t *testing.T) {
	t.Setenv("OUTPUT", "pdf")

	_, err := Load("")
	require.Error(t, err)

	cfg, err := Load("", func(c *Config) { c.Output = "html" })
	require.NoError(t, err)
	assert.Equal(t, "html", cfg.Output)

	_, err = Load("", func(c *Config) {
		c.Output = "text"
		c.ServerURL = ""
	})
	assert.ErrorContains(t, err, "DASHBOARD_URL")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty url", mutate: func(c *Config) { c.ServerURL = "" }, wantErr: true},
		{name: "relative path", mutate: func(c *Config) { c.StatusPath = "sumo" }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: true},
		{name: "bad output", mutate: func(c *Config) { c.Output = "json" }, wantErr: true},
		{name: "zero burst", mutate: func(c *Config) { c.CommandBurst = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
