package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://stake.com", cfg.Platform.BaseURL)
	assert.Equal(t, 0.04, cfg.Policy.SaveRate)
	assert.Equal(t, 5.0, cfg.Policy.BigWinThreshold)
	assert.Equal(t, 10.0, cfg.Policy.BigWinMultiplier)
	assert.Equal(t, int64(90000), cfg.Policy.PollIntervalMs)
	assert.Equal(t, time.Hour, cfg.Limits.Window)
	assert.Equal(t, 50, cfg.Limits.MaxActions)
	assert.Equal(t, 30*time.Second, cfg.Limits.DepositTimeout)
	assert.Equal(t, time.Second, cfg.Init.Interval)
	assert.Equal(t, 5, cfg.Init.MaxTries)
	assert.True(t, cfg.AutoStart())
	assert.True(t, cfg.FeedEnabled())
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
platform:
  base_url: https://stake.us/
session:
  token: from-file
policy:
  save_rate: 0.1
  poll_interval_ms: 20000
limits:
  deposit_timeout: 45s
init:
  auto_start: false
feed:
  enabled: false
store:
  driver: file
log:
  level: debug
  file: logs/vault.log
`)
	t.Setenv("STAKE_SESSION_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("VAULT_CURRENCY", " LTC ")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://stake.us", cfg.Platform.BaseURL)
	assert.Equal(t, "from-env", cfg.Session.Token)
	assert.Equal(t, "ltc", cfg.Currency.Override)
	assert.Equal(t, 0.1, cfg.Policy.SaveRate)
	assert.Equal(t, 5.0, cfg.Policy.BigWinThreshold)
	assert.Equal(t, int64(20000), cfg.Policy.PollIntervalMs)
	assert.Equal(t, 45*time.Second, cfg.Limits.DepositTimeout)
	assert.False(t, cfg.AutoStart())
	assert.False(t, cfg.FeedEnabled())
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "logs/vault.log", cfg.Log.File)
	require.NoError(t, cfg.Validate())
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "policy: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		cfg.Session.Token = "token"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Session.Token = "" }},
		{"relative base url", func(c *Config) { c.Platform.BaseURL = "stake.com" }},
		{"save rate above one", func(c *Config) { c.Policy.SaveRate = 1.5 }},
		{"poll too fast", func(c *Config) { c.Policy.PollIntervalMs = 1000 }},
		{"negative max actions", func(c *Config) { c.Limits.MaxActions = -1 }},
		{"unknown store", func(c *Config) { c.Store.Driver = "redis" }},
		{"telegram half configured", func(c *Config) { c.Telegram.BotToken = "bot" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
