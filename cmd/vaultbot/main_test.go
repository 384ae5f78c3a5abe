package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"VaultSentinel/internal/config"
	"VaultSentinel/internal/model"
	"VaultSentinel/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Platform.BaseURL = baseURL
	return cfg
}

func TestNewResolver_DisplayFileBeatsOutOfBandAmounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.txt")
	require.NoError(t, os.WriteFile(path, []byte("btc:0.50000000\n"), 0o644))

	cfg := testConfig("https://stake.com")
	cfg.Balance.DisplayFile = path
	orc := oracle.New(nil, &oracle.FileStrategy{Path: cfg.Balance.DisplayFile})
	orc.UpdateOutOfBand(model.BalanceSheet{"btc": {Available: 0.5}, "doge": {Available: 1000}})

	r := newResolver(cfg, nil, orc)
	code := r.Resolve()
	assert.Equal(t, "btc", code)
	assert.Equal(t, 0.5, orc.Read(context.Background(), code))
}

func TestNewResolver_OverrideWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.txt")
	require.NoError(t, os.WriteFile(path, []byte("btc:0.5\n"), 0o644))

	cfg := testConfig("https://stake.com")
	cfg.Currency.Override = "eth"
	orc := oracle.New(nil, &oracle.FileStrategy{Path: path})

	assert.Equal(t, "eth", newResolver(cfg, nil, orc).Resolve())
}

func TestNewResolver_FallsBackToPlatformDefault(t *testing.T) {
	orc := oracle.New(nil)
	orc.UpdateOutOfBand(model.BalanceSheet{"doge": {Available: 1000}})

	assert.Equal(t, "bnb", newResolver(testConfig("https://stake.com"), nil, orc).Resolve())
	assert.Equal(t, "sc", newResolver(testConfig("https://stake.us"), nil, orc).Resolve())
}
