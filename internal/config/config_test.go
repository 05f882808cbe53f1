package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "usd", cfg.Ledger.ReferenceCurrency)
	assert.Equal(t, "10000", cfg.Ledger.StartingBalance)
	assert.Equal(t, 5*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 3000, cfg.Server.Port)
	require.Len(t, cfg.Ledger.Assets, 6)
	assert.Equal(t, "bitcoin", cfg.Ledger.Assets[0].Symbol)
	assert.True(t, cfg.Ledger.Assets[0].Active)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
ledger:
  starting_balance: "250.5"
  assets:
    - { symbol: bitcoin, active: true }
    - { symbol: eos, oracle_id: eos-token, active: false }
oracle:
  timeout: 750ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))
	t.Setenv("SERVER_PORT", "8081")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "250.5", cfg.Ledger.StartingBalance)
	assert.Equal(t, 750*time.Millisecond, cfg.Oracle.Timeout)
	assert.Equal(t, 8081, cfg.Server.Port)
	require.Len(t, cfg.Ledger.Assets, 2)
	assert.Equal(t, "eos-token", cfg.Ledger.Assets[1].OracleID)
	assert.False(t, cfg.Ledger.Assets[1].Active)
}
