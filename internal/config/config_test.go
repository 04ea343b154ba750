package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
oracle:
  model: gpt-4o-mini
broker:
  api_url: https://apiconnect.angelone.in
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, 180, cfg.Confirm.TTLSeconds)
	assert.Equal(t, 30, cfg.Confirm.SweepSeconds)
	assert.Equal(t, 3, cfg.Instruments.MaxDistance)
	assert.InDelta(t, 0.6, cfg.Instruments.MinScore, 1e-9)
	assert.Equal(t, 4, cfg.Analysis.MaxConcurrency)
	assert.Equal(t, "data/kuber.db", cfg.Store.DBPath)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  log_level: debug
  http_addr: ":8000"
oracle:
  model: gpt-4o-mini
broker:
  api_url: https://apiconnect.angelone.in
confirm:
  ttl_seconds: 60
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":8000", cfg.App.HTTPAddr)
	assert.Equal(t, 60, cfg.Confirm.TTLSeconds)
}

func TestLoadExpandsSecretReferences(t *testing.T) {
	t.Setenv("TEST_ORACLE_KEY", "sk-test")
	cfg, err := Load(writeConfig(t, `
oracle:
  model: gpt-4o-mini
  api_key: ${TEST_ORACLE_KEY}
broker:
  api_url: https://apiconnect.angelone.in
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
}

func TestLoadRejectsMissingModel(t *testing.T) {
	_, err := Load(writeConfig(t, `
broker:
  api_url: https://apiconnect.angelone.in
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle.model")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
app:
  log_level: loud
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadRejectsBadMinScore(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
instruments:
  min_score: 1.5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_score")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
