package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 350, cfg.Extract.MaxClickables)
	assert.Equal(t, 50, cfg.Extract.MaxInputs)
	assert.Equal(t, 0.65, cfg.Rank.Thresholds.Default)
	assert.Equal(t, 0.35, cfg.Rank.Thresholds.Relaxed)
	assert.Equal(t, 3, cfg.Exec.MaxAttempts)
	assert.True(t, cfg.Flow.Enabled)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
extract:
  max_clickables: 100
flow:
  enabled: false
  store_path: /tmp/frags.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Extract.MaxClickables)
	assert.False(t, cfg.Flow.Enabled)
	assert.Equal(t, "/tmp/frags.db", cfg.Flow.StorePath)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.65, cfg.Rank.Thresholds.Default)
}

func TestWeightsMustSumToOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rank:
  weights:
    exact_text: 0.9
    similarity: 0.9
`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestRelaxedThresholdMustNotExceedDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rank:
  thresholds:
    default: 0.3
    relaxed: 0.8
`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UIAUTO_FRAGMENT_DB", "/tmp/env.db")
	t.Setenv("UIAUTO_MAX_ATTEMPTS", "5")
	t.Setenv("UIAUTO_FLOW_ENABLED", "off")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Exec.MaxAttempts)
	assert.False(t, cfg.Flow.Enabled)
	assert.Equal(t, "/tmp/env.db", cfg.Flow.StorePath)
}
