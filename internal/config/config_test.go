package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *RunConfig {
	return &RunConfig{Datasets: []DatasetPair{{Src: "tank1/foo", Dst: "backup1:tank2/foo"}}}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, Load(cfg))
	assert.Equal(t, "dataset", cfg.SkipMissingSnapshots)
	assert.Equal(t, "dataset", cfg.SkipOnError)
	assert.Equal(t, 1, cfg.CompressionLevel)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsInvalidEnum(t *testing.T) {
	cfg := baseConfig()
	cfg.DryRun = "bogus"
	assert.Error(t, Load(cfg))
}

func TestLoadRequiresDatasets(t *testing.T) {
	cfg := &RunConfig{}
	assert.Error(t, Load(cfg))
}

func TestLoadReadsEnvOverride(t *testing.T) {
	t.Setenv("ZFSYNC_LOG_LEVEL", "debug")
	cfg := baseConfig()
	require.NoError(t, Load(cfg))
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEffectiveCompressionDisabled(t *testing.T) {
	cfg := baseConfig()
	cfg.NoCompression = true
	cfg.CompressionLevel = 5
	level, enabled := cfg.EffectiveCompression()
	assert.False(t, enabled)
	assert.Equal(t, 0, level)
}

func TestDatasetFilterExcludesByDefault(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, Load(cfg))
	f, err := cfg.DatasetFilter()
	require.NoError(t, err)
	assert.False(t, f.Allows("tmp"))
	assert.True(t, f.Allows("tank1/foo"))
}

func TestLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yml")
	body := "datasets:\n  - src: tank1/foo\n    dst: backup1:tank2/foo\nrecursive: true\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Recursive)
	require.Len(t, cfg.Datasets, 1)
	assert.Equal(t, "tank1/foo", cfg.Datasets[0].Src)
}
