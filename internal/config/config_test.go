package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultChannel, cfg.Channel)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultImageHeight, cfg.ImageHeight)
	assert.Equal(t, DefaultImageWidth, cfg.ImageWidth)
	assert.True(t, cfg.Progress)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, "channel: Fpz-Cz\nbatch_size: 8\nfirst_sample_only: true\n# comment\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Fpz-Cz", cfg.Channel)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.True(t, cfg.FirstSampleOnly)
	assert.Equal(t, DefaultDataPath, cfg.DataPath)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "epochs: 3\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadBatchSize(t *testing.T) {
	path := writeConfig(t, "batch_size: 0\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "batch_size")
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{
		Channel:    "EEG",
		BatchSize:  4,
		Device:     "cuda:1",
		NoProgress: true,
	})
	assert.Equal(t, "EEG", cfg.Channel)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, "cuda:1", cfg.Device)
	assert.False(t, cfg.Progress)
	assert.Equal(t, DefaultLoadPath, cfg.LoadPath)
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := Default()
	cfg.LogEvery = 0
	cfg.PlotDir = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultLogEvery, cfg.LogEvery)
	assert.Equal(t, DefaultPlotDir, cfg.PlotDir)

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNumWorkers(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{NumWorkers: 4})
	assert.Equal(t, 4, cfg.NumWorkers)

	cfg.NumWorkers = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultNumWorkers, cfg.NumWorkers)

	cfg.NumWorkers = -1
	require.ErrorContains(t, cfg.Validate(), "num_workers")
}

func TestSeedZeroIsHonoured(t *testing.T) {
	cfg, err := Load(writeConfig(t, "seed: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.Seed)

	cfg = Default()
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, int64(DefaultSeed), cfg.Seed)

	zero := int64(0)
	cfg.ApplyOverrides(Overrides{Seed: &zero})
	assert.Equal(t, int64(0), cfg.Seed)
}
