package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPresetsYAML = `
version: "1"
presets:
  cpu-linear-commodity:
    cpu_model_type: -1
    cpu_idle_power: 80
    cpu_max_power: 220
    cpu_sleep_power: 10
`

func writeTestPresets(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPresetsYAML), 0o644))
	return path
}

func TestLoadPowerPresetSuccess(t *testing.T) {
	path := writeTestPresets(t)
	preset, err := loadPowerPreset(path, "cpu-linear-commodity")
	require.NoError(t, err)
	require.Equal(t, -1, preset.CPUModelType)
	require.InDelta(t, 80, preset.CPUIdle, 1e-9)
	require.InDelta(t, 220, preset.CPUMax, 1e-9)
}

func TestLoadPowerPresetUnknownName(t *testing.T) {
	path := writeTestPresets(t)
	_, err := loadPowerPreset(path, "does-not-exist")
	require.Error(t, err)
}

func TestLoadPowerPresetMissingFile(t *testing.T) {
	_, err := loadPowerPreset(filepath.Join(t.TempDir(), "missing.yaml"), "cpu-linear-commodity")
	require.Error(t, err)
}

func TestLoadPowerPresetFromRealPresetsFile(t *testing.T) {
	preset, err := loadPowerPreset("presets.yaml", "gpu-piecewise-accelerated")
	require.NoError(t, err)
	require.Equal(t, 1, preset.CPUModelType)
	require.Len(t, preset.CPUBins, 5)
	require.InDelta(t, 300, preset.AccMax, 1e-9)
}
