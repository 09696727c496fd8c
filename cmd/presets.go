package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloudlightning/cellsim/sim"
)

// presetsFile mirrors cmd/presets.yaml's top level. All sections must be
// listed to satisfy KnownFields(true) strict parsing, matching the
// teacher's cmd/default_config.go pattern for defaults.yaml.
type presetsFile struct {
	Version string                      `yaml:"version"`
	Presets map[string]sim.PowerPreset `yaml:"presets"`
}

// loadPowerPreset reads path (cmd/presets.yaml by default) and returns
// the named preset. A typo'd name is an InputError caught at startup by
// strict field checking plus an explicit lookup miss, not a silent
// zero-value curve.
func loadPowerPreset(path, name string) (*sim.PowerPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading power presets %s: %w", path, err)
	}
	var f presetsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, &sim.InputError{Field: "power-preset", Msg: err.Error()}
	}
	preset, ok := f.Presets[name]
	if !ok {
		return nil, &sim.InputError{Field: "power-preset", Msg: fmt.Sprintf("unknown preset %q in %s", name, path)}
	}
	return &preset, nil
}
