package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PresetMicro    = "micro"
	PresetStandard = "standard"
	PresetBulk     = "bulk"
)

// Preset bounds one batch execution. ChunkSize counts images, so a chunk
// carries at most 2*ChunkSize remote operations.
type Preset struct {
	ChunkSize   int           `yaml:"chunk_size"   json:"chunkSize"`
	MaxRetries  int           `yaml:"max_retries"  json:"maxRetries"`
	BackoffBase time.Duration `yaml:"backoff_base" json:"backoffBase"`
	BackoffMax  time.Duration `yaml:"backoff_max"  json:"backoffMax"`
}

type presetsFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// DefaultPresets returns the built-in presets. micro is the safe default
// for documents whose service rejects larger batches with internal errors.
func DefaultPresets() map[string]Preset {
	return map[string]Preset{
		PresetMicro:    {ChunkSize: 5, MaxRetries: 3, BackoffBase: time.Second, BackoffMax: 30 * time.Second},
		PresetStandard: {ChunkSize: 10, MaxRetries: 3, BackoffBase: time.Second, BackoffMax: 30 * time.Second},
		PresetBulk:     {ChunkSize: 25, MaxRetries: 2, BackoffBase: 2 * time.Second, BackoffMax: 30 * time.Second},
	}
}

// LoadPresets reads presets from a YAML file and merges them over the
// defaults. Fields left unset in the file keep the default of the same name.
func LoadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	presets := DefaultPresets()
	for name, p := range f.Presets {
		base, ok := presets[name]
		if !ok {
			base = presets[PresetMicro]
		}
		if p.ChunkSize > 0 {
			base.ChunkSize = p.ChunkSize
		}
		if p.MaxRetries > 0 {
			base.MaxRetries = p.MaxRetries
		}
		if p.BackoffBase > 0 {
			base.BackoffBase = p.BackoffBase
		}
		if p.BackoffMax > 0 {
			base.BackoffMax = p.BackoffMax
		}
		presets[name] = base
	}
	return presets, nil
}
