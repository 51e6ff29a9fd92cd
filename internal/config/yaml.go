package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

// LoadFile reads a RunConfig from a YAML policy file, applying
// defaults/env/validation exactly as Load does for a flag-built
// config. A policy file lets recurring rule sets (include/exclude
// lists, program overrides, retry tuning) live outside the shell
// invocation.
func LoadFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &RunConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
