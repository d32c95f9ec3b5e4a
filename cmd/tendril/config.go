package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkloadConfig describes the synthetic workload run by the bench command.
type WorkloadConfig struct {
	Fibers    int    `yaml:"fibers" json:"fibers"`
	Yields    int    `yaml:"yields" json:"yields"`
	Sleep     string `yaml:"sleep" json:"sleep"`
	StackSize int    `yaml:"stack_size" json:"stack_size"`
}

// DefaultWorkload is the workload used when no config file or flags override it.
func DefaultWorkload() WorkloadConfig {
	return WorkloadConfig{
		Fibers: 64,
		Yields: 100,
		Sleep:  "1ms",
	}
}

// SleepDuration parses the configured per-iteration sleep.
func (c WorkloadConfig) SleepDuration() (time.Duration, error) {
	if c.Sleep == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Sleep)
	if err != nil {
		return 0, fmt.Errorf("invalid sleep duration %q: %w", c.Sleep, err)
	}
	return d, nil
}

// LoadWorkload reads a workload configuration file (YAML or JSON).
func LoadWorkload(path string) (WorkloadConfig, error) {
	cfg := DefaultWorkload()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read workload config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse workload config: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse workload config: %w", err)
		}
	}

	if cfg.Fibers <= 0 {
		return cfg, fmt.Errorf("workload must declare at least one fiber")
	}
	return cfg, nil
}
