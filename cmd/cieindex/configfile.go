package main

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/codegraph/internal/config"
)

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// fileOverrides is the subset of internal/config's structs a project may
// override from a .codegraph.yaml at its root. internal/config itself
// carries no file I/O (see its package doc), so loading and applying this
// file is this binary's job, not the config package's.
type fileOverrides struct {
	Exclude         []string `yaml:"exclude"`
	MaxFileSizeMB   int64    `yaml:"max_file_size_mb"`
	WatchDebounceMs int      `yaml:"watch_debounce_ms"`
}

// loadConfigFile reads <root>/.codegraph.yaml if present, applying its
// overrides on top of base. Absence of the file is not an error.
func loadConfigFile(root string, guardrails config.Guardrails, watchCfg config.WatchConfig) (config.Guardrails, config.WatchConfig, error) {
	data, err := os.ReadFile(filepath.Join(root, ".codegraph.yaml"))
	if os.IsNotExist(err) {
		return guardrails, watchCfg, nil
	}
	if err != nil {
		return guardrails, watchCfg, err
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return guardrails, watchCfg, err
	}

	if len(overrides.Exclude) > 0 {
		guardrails.ExcludeGlobs = append(guardrails.ExcludeGlobs, overrides.Exclude...)
	}
	if overrides.MaxFileSizeMB > 0 {
		guardrails.MaxFileSizeBytes = overrides.MaxFileSizeMB * 1024 * 1024
	}
	if overrides.WatchDebounceMs > 0 {
		watchCfg.Debounce = msDuration(overrides.WatchDebounceMs)
	}
	return guardrails, watchCfg, nil
}
