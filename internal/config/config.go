// Package config loads the service/CLI YAML configuration file, the way
// the teacher's main.go loads dtm-elevation-service.yaml: read with
// os.ReadFile, yaml.Unmarshal into a typed struct, hard-fail on a missing or
// invalid file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dem-terrain-render/internal/rendererr"
)

// Config is the full set of service/CLI knobs (SPEC_FULL.md §10.2).
type Config struct {
	ListenAddress string   `yaml:"listen_address"`
	LogDirectory  string   `yaml:"log_directory"`
	LogLevel      string   `yaml:"log_level"`
	CatalogFolders []string `yaml:"catalog_folders"`

	ChunkSizeMB      int     `yaml:"chunk_size_mb"`
	MaxMemoryPercent float64 `yaml:"max_memory_percent"`
	MaxOutputPixels  int64   `yaml:"max_output_pixels"`
	ShadowMethod     string  `yaml:"shadow_method"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
}

// Defaults matches spec.md §6's environment/config knob defaults.
func Defaults() Config {
	return Config{
		ListenAddress:    ":8080",
		LogDirectory:     "./logs",
		LogLevel:         "INFO",
		ChunkSizeMB:      200,
		MaxMemoryPercent: 0.85,
		MaxOutputPixels:  500_000_000,
		ShadowMethod:     "propagation",
		TimeoutSeconds:   1800,
	}
}

// Load reads and parses the YAML config file at path, filling any omitted
// field with its default.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, rendererr.Wrap(rendererr.IoError, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, rendererr.Wrap(rendererr.UnreadableHeader, path, err)
	}
	if len(cfg.CatalogFolders) == 0 {
		return Config{}, rendererr.New(rendererr.UnreadableHeader, fmt.Sprintf("%s: catalog_folders must list at least one folder", path))
	}
	return cfg, nil
}
