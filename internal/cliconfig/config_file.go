package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Numbers are pointers so an explicit zero is distinguishable from an absent key.
type FileConfig struct {
	Input              string `toml:"input"`
	Output             string `toml:"output"`
	MapPath            string `toml:"map"`
	ClusterLength      *int   `toml:"cluster_length"`
	IsolationPasses    *int   `toml:"brute_passes"`
	SectorSize         *int   `toml:"sector_size"`
	Direct             *bool  `toml:"direct"`
	RetryDelay         string `toml:"retry_delay"`
	RetryDelayMax      string `toml:"retry_delay_max"`
	CheckpointInterval string `toml:"checkpoint_interval"`
	MetricsAddr        string `toml:"metrics_addr"`
	LogLevel           string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.rescue/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rescue", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("input", fc.Input, &cfg.Input)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("map", fc.MapPath, &cfg.MapPath)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setIntPtr("cluster-length", fc.ClusterLength, false, &cfg.ClusterLength); err != nil {
		return err
	}
	if err := s.setIntPtr("brute-passes", fc.IsolationPasses, true, &cfg.IsolationPasses); err != nil {
		return err
	}
	if err := s.setIntPtr("sector-size", fc.SectorSize, false, &cfg.SectorSize); err != nil {
		return err
	}

	s.setBool("direct", fc.Direct, &cfg.Direct)

	if err := s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay-max", fc.RetryDelayMax, &cfg.RetryDelayMax); err != nil {
		return err
	}
	if err := s.setDuration("checkpoint-interval", fc.CheckpointInterval, &cfg.CheckpointInterval); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
