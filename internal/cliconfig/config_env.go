package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (RESCUE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("input", os.Getenv("RESCUE_INPUT"), &cfg.Input)
	s.setString("output", os.Getenv("RESCUE_OUTPUT"), &cfg.Output)
	s.setString("map", os.Getenv("RESCUE_MAP"), &cfg.MapPath)
	s.setString("metrics-addr", os.Getenv("RESCUE_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("RESCUE_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("cluster-length", os.Getenv("RESCUE_CLUSTER_LENGTH"), false, &cfg.ClusterLength); err != nil {
		return err
	}
	if err := s.setIntFromString("brute-passes", os.Getenv("RESCUE_BRUTE_PASSES"), true, &cfg.IsolationPasses); err != nil {
		return err
	}
	if err := s.setIntFromString("sector-size", os.Getenv("RESCUE_SECTOR_SIZE"), false, &cfg.SectorSize); err != nil {
		return err
	}

	if err := s.setDuration("retry-delay", os.Getenv("RESCUE_RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay-max", os.Getenv("RESCUE_RETRY_DELAY_MAX"), &cfg.RetryDelayMax); err != nil {
		return err
	}
	if err := s.setDuration("checkpoint-interval", os.Getenv("RESCUE_CHECKPOINT_INTERVAL"), &cfg.CheckpointInterval); err != nil {
		return err
	}

	return s.setBoolFromString("direct", os.Getenv("RESCUE_DIRECT"), &cfg.Direct)
}
