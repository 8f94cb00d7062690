package cliconfig

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Defaults for the recovery tunables.
const (
	DefaultClusterLength      = 128
	DefaultIsolationPasses    = 2
	DefaultSectorSize         = 2048
	DefaultRetryDelayMax      = 10 * time.Second
	DefaultCheckpointInterval = 5 * time.Second
	DefaultLogLevel           = "info"
)

// Config holds CLI configuration for rescue.
type Config struct {
	Input   string
	Output  string
	MapPath string

	ClusterLength   int
	IsolationPasses int
	SectorSize      int
	Direct          bool

	RetryDelay         time.Duration
	RetryDelayMax      time.Duration
	CheckpointInterval time.Duration

	MetricsAddr string
	LogLevel    string

	// Filled by LoadSourceInfo.
	SourceSize        int64
	BlockDevice       bool
	LogicalSectorSize int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ClusterLength:      DefaultClusterLength,
		IsolationPasses:    DefaultIsolationPasses,
		SectorSize:         DefaultSectorSize,
		Direct:             true,
		RetryDelayMax:      DefaultRetryDelayMax,
		CheckpointInterval: DefaultCheckpointInterval,
		LogLevel:           DefaultLogLevel,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}

	if c.Output == "" {
		c.Output = c.Input + ".iso"
	}
	if c.MapPath == "" {
		c.MapPath = c.Input + ".map"
	}
	if c.Output == c.Input || c.MapPath == c.Input || c.MapPath == c.Output {
		return fmt.Errorf("input, output and map must be distinct paths")
	}

	if c.ClusterLength <= 0 || c.ClusterLength > math.MaxUint16 {
		return fmt.Errorf("cluster length must be between 1 and %d", math.MaxUint16)
	}
	if c.IsolationPasses < 0 || c.IsolationPasses > math.MaxUint8 {
		return fmt.Errorf("brute passes must be between 0 and %d", math.MaxUint8)
	}
	if c.SectorSize <= 0 || c.SectorSize > math.MaxUint16 {
		return fmt.Errorf("sector size must be between 1 and %d", math.MaxUint16)
	}
	if c.Direct && c.LogicalSectorSize > 0 && c.SectorSize%c.LogicalSectorSize != 0 {
		return fmt.Errorf("sector size %d is not a multiple of the device's logical block size %d (direct I/O)",
			c.SectorSize, c.LogicalSectorSize)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	if c.RetryDelayMax < c.RetryDelay {
		c.RetryDelayMax = c.RetryDelay
	}
	if c.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint interval must not be negative")
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value from a pointer, so an explicit zero can be
// told apart from an absent value. Negative values are rejected, and so is
// zero unless allowZero.
func (s *configSetter) setIntPtr(flag string, value *int, allowZero bool, dst *int) error {
	if value == nil || s.changed[flag] {
		return nil
	}
	if *value < 0 || (*value == 0 && !allowZero) {
		if allowZero {
			return fmt.Errorf("%s must not be negative, got %d", flag, *value)
		}
		return fmt.Errorf("%s must be positive, got %d", flag, *value)
	}
	*dst = *value
	return nil
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and applies it like setIntPtr.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, allowZero bool, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	return s.setIntPtr(flag, &i, allowZero, dst)
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts the forms of strconv.ParseBool ("true", "1", "false", "0", ...).
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
