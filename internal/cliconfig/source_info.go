package cliconfig

import (
	"fmt"

	"github.com/bft-labs/rescue/internal/adapters/device"
)

// LoadSourceInfo probes the input named in cfg and records its size, kind
// and logical block size. It must run before Validate so direct I/O
// alignment can be checked.
func LoadSourceInfo(cfg *Config) error {
	if cfg.Input == "" {
		return fmt.Errorf("input is required")
	}
	info, err := device.Probe(cfg.Input)
	if err != nil {
		return fmt.Errorf("probe input: %w", err)
	}
	if info.Size == 0 {
		return fmt.Errorf("probe input: %s is empty", cfg.Input)
	}

	cfg.SourceSize = info.Size
	cfg.BlockDevice = info.BlockDevice
	cfg.LogicalSectorSize = int(info.LogicalSectorSize)
	return nil
}
