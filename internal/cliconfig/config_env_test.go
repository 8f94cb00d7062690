package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"RESCUE_INPUT":               "/dev/sr0",
				"RESCUE_OUTPUT":              "/srv/disc.iso",
				"RESCUE_MAP":                 "/srv/disc.map",
				"RESCUE_CLUSTER_LENGTH":      "64",
				"RESCUE_BRUTE_PASSES":        "4",
				"RESCUE_SECTOR_SIZE":         "512",
				"RESCUE_DIRECT":              "false",
				"RESCUE_RETRY_DELAY":         "250ms",
				"RESCUE_RETRY_DELAY_MAX":     "4s",
				"RESCUE_CHECKPOINT_INTERVAL": "1m",
				"RESCUE_METRICS_ADDR":        ":9109",
				"RESCUE_LOG_LEVEL":           "debug",
			},
			changed: map[string]bool{},
			initial: Config{Direct: true},
			expected: Config{
				Input:              "/dev/sr0",
				Output:             "/srv/disc.iso",
				MapPath:            "/srv/disc.map",
				ClusterLength:      64,
				IsolationPasses:    4,
				SectorSize:         512,
				Direct:             false,
				RetryDelay:         250 * time.Millisecond,
				RetryDelayMax:      4 * time.Second,
				CheckpointInterval: time.Minute,
				MetricsAddr:        ":9109",
				LogLevel:           "debug",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"RESCUE_INPUT":          "/dev/sr0",
				"RESCUE_CLUSTER_LENGTH": "64",
			},
			changed:  map[string]bool{"input": true},
			initial:  Config{Input: "/dev/sr1", ClusterLength: 128},
			expected: Config{Input: "/dev/sr1", ClusterLength: 64},
		},
		{
			name:     "zero brute passes is applied",
			envVars:  map[string]string{"RESCUE_BRUTE_PASSES": "0"},
			changed:  map[string]bool{},
			initial:  Config{IsolationPasses: 2},
			expected: Config{IsolationPasses: 0},
		},
		{
			name:    "returns error for zero cluster length",
			envVars: map[string]string{"RESCUE_CLUSTER_LENGTH": "0"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for negative cluster length",
			envVars: map[string]string{"RESCUE_CLUSTER_LENGTH": "-64"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for negative brute passes",
			envVars: map[string]string{"RESCUE_BRUTE_PASSES": "-1"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid bool",
			envVars: map[string]string{"RESCUE_DIRECT": "yes please"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "negative value ignored when flag changed",
			envVars:  map[string]string{"RESCUE_BRUTE_PASSES": "-1"},
			changed:  map[string]bool{"brute-passes": true},
			initial:  Config{IsolationPasses: 3},
			expected: Config{IsolationPasses: 3},
		},
		{
			name:     "direct accepts 1",
			envVars:  map[string]string{"RESCUE_DIRECT": "1"},
			changed:  map[string]bool{},
			expected: Config{Direct: true},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"RESCUE_RETRY_DELAY": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"RESCUE_SECTOR_SIZE": "big"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	passes := 5
	fileConf := FileConfig{
		Input:           "/file/input",
		Output:          "/file/output",
		MapPath:         "/file/map",
		IsolationPasses: &passes,
	}

	t.Setenv("RESCUE_OUTPUT", "/env/output")
	t.Setenv("RESCUE_MAP", "/env/map")

	// Simulate CLI flags
	changed := map[string]bool{"map": true}
	cfg := DefaultConfig()
	cfg.MapPath = "/cli/map"

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.MapPath != "/cli/map" {
		t.Errorf("MapPath = %v, want /cli/map (CLI should win)", cfg.MapPath)
	}
	if cfg.Output != "/env/output" {
		t.Errorf("Output = %v, want /env/output (env should override file)", cfg.Output)
	}
	if cfg.Input != "/file/input" {
		t.Errorf("Input = %v, want /file/input (file should set)", cfg.Input)
	}
	if cfg.IsolationPasses != 5 {
		t.Errorf("IsolationPasses = %v, want 5 (file should set)", cfg.IsolationPasses)
	}
	if cfg.ClusterLength != DefaultClusterLength {
		t.Errorf("ClusterLength = %v, want default %v", cfg.ClusterLength, DefaultClusterLength)
	}
}
