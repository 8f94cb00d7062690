package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Input:              "/dev/sdb",
				ClusterLength:      intPtr(256),
				SectorSize:         intPtr(512),
				Direct:             &trueVal,
				RetryDelay:         "100ms",
				CheckpointInterval: "30s",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Input:              "/dev/sdb",
				ClusterLength:      256,
				SectorSize:         512,
				Direct:             true,
				RetryDelay:         100 * time.Millisecond,
				CheckpointInterval: 30 * time.Second,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Input:      "/config/input",
				SectorSize: intPtr(4096),
			},
			changed: map[string]bool{"input": true},
			initial: Config{Input: "/flag/input", SectorSize: 2048},
			expected: Config{
				Input:      "/flag/input", // unchanged because flag was set
				SectorSize: 4096,
			},
		},
		{
			name:       "zero brute passes from file",
			fileConfig: FileConfig{IsolationPasses: intPtr(0)},
			changed:    map[string]bool{},
			initial:    Config{IsolationPasses: 2},
			expected:   Config{IsolationPasses: 0},
		},
		{
			name:       "returns error for zero cluster length",
			fileConfig: FileConfig{ClusterLength: intPtr(0)},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for negative brute passes",
			fileConfig: FileConfig{IsolationPasses: intPtr(-1)},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for negative sector size",
			fileConfig: FileConfig{SectorSize: intPtr(-512)},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "invalid value ignored when flag changed",
			fileConfig: FileConfig{ClusterLength: intPtr(0)},
			changed:    map[string]bool{"cluster-length": true},
			initial:    Config{ClusterLength: 32},
			expected:   Config{ClusterLength: 32},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{RetryDelayMax: "forever"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
input = "/dev/sr0"
cluster_length = 64
brute_passes = 0
direct = false
retry_delay = "200ms"
metrics_addr = "127.0.0.1:9109"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Input != "/dev/sr0" {
		t.Errorf("Input = %v, want /dev/sr0", fc.Input)
	}
	if fc.ClusterLength == nil || *fc.ClusterLength != 64 {
		t.Errorf("ClusterLength = %v, want 64", fc.ClusterLength)
	}
	if fc.SectorSize != nil {
		t.Errorf("SectorSize = %v, want unset", fc.SectorSize)
	}
	if fc.IsolationPasses == nil || *fc.IsolationPasses != 0 {
		t.Errorf("IsolationPasses = %v, want 0", fc.IsolationPasses)
	}
	if fc.Direct == nil || *fc.Direct != false {
		t.Errorf("Direct = %v, want false", fc.Direct)
	}
	if fc.RetryDelay != "200ms" {
		t.Errorf("RetryDelay = %v, want 200ms", fc.RetryDelay)
	}
	if fc.MetricsAddr != "127.0.0.1:9109" {
		t.Errorf("MetricsAddr = %v, want 127.0.0.1:9109", fc.MetricsAddr)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
input = "/dev/sr0"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".rescue") {
		t.Errorf("DefaultConfigPath() = %v, should contain .rescue", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
