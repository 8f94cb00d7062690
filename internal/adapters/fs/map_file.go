// Package fs persists sector maps on the local filesystem.
package fs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/rescue/internal/domain"
)

// mapFile is the on-disk layout of a sector map.
type mapFile struct {
	SectorSize uint32         `yaml:"sector_size"`
	Domain     intervalEntry  `yaml:"domain"`
	Clusters   []clusterEntry `yaml:"clusters"`
}

type intervalEntry struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

type clusterEntry struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
	Stage string `yaml:"stage"`
	Level uint8  `yaml:"level,omitempty"`
}

// MapFileRepository implements ports.MapRepository using a YAML file.
type MapFileRepository struct {
	path string
}

// NewMapFileRepository creates a repository for the map file at path.
func NewMapFileRepository(path string) *MapFileRepository {
	return &MapFileRepository{path: path}
}

// Path returns the full path to the map file.
func (r *MapFileRepository) Path() string {
	return r.path
}

// Load reads and validates the map file. A missing file yields an error
// wrapping fs.ErrNotExist.
func (r *MapFileRepository) Load(ctx context.Context) (*domain.Map, error) {
	return ReadMapFile(r.path)
}

// Save persists m atomically (write to temp file, sync, then rename).
func (r *MapFileRepository) Save(ctx context.Context, m *domain.Map) error {
	data, err := EncodeMap(m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, r.path)
}

// Quarantine moves an unusable map file aside so a fresh map can take its
// place. It returns the new path.
func (r *MapFileRepository) Quarantine() (string, error) {
	dst := r.path + ".bad"
	if err := os.Rename(r.path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// ReadMapFile reads and validates the map stored at path.
func ReadMapFile(path string) (*domain.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := DecodeMap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// EncodeMap renders m in the map file format.
func EncodeMap(m *domain.Map) ([]byte, error) {
	out := mapFile{
		SectorSize: m.SectorSize,
		Domain:     intervalEntry{Start: m.Domain.Start, End: m.Domain.End},
		Clusters:   make([]clusterEntry, 0, len(m.Clusters)),
	}
	for _, c := range m.Clusters {
		out.Clusters = append(out.Clusters, clusterEntry{
			Start: c.Domain.Start,
			End:   c.Domain.End,
			Stage: c.Stage.Kind().String(),
			Level: c.Stage.Level(),
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode map: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode map: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMap parses a map file and checks its tiling.
func DecodeMap(data []byte) (*domain.Map, error) {
	var in mapFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}

	m := &domain.Map{
		SectorSize: in.SectorSize,
		Domain:     domain.Interval{Start: in.Domain.Start, End: in.Domain.End},
		Clusters:   make([]domain.Cluster, 0, len(in.Clusters)),
	}
	for i, c := range in.Clusters {
		stage, err := domain.NewStage(c.Stage, c.Level)
		if err != nil {
			return nil, fmt.Errorf("cluster %d: %w", i, err)
		}
		m.Clusters = append(m.Clusters, domain.NewCluster(c.Start, c.End, stage))
	}

	if m.SectorSize == 0 {
		return nil, fmt.Errorf("decode map: sector_size must be positive")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
