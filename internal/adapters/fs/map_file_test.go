package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/rescue/internal/domain"
)

func sampleMap(t *testing.T) *domain.Map {
	t.Helper()
	m, err := domain.NewMap(2048, 100)
	require.NoError(t, err)
	require.NoError(t, m.Apply(domain.NewCluster(0, 40, domain.Recovered())))
	require.NoError(t, m.Apply(domain.NewCluster(40, 48, domain.ForIsolation(1))))
	require.NoError(t, m.Apply(domain.NewCluster(48, 50, domain.Damaged())))
	return m
}

func TestMapFileRepository_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "disk.map")
	repo := NewMapFileRepository(path)
	m := sampleMap(t)

	require.NoError(t, repo.Save(context.Background(), m))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, iofs.ErrNotExist), "temp file left behind")

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMapFileRepository_LoadMissing(t *testing.T) {
	repo := NewMapFileRepository(filepath.Join(t.TempDir(), "absent.map"))
	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}

func TestEncodeMap_Format(t *testing.T) {
	data, err := EncodeMap(sampleMap(t))
	require.NoError(t, err)

	text := string(data)
	for _, want := range []string{
		"sector_size: 2048",
		"stage: recovered",
		"stage: for_isolation",
		"level: 1",
		"stage: damaged",
		"stage: untested",
	} {
		assert.Contains(t, text, want)
	}
	assert.Equal(t, 1, strings.Count(text, "level:"), "level only written for isolation stages")
}

func TestDecodeMap_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name: "gap",
			data: `sector_size: 512
domain: {start: 0, end: 10}
clusters:
  - {start: 0, end: 4, stage: untested}
  - {start: 5, end: 10, stage: damaged}
`,
			wantErr: domain.ErrTilingGap,
		},
		{
			name: "overlap",
			data: `sector_size: 512
domain: {start: 0, end: 10}
clusters:
  - {start: 0, end: 6, stage: untested}
  - {start: 5, end: 10, stage: damaged}
`,
			wantErr: domain.ErrTilingOverlap,
		},
		{
			name: "unknown stage",
			data: `sector_size: 512
domain: {start: 0, end: 10}
clusters:
  - {start: 0, end: 10, stage: finished}
`,
			wantErr: domain.ErrUnknownStage,
		},
		{
			name:    "no clusters",
			data:    "sector_size: 512\ndomain: {start: 0, end: 10}\n",
			wantErr: domain.ErrEmptyMap,
		},
		{name: "garbage", data: "{{{not yaml"},
		{name: "unknown field", data: "sector_size: 512\nbogus: 1\n"},
		{name: "zero sector size", data: "domain: {start: 0, end: 1}\nclusters:\n  - {start: 0, end: 1, stage: untested}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMap([]byte(tt.data))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMapFileRepository_Quarantine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.map")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	repo := NewMapFileRepository(path)

	moved, err := repo.Quarantine()
	require.NoError(t, err)
	assert.Equal(t, path+".bad", moved)
	assert.False(t, exists(path))
	assert.True(t, exists(moved))
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
