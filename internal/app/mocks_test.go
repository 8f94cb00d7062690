package app

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

var errBadSector = errors.New("input/output error")

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// memSource serves sectors from memory and fails any read touching a bad sector.
type memSource struct {
	data       []byte
	sectorSize uint64
	bad        map[uint64]bool
	failAll    bool
	reads      []domain.Interval
	onRead     func(n int)
}

func newMemSource(sectors, sectorSize uint64) *memSource {
	data := make([]byte, sectors*sectorSize)
	for i := range data {
		data[i] = byte(i%251) + 1
	}
	return &memSource{data: data, sectorSize: sectorSize, bad: map[uint64]bool{}}
}

func (s *memSource) ReadSectors(buf []byte, start uint64) error {
	n := uint64(len(buf)) / s.sectorSize
	s.reads = append(s.reads, domain.Interval{Start: start, End: start + n})
	if s.onRead != nil {
		s.onRead(len(s.reads))
	}
	if s.failAll {
		return errBadSector
	}
	for i := start; i < start+n; i++ {
		if s.bad[i] {
			return errBadSector
		}
	}
	copy(buf, s.data[start*s.sectorSize:])
	return nil
}

// memSink collects written sectors.
type memSink struct {
	data       []byte
	sectorSize uint64
	writeErr   error
	syncErr    error
	syncs      int
}

func newMemSink(sectors, sectorSize uint64) *memSink {
	return &memSink{data: make([]byte, sectors*sectorSize), sectorSize: sectorSize}
}

func (s *memSink) WriteSectors(buf []byte, start uint64) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	copy(s.data[start*s.sectorSize:], buf)
	return nil
}

func (s *memSink) Sync() error {
	s.syncs++
	return s.syncErr
}

func (s *memSink) sector(i uint64) []byte {
	return s.data[i*s.sectorSize : (i+1)*s.sectorSize]
}

// memRepo keeps saved maps in memory.
type memRepo struct {
	mu      sync.Mutex
	saved   *domain.Map
	saves   int
	saveErr error
}

func (r *memRepo) Load(ctx context.Context) (*domain.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		return nil, fs.ErrNotExist
	}
	return r.saved.Clone(), nil
}

func (r *memRepo) Save(ctx context.Context, m *domain.Map) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = m.Clone()
	r.saves++
	return nil
}

// recordingAlloc records buffer sizes.
type recordingAlloc struct {
	allocs []int
	frees  int
}

func (a *recordingAlloc) Alloc(size int) ([]byte, error) {
	a.allocs = append(a.allocs, size)
	return make([]byte, size), nil
}

func (a *recordingAlloc) Free(buf []byte) error {
	a.frees++
	return nil
}

type stageChange struct {
	previous, current domain.Stage
}

// recordingObserver tracks engine events for testing.
type recordingObserver struct {
	changes     []stageChange
	outcomes    []ports.ReadOutcome
	checkpoints []domain.Summary
}

func (o *recordingObserver) OnStageChange(previous, current domain.Stage, reason string) {
	o.changes = append(o.changes, stageChange{previous, current})
}

func (o *recordingObserver) OnRead(outcome ports.ReadOutcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) OnCheckpoint(summary domain.Summary) {
	o.checkpoints = append(o.checkpoints, summary)
}

func zeroSector(b []byte) bool {
	return bytes.Equal(b, make([]byte, len(b)))
}

// iv is shorthand for the interval [start, end).
func iv(start, end uint64) domain.Interval {
	return domain.Interval{Start: start, End: end}
}
