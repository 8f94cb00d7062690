package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// StageKind is the tag of a Stage.
type StageKind uint8

const (
	KindUntested StageKind = iota
	KindForIsolation
	KindDamaged
	KindRecovered
)

// String returns the persisted name of the kind.
func (k StageKind) String() string {
	switch k {
	case KindUntested:
		return "untested"
	case KindForIsolation:
		return "for_isolation"
	case KindDamaged:
		return "damaged"
	case KindRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Stage is the recovery status of a sector range.
//
// Stages are comparable values: two stages are equal when they share a kind
// and, for ForIsolation, the same level. Use Compare for ordering.
type Stage struct {
	kind  StageKind
	level uint8
}

// Untested marks sectors that have never been read.
func Untested() Stage { return Stage{kind: KindUntested} }

// ForIsolation marks sectors queued for the isolation pass at level.
func ForIsolation(level uint8) Stage { return Stage{kind: KindForIsolation, level: level} }

// Damaged marks sectors that failed every isolation pass.
func Damaged() Stage { return Stage{kind: KindDamaged} }

// Recovered marks sectors that were read and written to the output.
func Recovered() Stage { return Stage{kind: KindRecovered} }

// Kind returns the stage tag.
func (s Stage) Kind() StageKind { return s.kind }

// Level returns the isolation level. It is zero for every other kind.
func (s Stage) Level() uint8 { return s.level }

// IsUntested reports whether s is Untested.
func (s Stage) IsUntested() bool { return s.kind == KindUntested }

// IsIsolating reports whether s is ForIsolation at any level.
func (s Stage) IsIsolating() bool { return s.kind == KindForIsolation }

// IsDamaged reports whether s is Damaged.
func (s Stage) IsDamaged() bool { return s.kind == KindDamaged }

// IsRecovered reports whether s is Recovered.
func (s Stage) IsRecovered() bool { return s.kind == KindRecovered }

// Pending reports whether the engine still has work to do on s.
func (s Stage) Pending() bool {
	return s.kind == KindUntested || s.kind == KindForIsolation
}

// Compare orders stages by kind rank first, then by level when both are
// ForIsolation. It returns -1, 0 or +1.
//
//	Untested < ForIsolation(0) < ForIsolation(1) < ... < Damaged < Recovered
func (s Stage) Compare(other Stage) int {
	switch {
	case s.kind < other.kind:
		return -1
	case s.kind > other.kind:
		return 1
	}
	if s.kind != KindForIsolation {
		return 0
	}
	switch {
	case s.level < other.level:
		return -1
	case s.level > other.level:
		return 1
	}
	return 0
}

// Less reports whether s orders before other.
func (s Stage) Less(other Stage) bool { return s.Compare(other) < 0 }

// String returns a human readable form such as "ForIsolation(2)".
func (s Stage) String() string {
	switch s.kind {
	case KindUntested:
		return "Untested"
	case KindForIsolation:
		return "ForIsolation(" + strconv.Itoa(int(s.level)) + ")"
	case KindDamaged:
		return "Damaged"
	case KindRecovered:
		return "Recovered"
	default:
		return "Unknown"
	}
}

// NewStage builds a stage from its persisted kind name and level.
func NewStage(kind string, level uint8) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindUntested.String():
		return Untested(), nil
	case KindForIsolation.String():
		return ForIsolation(level), nil
	case KindDamaged.String():
		return Damaged(), nil
	case KindRecovered.String():
		return Recovered(), nil
	}
	return Stage{}, fmt.Errorf("%w: %q", ErrUnknownStage, kind)
}
