package domain

import "errors"

// Domain errors. Callers check them with errors.Is.
var (
	// ErrInvalidInterval is returned when an interval has End <= Start.
	ErrInvalidInterval = errors.New("rescue: invalid sector interval")

	// ErrOutOfBounds is returned when a cluster lies outside the map's domain.
	ErrOutOfBounds = errors.New("rescue: interval outside map domain")

	// ErrTilingGap is returned when clusters leave sectors of the domain uncovered.
	ErrTilingGap = errors.New("rescue: gap in cluster tiling")

	// ErrTilingOverlap is returned when clusters cover a sector more than once.
	ErrTilingOverlap = errors.New("rescue: overlapping clusters")

	// ErrEmptyMap is returned when a map holds no clusters.
	ErrEmptyMap = errors.New("rescue: map has no clusters")

	// ErrSectorSizeMismatch is returned when a persisted map was recorded with
	// a different sector size than the current run.
	ErrSectorSizeMismatch = errors.New("rescue: sector size mismatch")

	// ErrDomainMismatch is returned when a persisted map covers a different
	// device length than the current source.
	ErrDomainMismatch = errors.New("rescue: map domain does not match source")

	// ErrStageRegression is returned when the summary stage moves backwards.
	ErrStageRegression = errors.New("rescue: stage regression")

	// ErrUnknownStage is returned when a stage name cannot be parsed.
	ErrUnknownStage = errors.New("rescue: unknown stage")
)
