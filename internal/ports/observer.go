package ports

import (
	"time"

	"github.com/bft-labs/rescue/internal/domain"
)

// ReadOutcome describes one group read attempted by the engine.
type ReadOutcome struct {
	// Group is the sector range that was read, carrying the stage it was
	// read under.
	Group domain.Cluster

	// Result is the stage the range was overlaid with afterwards.
	Result domain.Stage

	// Bytes is the size of the read request.
	Bytes int

	Duration time.Duration
	Err      error
}

// Observer receives engine progress. Calls are made synchronously from the
// engine goroutine and must not block.
type Observer interface {
	OnStageChange(previous, current domain.Stage, reason string)
	OnRead(outcome ReadOutcome)
	OnCheckpoint(summary domain.Summary)
}
