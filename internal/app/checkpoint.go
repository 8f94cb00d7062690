package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

// DefaultCheckpointInterval is the minimum spacing of throttled checkpoints.
const DefaultCheckpointInterval = 5 * time.Second

// Flusher applies buffered map updates.
type Flusher interface {
	Flush() error
}

// Checkpointer persists the map. Throttled checkpoints go through a
// rate.Sometimes; forced ones always run.
type Checkpointer struct {
	repo      ports.MapRepository
	sink      ports.SectorSink
	pending   Flusher
	sometimes *rate.Sometimes
	logger    ports.Logger
	observer  ports.Observer
	saves     int
}

// NewCheckpointer creates a checkpointer. An interval of zero saves on every
// call to Maybe.
func NewCheckpointer(
	repo ports.MapRepository,
	sink ports.SectorSink,
	pending Flusher,
	interval time.Duration,
	logger ports.Logger,
	observer ports.Observer,
) *Checkpointer {
	s := &rate.Sometimes{Interval: interval}
	if interval <= 0 {
		s = &rate.Sometimes{Every: 1}
	}
	// The first Do always fires; consume it so the clock starts now.
	s.Do(func() {})

	return &Checkpointer{
		repo:      repo,
		sink:      sink,
		pending:   pending,
		sometimes: s,
		logger:    logger,
		observer:  observer,
	}
}

// Maybe saves m if the checkpoint interval has elapsed.
func (c *Checkpointer) Maybe(ctx context.Context, m *domain.Map) error {
	var err error
	c.sometimes.Do(func() { err = c.Save(ctx, m) })
	return err
}

// Save flushes pending overlays, syncs the output and persists m. The output
// is synced first so the saved map never claims sectors that are not on disk.
func (c *Checkpointer) Save(ctx context.Context, m *domain.Map) error {
	if c.pending != nil {
		if err := c.pending.Flush(); err != nil {
			return fmt.Errorf("flush outcomes: %w", err)
		}
	}
	m.Defrag()

	if err := c.sink.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err := c.repo.Save(ctx, m); err != nil {
		return fmt.Errorf("save map: %w", err)
	}
	c.saves++

	summary := m.Summarize()
	c.logger.Debug("checkpoint",
		ports.Int("clusters", len(m.Clusters)),
		ports.Uint64("recovered", summary.Recovered),
		ports.Uint64("pending", summary.Pending()),
	)
	if c.observer != nil {
		c.observer.OnCheckpoint(summary)
	}
	return nil
}

// Saves returns how many checkpoints have been written.
func (c *Checkpointer) Saves() int {
	return c.saves
}
