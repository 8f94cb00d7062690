package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

// StageTracker records the summary stage the engine is working on. The map
// only ever moves sectors forward, so a transition to an earlier stage
// means the map was modified behind the engine's back.
type StageTracker struct {
	mu       sync.RWMutex
	current  domain.Stage
	started  bool
	logger   ports.Logger
	observer ports.Observer
}

// NewStageTracker creates a tracker with no current stage.
func NewStageTracker(logger ports.Logger, observer ports.Observer) *StageTracker {
	return &StageTracker{logger: logger, observer: observer}
}

// Current returns the current stage and whether one has been recorded.
func (t *StageTracker) Current() (domain.Stage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.started
}

// TransitionTo records next as the current stage. It reports whether the
// stage changed and returns ErrStageRegression if next precedes the
// current stage.
func (t *StageTracker) TransitionTo(next domain.Stage, reason string) (bool, error) {
	t.mu.Lock()
	prev, started := t.current, t.started
	if started {
		if next == prev {
			t.mu.Unlock()
			return false, nil
		}
		if next.Less(prev) {
			t.mu.Unlock()
			return false, fmt.Errorf("%s -> %s: %w", prev, next, domain.ErrStageRegression)
		}
	}
	t.current = next
	t.started = true
	t.mu.Unlock()

	if !started {
		t.logger.Info("starting at stage",
			ports.Stringer("stage", next),
			ports.String("reason", reason),
		)
		return true, nil
	}

	// Emit event outside of lock
	if t.observer != nil {
		t.observer.OnStageChange(prev, next, reason)
	}

	t.logger.Info("stage transition",
		ports.Stringer("from", prev),
		ports.Stringer("to", next),
		ports.String("reason", reason),
	)
	return true, nil
}
