package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

// EngineConfig contains configuration for the recovery loop.
type EngineConfig struct {
	// ClusterLength is the group length, in sectors, of the untested pass.
	ClusterLength uint64

	// IsolationPasses is the number of ForIsolation levels a failed range
	// goes through before it is marked Damaged. Zero marks failed
	// untested reads Damaged immediately.
	IsolationPasses uint8

	// RetryDelay is the initial settle delay after a failed isolation
	// read, doubled up to RetryDelayMax on consecutive failures. Zero
	// disables it.
	RetryDelay    time.Duration
	RetryDelayMax time.Duration

	CheckpointInterval time.Duration
}

// IsolationGroupLength returns the group length for isolation level: the
// cluster length halved once per level, starting at level 0, and never
// below one sector.
func IsolationGroupLength(clusterLength uint64, level uint8) uint64 {
	shift := uint(level) + 1
	if shift >= 64 {
		return 1
	}
	if g := clusterLength >> shift; g > 0 {
		return g
	}
	return 1
}

// Engine drives the staged recovery state machine. The map's summary stage
// is the only state: each iteration reads it, works the clusters of that
// stage and folds the outcomes back into the map.
type Engine struct {
	config   EngineConfig
	m        *domain.Map
	source   ports.SectorSource
	sink     ports.SectorSink
	alloc    ports.BufferAllocator
	logger   ports.Logger
	observer ports.Observer

	tracker    *StageTracker
	coalescer  *Coalescer
	checkpoint *Checkpointer
	backoff    *backoff

	buf      []byte
	bufGroup uint64
}

// NewEngine creates an engine working on m. observer may be nil.
func NewEngine(
	config EngineConfig,
	m *domain.Map,
	source ports.SectorSource,
	sink ports.SectorSink,
	alloc ports.BufferAllocator,
	repo ports.MapRepository,
	logger ports.Logger,
	observer ports.Observer,
) *Engine {
	if config.ClusterLength == 0 {
		config.ClusterLength = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	maxDelay := config.RetryDelayMax
	if maxDelay == 0 {
		maxDelay = DefaultRetryDelayMax
	}

	coalescer := NewCoalescer(m)
	return &Engine{
		config:     config,
		m:          m,
		source:     source,
		sink:       sink,
		alloc:      alloc,
		logger:     logger,
		observer:   observer,
		tracker:    NewStageTracker(logger, observer),
		coalescer:  coalescer,
		checkpoint: NewCheckpointer(repo, sink, coalescer, config.CheckpointInterval, logger, observer),
		backoff:    newBackoff(config.RetryDelay, maxDelay),
	}
}

// Map returns the map the engine works on.
func (e *Engine) Map() *domain.Map {
	return e.m
}

// Run executes the recovery loop until no sector is left to attempt.
// A damaged remainder is a normal outcome. On cancellation the engine stops
// between groups, checkpoints, and returns ctx.Err(). Output write, sync
// and checkpoint failures terminate the run.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer e.releaseBuffer()
	defer func() {
		// Final checkpoint runs even when ctx is canceled.
		if cerr := e.checkpoint.Save(context.WithoutCancel(ctx), e.m); cerr != nil {
			e.logger.Error("final checkpoint failed", ports.Err(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("recovery interrupted", ports.Err(err))
			return err
		}

		stage := e.m.SummaryStage()
		changed, err := e.tracker.TransitionTo(stage, transitionReason(stage))
		if err != nil {
			return err
		}
		if changed {
			if err := e.checkpoint.Save(ctx, e.m); err != nil {
				return err
			}
		}

		switch {
		case stage.IsUntested():
			err = e.copyUntested(ctx)
		case stage.IsIsolating():
			err = e.copyIsolate(ctx, stage.Level())
		default:
			s := e.m.Summarize()
			e.logger.Info("recovery finished",
				ports.Uint64("recovered", s.Recovered),
				ports.Uint64("damaged", s.Damaged),
				ports.Uint64("total", s.Total),
			)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// copyUntested reads every untested cluster in bulk groups.
func (e *Engine) copyUntested(ctx context.Context) error {
	failed := domain.ForIsolation(0)
	if e.config.IsolationPasses == 0 {
		failed = domain.Damaged()
	}
	return e.pass(ctx, domain.Untested(), e.config.ClusterLength, failed)
}

// copyIsolate retries the clusters at exactly level in smaller groups.
func (e *Engine) copyIsolate(ctx context.Context, level uint8) error {
	failed := domain.Damaged()
	if int(level)+1 < int(e.config.IsolationPasses) {
		failed = domain.ForIsolation(level + 1)
	}
	group := IsolationGroupLength(e.config.ClusterLength, level)
	return e.pass(ctx, domain.ForIsolation(level), group, failed)
}

// pass reads the clusters in stage group by group. Successful groups are
// written to the output and become Recovered; failed groups become failed.
func (e *Engine) pass(ctx context.Context, stage domain.Stage, group uint64, failed domain.Stage) error {
	buf, err := e.buffer(group)
	if err != nil {
		return err
	}

	clusters := e.m.ClustersWith(stage)
	e.logger.Info("pass started",
		ports.Stringer("stage", stage),
		ports.Int("clusters", len(clusters)),
		ports.Uint64("group_length", group),
	)

	sectorSize := uint64(e.m.SectorSize)
	for _, c := range clusters {
		for _, g := range c.Subdivide(group) {
			if err := ctx.Err(); err != nil {
				return err
			}

			data := buf[:g.Len()*sectorSize]
			start := time.Now()
			rerr := e.source.ReadSectors(data, g.Domain.Start)
			result := domain.Recovered()
			if rerr == nil {
				if werr := e.sink.WriteSectors(data, g.Domain.Start); werr != nil {
					return fmt.Errorf("write sectors %s: %w", g.Domain, werr)
				}
				e.backoff.Reset()
			} else {
				result = failed
				e.logger.Debug("read failed",
					ports.Stringer("range", g.Domain),
					ports.Stringer("stage", result),
					ports.Err(rerr),
				)
			}

			e.observer.OnRead(ports.ReadOutcome{
				Group:    g,
				Result:   result,
				Bytes:    len(data),
				Duration: time.Since(start),
				Err:      rerr,
			})

			if err := e.coalescer.Add(g.Domain, result); err != nil {
				return err
			}
			if err := e.checkpoint.Maybe(ctx, e.m); err != nil {
				return err
			}

			if rerr != nil && stage.IsIsolating() {
				if err := e.backoff.Wait(ctx); err != nil {
					return err
				}
			}
		}
	}

	if err := e.coalescer.Flush(); err != nil {
		return err
	}
	e.m.Defrag()
	return nil
}

// buffer returns an I/O buffer of sectorSize × group bytes, reallocating it
// when the group length changes.
func (e *Engine) buffer(group uint64) ([]byte, error) {
	if e.buf != nil && e.bufGroup == group {
		return e.buf, nil
	}
	e.releaseBuffer()

	size := group * uint64(e.m.SectorSize)
	buf, err := e.alloc.Alloc(int(size))
	if err != nil {
		return nil, fmt.Errorf("allocate %d byte buffer: %w", size, err)
	}
	e.buf = buf
	e.bufGroup = group
	return buf, nil
}

func (e *Engine) releaseBuffer() {
	if e.buf == nil {
		return
	}
	if err := e.alloc.Free(e.buf); err != nil {
		e.logger.Warn("failed to free buffer", ports.Err(err))
	}
	e.buf = nil
	e.bufGroup = 0
}

func transitionReason(stage domain.Stage) string {
	switch {
	case stage.IsUntested():
		return "untested sectors remain"
	case stage.IsIsolating():
		return fmt.Sprintf("isolation pass %d pending", stage.Level())
	default:
		return "no sectors left to attempt"
	}
}

type nopObserver struct{}

func (nopObserver) OnStageChange(previous, current domain.Stage, reason string) {}
func (nopObserver) OnRead(outcome ports.ReadOutcome)                            {}
func (nopObserver) OnCheckpoint(summary domain.Summary)                         {}
