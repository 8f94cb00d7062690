// Package rescue copies a damaged disc or disk to an image file, tracking
// the state of every sector in a map file so interrupted runs resume where
// they stopped.
//
// Example usage:
//
//	cfg := rescue.DefaultConfig()
//	cfg.Input = "/dev/sr0"
//	if err := rescue.LoadSourceInfo(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := rescue.Run(context.Background(), cfg)
package rescue

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/rescue/internal/adapters/device"
	"github.com/bft-labs/rescue/internal/adapters/fs"
	"github.com/bft-labs/rescue/internal/adapters/metrics"
	"github.com/bft-labs/rescue/internal/app"
	"github.com/bft-labs/rescue/internal/cliconfig"
	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

// Config holds the configuration for a recovery run.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Summary counts the sectors of a map in each stage.
type Summary = domain.Summary

// DefaultConfig returns a Config with sensible default values.
// At minimum, Input must be set before calling Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// LoadSourceInfo probes cfg.Input for its size and logical block size.
// Call it before cfg.Validate so direct I/O alignment can be checked.
func LoadSourceInfo(cfg *Config) error {
	return cliconfig.LoadSourceInfo(cfg)
}

// fieldLogger is implemented by loggers that can carry a fixed field.
type fieldLogger interface {
	WithField(key, value string) ports.Logger
}

// Run recovers cfg.Input into cfg.Output until no sector is left to attempt,
// checkpointing the map to cfg.MapPath. It returns the final summary. A
// damaged remainder is not an error. If ctx is canceled, Run checkpoints
// and returns ctx.Err().
func Run(ctx context.Context, cfg Config, opts ...Option) (Summary, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	runID := uuid.NewString()[:8]
	logger := o.logger
	if fl, ok := logger.(fieldLogger); ok {
		logger = fl.WithField("run", runID)
	}

	devs, closeDevices, err := openDevices(cfg, o.devices)
	if err != nil {
		return Summary{}, err
	}
	defer closeDevices()

	sectorSize := uint32(cfg.SectorSize)
	repo := fs.NewMapFileRepository(cfg.MapPath)
	m, err := loadMap(ctx, repo, sectorSize, devs.Sectors, logger)
	if err != nil {
		return Summary{}, err
	}

	observers := app.Observers(o.observers)
	if cfg.MetricsAddr != "" || o.registry != nil {
		reg := o.registry
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		mx, err := metrics.New(reg)
		if err != nil {
			return Summary{}, fmt.Errorf("register metrics: %w", err)
		}
		observers = append(observers, mx)

		if cfg.MetricsAddr != "" {
			ln, err := metrics.Listen(cfg.MetricsAddr)
			if err != nil {
				return Summary{}, err
			}
			srvCtx, stop := context.WithCancel(ctx)
			var g errgroup.Group
			g.Go(func() error { return metrics.Serve(srvCtx, ln, reg, logger) })
			defer func() {
				stop()
				if err := g.Wait(); err != nil {
					logger.Error("metrics server failed", ports.Err(err))
				}
			}()
		}
	}

	logger.Info("starting recovery",
		ports.String("input", cfg.Input),
		ports.String("output", cfg.Output),
		ports.String("map", cfg.MapPath),
		ports.Uint64("sectors", devs.Sectors),
		ports.Int("sector_size", cfg.SectorSize),
		ports.Int("cluster_length", cfg.ClusterLength),
		ports.Int("brute_passes", cfg.IsolationPasses),
	)

	engine := app.NewEngine(app.EngineConfig{
		ClusterLength:      uint64(cfg.ClusterLength),
		IsolationPasses:    uint8(cfg.IsolationPasses),
		RetryDelay:         cfg.RetryDelay,
		RetryDelayMax:      cfg.RetryDelayMax,
		CheckpointInterval: cfg.CheckpointInterval,
	}, m, devs.Source, devs.Sink, devs.Alloc, repo, logger, observers)

	err = engine.Run(ctx)
	return m.Summarize(), err
}

// openDevices opens the input and output unless devices were supplied. The
// output is extended to the input's length rounded up to whole sectors.
func openDevices(cfg Config, supplied *Devices) (Devices, func(), error) {
	if supplied != nil {
		d := *supplied
		if d.Alloc == nil {
			d.Alloc = heapAllocator{}
		}
		if d.Sectors == 0 {
			return Devices{}, nil, fmt.Errorf("devices: source has no sectors")
		}
		return d, func() {}, nil
	}

	opts := device.Options{SectorSize: uint32(cfg.SectorSize), Direct: cfg.Direct}
	in, err := device.OpenInput(cfg.Input, opts)
	if err != nil {
		return Devices{}, nil, err
	}
	if in.Sectors() == 0 {
		in.Close()
		return Devices{}, nil, fmt.Errorf("input %s is empty", cfg.Input)
	}

	out, err := device.OpenOutput(cfg.Output, opts)
	if err != nil {
		in.Close()
		return Devices{}, nil, err
	}
	if err := out.EnsureLength(in.PhysicalLength()); err != nil {
		in.Close()
		out.Close()
		return Devices{}, nil, err
	}

	closeAll := func() {
		out.Close()
		in.Close()
	}
	return Devices{
		Source:  in,
		Sink:    out,
		Sectors: in.Sectors(),
		Alloc:   device.MmapAllocator{},
	}, closeAll, nil
}

// loadMap returns the persisted map if it is readable and matches the
// source, and a fresh map otherwise. Unusable map files are moved aside.
func loadMap(ctx context.Context, repo *fs.MapFileRepository, sectorSize uint32, sectors uint64, logger ports.Logger) (*domain.Map, error) {
	m, err := repo.Load(ctx)
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		logger.Info("no map found, starting fresh", ports.String("map", repo.Path()))
		return domain.NewMap(sectorSize, sectors)
	case err == nil:
		err = m.CheckSource(sectorSize, sectors)
		if err == nil {
			s := m.Summarize()
			logger.Info("resuming from map",
				ports.String("map", repo.Path()),
				ports.Uint64("recovered", s.Recovered),
				ports.Uint64("pending", s.Pending()),
				ports.Uint64("damaged", s.Damaged),
			)
			return m, nil
		}
	}

	moved, qerr := repo.Quarantine()
	if qerr != nil {
		return nil, fmt.Errorf("move unusable map aside: %w", qerr)
	}
	logger.Warn("map unusable, starting fresh",
		ports.Err(err),
		ports.String("moved_to", moved),
	)
	return domain.NewMap(sectorSize, sectors)
}
