package rescue

import (
	"github.com/prometheus/client_golang/prometheus"

	logAdapter "github.com/bft-labs/rescue/internal/adapters/log"
	"github.com/bft-labs/rescue/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Observer receives engine progress events.
type Observer = ports.Observer

// ReadOutcome describes one group read attempted by the engine.
type ReadOutcome = ports.ReadOutcome

// Devices replaces the file-backed input and output, for embedding rescue
// in programs that talk to media some other way.
type Devices struct {
	Source ports.SectorSource
	Sink   ports.SectorSink

	// Sectors is the length of the source in sectors.
	Sectors uint64

	// Alloc provides I/O buffers. Nil means plain heap buffers.
	Alloc ports.BufferAllocator
}

// Option configures optional behavior of Run.
type Option func(*options)

// options holds the optional configuration for a run.
type options struct {
	logger    ports.Logger
	observers []ports.Observer
	devices   *Devices
	registry  *prometheus.Registry
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver adds an observer of engine events. Observers are called
// synchronously from the recovery goroutine and must not block.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, observer)
	}
}

// WithDevices makes Run use d instead of opening cfg.Input and cfg.Output.
func WithDevices(d Devices) Option {
	return func(o *options) {
		o.devices = &d
	}
}

// WithMetricsRegistry registers engine metrics with reg instead of a fresh
// registry. Metrics are only collected when cfg.MetricsAddr is set or a
// registry is given.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

type heapAllocator struct{}

func (heapAllocator) Alloc(size int) ([]byte, error) { return make([]byte, size), nil }
func (heapAllocator) Free(buf []byte) error          { return nil }
