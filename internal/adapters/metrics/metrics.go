// Package metrics exposes recovery progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/rescue/internal/domain"
	"github.com/bft-labs/rescue/internal/ports"
)

const (
	metricsNamespace = "rescue"
	engineSubsystem  = "engine"
)

// Metrics implements ports.Observer by recording engine events.
type Metrics struct {
	sectors        *prometheus.GaugeVec
	reads          *prometheus.CounterVec
	readDuration   prometheus.Histogram
	bytesRecovered prometheus.Counter
	stageLevel     prometheus.Gauge
	transitions    prometheus.Counter
	checkpoints    prometheus.Counter
}

// New creates the engine metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sectors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "sectors",
			Help:      "Sectors per stage as of the last checkpoint",
		}, []string{"stage"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "reads_total",
			Help:      "Group reads by resulting stage (recovered, retry, damaged)",
		}, []string{"result"}),
		readDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "read_duration_seconds",
			Help:      "Duration of group reads in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		bytesRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "recovered_bytes_total",
			Help:      "Bytes read successfully and written to the output",
		}),
		stageLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "stage",
			Help:      "Current summary stage: 0 untested, 1+n isolation level n, -1 damaged",
		}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "stage_transitions_total",
			Help:      "Summary stage transitions",
		}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: engineSubsystem,
			Name:      "checkpoints_total",
			Help:      "Map checkpoints written",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.sectors, m.reads, m.readDuration, m.bytesRecovered,
		m.stageLevel, m.transitions, m.checkpoints,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnStageChange records a summary stage transition.
func (m *Metrics) OnStageChange(previous, current domain.Stage, reason string) {
	m.transitions.Inc()
	m.stageLevel.Set(stageValue(current))
}

// OnRead records one group read.
func (m *Metrics) OnRead(o ports.ReadOutcome) {
	m.readDuration.Observe(o.Duration.Seconds())
	switch {
	case o.Result.IsRecovered():
		m.reads.WithLabelValues("recovered").Inc()
		m.bytesRecovered.Add(float64(o.Bytes))
	case o.Result.IsDamaged():
		m.reads.WithLabelValues("damaged").Inc()
	default:
		m.reads.WithLabelValues("retry").Inc()
	}
}

// OnCheckpoint publishes the per-stage sector counts.
func (m *Metrics) OnCheckpoint(s domain.Summary) {
	m.checkpoints.Inc()
	m.sectors.WithLabelValues("untested").Set(float64(s.Untested))
	m.sectors.WithLabelValues("isolating").Set(float64(s.Isolating))
	m.sectors.WithLabelValues("damaged").Set(float64(s.Damaged))
	m.sectors.WithLabelValues("recovered").Set(float64(s.Recovered))
}

func stageValue(s domain.Stage) float64 {
	switch {
	case s.IsUntested():
		return 0
	case s.IsIsolating():
		return float64(s.Level()) + 1
	default:
		return -1
	}
}

// Listen binds addr for Serve. Binding up front lets callers fail before
// any work starts when the address is taken.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve exposes g at /metrics on ln until ctx is canceled, then shuts the
// server down and closes ln. It returns once the server has stopped.
func Serve(ctx context.Context, ln net.Listener, g prometheus.Gatherer, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", ports.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		return err
	}
}
