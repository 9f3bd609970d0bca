package sim

import (
	"context"
	"math"
	"time"

	"github.com/san-kum/dustdyn/internal/dynamo"
	"go.uber.org/zap"
)

// Simulator advances a dynamo.System with an integrator, validating every
// step at its boundary.
type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	logger     *zap.Logger
	metrics    []Metric
	observers  []Observer
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(sys dynamo.System, integrator dynamo.Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		sys:        sys,
		integrator: integrator,
		logger:     zap.NewNop(),
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates x0 for cfg.Duration. Cancellation is checked once per
// completed step. On failure the partial result is returned together with
// a *dynamo.SimulationError.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	sess, err := s.NewSession(x0, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	s.logger.Info("run started",
		zap.Int("cells", x0.Grid.Len()),
		zap.Float64("dt", cfg.Dt),
		zap.Float64("duration", cfg.Duration),
		zap.Float64("initial_mass", sess.InitialMass()))

	result := &Result{
		Snapshots:   []Snapshot{newSnapshot(0, 0, cfg.Dt, sess.State())},
		InitialMass: sess.InitialMass(),
		Metrics:     make(map[string]float64),
	}

	var runErr error
	for !sess.Done() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := sess.Step(); err != nil {
			runErr = err
			break
		}
		if cfg.SnapshotEvery > 0 && sess.StepCount()%cfg.SnapshotEvery == 0 && !sess.Done() {
			result.Snapshots = append(result.Snapshots, newSnapshot(sess.StepCount(), sess.Time(), sess.Dt(), sess.State()))
		}
	}

	last := result.Snapshots[len(result.Snapshots)-1]
	if last.Step != sess.StepCount() {
		result.Snapshots = append(result.Snapshots, newSnapshot(sess.StepCount(), sess.Time(), sess.Dt(), sess.State()))
	}
	result.Final = sess.State().Clone()
	result.Steps = sess.StepCount()
	result.Time = sess.Time()
	result.Retries = sess.retries
	result.MassDrift = math.Abs(result.Final.TotalConcentration() - result.InitialMass)
	if result.InitialMass > 0 {
		result.MassDrift /= result.InitialMass
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	fields := []zap.Field{
		zap.Int("steps", result.Steps),
		zap.Float64("t", result.Time),
		zap.Int("retries", result.Retries),
		zap.Float64("mass_drift", result.MassDrift),
		zap.Duration("elapsed", time.Since(start)),
	}
	if runErr != nil {
		s.logger.Warn("run stopped", append(fields, zap.Error(runErr))...)
		return result, runErr
	}
	s.logger.Info("run finished", fields...)
	return result, nil
}
