// Package experiment turns a run configuration into a ready simulator:
// planet, initial state, dust system, integrator and metrics.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/integrators"
	"github.com/san-kum/dustdyn/internal/metrics"
	"github.com/san-kum/dustdyn/internal/sim"
	"go.uber.org/zap"
)

// SpeedLimit is the wind speed [m/s] above which the stability metric
// counts a state as unstable.
const SpeedLimit = 100.0

type Experiment struct {
	cfg       *config.Config
	planet    config.Planet
	vertical  dynamo.Axis
	initial   dynamo.State
	simulator *sim.Simulator
	logger    *zap.Logger
}

// New resolves cfg into an experiment. A nil logger discards output.
func New(cfg *config.Config, logger *zap.Logger) (*Experiment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	planet, err := cfg.ResolvePlanet()
	if err != nil {
		return nil, fmt.Errorf("planet %s: %w", cfg.Planet, err)
	}
	vertical, err := planet.Numerics.VerticalAxis.Axis()
	if err != nil {
		return nil, err
	}

	x0, err := cfg.InitialState(planet)
	if err != nil {
		return nil, err
	}
	if cfg.Physics.Feedback && !x0.DustVelocity.Present() {
		logger.Info("no dust-phase velocity given, assuming co-moving dust",
			zap.String("planet", planet.Name))
		x0 = x0.WithCoMovingDust()
	}

	sys, err := sim.NewDustSystem(planet, cfg.Physics, cfg.Particle)
	if err != nil {
		return nil, err
	}
	for _, w := range sys.Warnings {
		logger.Warn("particle outside model regime", zap.String("planet", planet.Name), zap.Error(w))
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(sys, integ, sim.WithLogger(logger))
	for _, m := range metrics.Default(SpeedLimit) {
		s.AddMetric(m)
	}

	return &Experiment{
		cfg:       cfg,
		planet:    planet,
		vertical:  vertical,
		initial:   x0,
		simulator: s,
		logger:    logger,
	}, nil
}

func (e *Experiment) Planet() config.Planet { return e.planet }

// Vertical is the planet's vertical grid axis.
func (e *Experiment) Vertical() dynamo.Axis { return e.vertical }

// Initial returns a copy of the starting state.
func (e *Experiment) Initial() dynamo.State { return e.initial.Clone() }

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }

// SimConfig maps the run configuration onto driver settings. rk45 runs
// adaptively with dt as the starting step.
func (e *Experiment) SimConfig() sim.Config {
	dt := e.cfg.TimeStep(e.planet)
	sc := sim.Config{
		Dt:                dt,
		Duration:          e.cfg.Duration,
		Tolerance:         e.cfg.Tolerance,
		CheckConservation: e.cfg.Physics.CheckConservation,
		MaxRetries:        e.cfg.MaxRetries,
		SnapshotEvery:     e.cfg.SnapshotEvery,
	}
	if e.cfg.Integrator == "rk45" {
		sc.Adaptive = true
		sc.MinDt = dt / 1000
		sc.MaxDt = dt * 10
	}
	return sc
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.initial, e.SimConfig())
}

// Session starts an interactive session from the initial state.
func (e *Experiment) Session() (*sim.Session, error) {
	return e.simulator.NewSession(e.initial, e.SimConfig())
}

// Scenario packages the experiment for sim.RunEnsemble.
func (e *Experiment) Scenario(name string) sim.Scenario {
	return sim.Scenario{
		Name:      name,
		Simulator: e.simulator,
		Initial:   e.initial,
		Config:    e.SimConfig(),
	}
}
