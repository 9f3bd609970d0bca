package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/integrators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// decay is dC/dt = -λC with zero velocity tendency.
type decay struct{ lambda float64 }

func (d decay) Derive(s dynamo.State) (dynamo.Rates, error) {
	n := s.Grid.Len()
	r := dynamo.Rates{Velocity: dynamo.NewVectorField(n), Concentration: make(dynamo.ScalarField, n)}
	for i, c := range s.Concentration {
		r.Concentration[i] = -d.lambda * c
	}
	return r, nil
}

type misconfigured struct{}

func (misconfigured) Derive(dynamo.State) (dynamo.Rates, error) {
	return dynamo.Rates{}, dynamo.NewConfigError("rho", 0, "must be positive and finite")
}

type counter struct{ n int }

func (c *counter) Name() string                  { return "count" }
func (c *counter) Observe(dynamo.State, float64) { c.n++ }
func (c *counter) Value() float64                { return float64(c.n) }
func (c *counter) Reset()                        { c.n = 0 }

func pointState(c float64) dynamo.State {
	return dynamo.NewPointState(dynamo.Vec3{}, 101325, c, 288, 0.5)
}

func baseConfig() Config {
	return Config{Dt: 0.1, Duration: 1.0, Tolerance: 1e-3, SnapshotEvery: 1}
}

func TestSimulatorRun(t *testing.T) {
	sim := New(decay{lambda: 1}, integrators.NewEuler())
	m := &counter{}
	sim.AddMetric(m)

	result, err := sim.Run(context.Background(), pointState(1), baseConfig())
	require.NoError(t, err)

	assert.Equal(t, 10, result.Steps)
	assert.InDelta(t, 1.0, result.Time, 1e-12)
	assert.Len(t, result.Snapshots, 11)
	assert.Equal(t, 0.0, result.Snapshots[0].Time)
	assert.InDelta(t, math.Pow(0.9, 10), result.Final.Concentration[0], 1e-12)
	assert.InDelta(t, 1-math.Pow(0.9, 10), result.MassDrift, 1e-12)
	assert.Equal(t, 11.0, result.Metrics["count"], "initial state plus one per step")
	assert.Len(t, result.Times(), 11)
}

func TestSimulatorSnapshotInterval(t *testing.T) {
	cfg := baseConfig()
	cfg.SnapshotEvery = 4
	result, err := New(decay{lambda: 1}, integrators.NewRK4()).Run(context.Background(), pointState(1), cfg)
	require.NoError(t, err)

	var steps []int
	for _, s := range result.Snapshots {
		steps = append(steps, s.Step)
	}
	assert.Equal(t, []int{0, 4, 8, 10}, steps)
	assert.Len(t, result.MassSeries(), 4)
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(decay{lambda: 1}, integrators.NewEuler())
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"negative snapshot interval", func(c *Config) { c.SnapshotEvery = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, err := sim.Run(context.Background(), pointState(1), cfg)
			assert.Error(t, err)
		})
	}
}

func TestSimulatorRejectsInvalidInitialState(t *testing.T) {
	_, err := New(decay{lambda: 1}, integrators.NewEuler()).Run(context.Background(), pointState(-1), baseConfig())
	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 0, simErr.Step)
	assert.True(t, errors.Is(err, dynamo.ErrValidation))
}

func TestSimulatorRetriesWithHalfStep(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sim := New(decay{lambda: 10}, integrators.NewEuler(), WithLogger(zap.New(core)))

	cfg := baseConfig()
	cfg.Dt = 0.15
	cfg.Duration = 0.3
	cfg.MaxRetries = 2

	result, err := sim.Run(context.Background(), pointState(1), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retries)
	assert.Equal(t, 4, result.Steps, "reduced step size is kept")
	assert.InDelta(t, 0.3, result.Time, 1e-12)
	assert.GreaterOrEqual(t, result.Final.Concentration[0], 0.0)
	assert.Equal(t, 1, logs.FilterMessage("retrying step with half dt").Len())
}

func TestSimulatorFailsWithoutRetries(t *testing.T) {
	cfg := baseConfig()
	cfg.Dt = 0.15
	cfg.Duration = 0.3

	result, err := New(decay{lambda: 10}, integrators.NewEuler()).Run(context.Background(), pointState(1), cfg)
	require.Error(t, err)
	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 1, simErr.Step)
	assert.True(t, errors.Is(err, dynamo.ErrValidation))

	require.NotNil(t, result)
	assert.Equal(t, 0, result.Steps)
	assert.Equal(t, 1.0, result.Final.Concentration[0], "failed step leaves the state untouched")
}

func TestSimulatorNeverRetriesConfigurationErrors(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxRetries = 5
	result, err := New(misconfigured{}, integrators.NewRK4()).Run(context.Background(), pointState(1), cfg)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
	assert.Equal(t, 0, result.Retries)
}

func TestSimulatorConservationCheck(t *testing.T) {
	cfg := baseConfig()
	cfg.CheckConservation = true
	_, err := New(decay{lambda: 1}, integrators.NewEuler()).Run(context.Background(), pointState(1), cfg)
	assert.True(t, errors.Is(err, dynamo.ErrConservation))
}

func TestSimulatorCancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := New(decay{lambda: 1}, integrators.NewEuler())
	sim.AddObserver(ObserverFunc(func(_ dynamo.State, t float64) {
		if t > 0.25 {
			cancel()
		}
	}))

	result, err := sim.Run(ctx, pointState(1), baseConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, result.Steps, "the step in flight completes")
	assert.Equal(t, 3, result.Snapshots[len(result.Snapshots)-1].Step)
}

func TestSimulatorAdaptive(t *testing.T) {
	cfg := baseConfig()
	cfg.Adaptive = true
	cfg.Tolerance = 1e-6
	cfg.MaxDt = 0.5

	result, err := New(decay{lambda: 1}, integrators.NewRK45()).Run(context.Background(), pointState(1), cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Time, 1e-12)
	assert.InDelta(t, math.Exp(-1), result.Final.Concentration[0], 1e-5)
	assert.Less(t, result.Steps, 10, "smooth decay lets the step grow")
}

func TestDustSystemConservesMassOnPeriodicGrid(t *testing.T) {
	cfg := config.GetPreset("earth", "plume")
	require.NotNil(t, cfg)
	cfg.Grid = config.GridConfig{NX: 8, NY: 1, NZ: 8}
	p, err := cfg.ResolvePlanet()
	require.NoError(t, err)
	x0, err := cfg.InitialState(p)
	require.NoError(t, err)

	sys, err := NewDustSystem(p, cfg.Physics, cfg.Particle)
	require.NoError(t, err)

	simCfg := Config{Dt: 0.01, Duration: 0.5, Tolerance: 1e-3, CheckConservation: true, SnapshotEvery: 10}
	result, err := New(sys, integrators.NewRK4()).Run(context.Background(), x0, simCfg)
	require.NoError(t, err)
	assert.Less(t, result.MassDrift, 1e-9)
	assert.Equal(t, 50, result.Steps)
}

func TestNewDustSystem(t *testing.T) {
	earth, err := config.Lookup("earth")
	require.NoError(t, err)
	part := config.DefaultConfig().Particle

	_, err = NewDustSystem(earth, config.PhysicsConfig{Feedback: true}, part)
	var cfgErr *dynamo.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "feedback", cfgErr.Field)

	sys, err := NewDustSystem(earth.WithFeedback(config.Feedback{Coupling: 0.1}),
		config.PhysicsConfig{Feedback: true, Settling: true, DryDeposition: true, Source: 1e-6}, part)
	require.NoError(t, err)
	assert.Len(t, sys.Engine.Forces, 1)
	assert.NotNil(t, sys.Engine.Removal)
	assert.NotNil(t, sys.Engine.Source)
	assert.Nil(t, sys.Engine.Entrainment)

	mars, err := config.Lookup("mars")
	require.NoError(t, err)
	_, err = NewDustSystem(mars, config.PhysicsConfig{DryDeposition: true}, part)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "g", cfgErr.Field)
}

func TestNewDustSystem_SettlingRegimeWarning(t *testing.T) {
	earth, err := config.Lookup("earth")
	require.NoError(t, err)
	part := config.DefaultConfig().Particle

	sys, err := NewDustSystem(earth, config.PhysicsConfig{Settling: true}, part)
	require.NoError(t, err)
	assert.Empty(t, sys.Warnings)

	part.Diameter = 500e-6
	sys, err = NewDustSystem(earth, config.PhysicsConfig{Settling: true}, part)
	require.NoError(t, err)
	require.Len(t, sys.Warnings, 1)
	assert.ErrorIs(t, sys.Warnings[0], dynamo.ErrRegime)
	var rw *dynamo.RegimeWarning
	require.ErrorAs(t, sys.Warnings[0], &rw)
	assert.Equal(t, "settling_velocity", rw.Quantity)

	part.Diameter = 0
	_, err = NewDustSystem(earth, config.PhysicsConfig{Settling: true}, part)
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
}

func TestSession(t *testing.T) {
	sess, err := New(decay{lambda: 1}, integrators.NewEuler()).NewSession(pointState(1), baseConfig())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, sess.Step())
	}
	assert.Equal(t, 3, sess.StepCount())
	assert.InDelta(t, 0.3, sess.Time(), 1e-12)
	assert.InDelta(t, 0.729, sess.State().Concentration[0], 1e-12)

	sess.Reset()
	assert.Equal(t, 0, sess.StepCount())
	assert.Equal(t, 1.0, sess.State().Concentration[0])

	for !sess.Done() {
		require.NoError(t, sess.Step())
	}
	assert.Equal(t, 10, sess.StepCount())
	require.NoError(t, sess.Step(), "stepping a finished session is a no-op")
	assert.Equal(t, 10, sess.StepCount())
}

func TestRunEnsemble(t *testing.T) {
	var scenarios []Scenario
	for _, name := range config.Names() {
		cfg := config.GetPreset(name, "calm")
		require.NotNil(t, cfg)
		cfg.Grid = config.GridConfig{NX: 4, NY: 1, NZ: 4}
		p, err := cfg.ResolvePlanet()
		require.NoError(t, err)
		x0, err := cfg.InitialState(p)
		require.NoError(t, err)
		sys, err := NewDustSystem(p, cfg.Physics, cfg.Particle)
		require.NoError(t, err)
		scenarios = append(scenarios, Scenario{
			Name:      name,
			Simulator: New(sys, integrators.NewRK4()),
			Initial:   x0,
			Config:    Config{Dt: 0.05, Duration: 0.5, Tolerance: 1e-3, CheckConservation: true},
		})
	}

	results, err := RunEnsemble(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, 10, r.Steps, scenarios[i].Name)
	}
}

func TestRunEnsemble_FirstErrorWins(t *testing.T) {
	scenarios := []Scenario{
		{Name: "ok", Simulator: New(decay{lambda: 1}, integrators.NewEuler()), Initial: pointState(1), Config: baseConfig()},
		{Name: "broken", Simulator: New(misconfigured{}, integrators.NewEuler()), Initial: pointState(1), Config: baseConfig()},
	}
	_, err := RunEnsemble(context.Background(), scenarios)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario broken")
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
}
