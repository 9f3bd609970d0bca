package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/equations"
	"github.com/san-kum/dustdyn/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func small(cfg *config.Config) *config.Config {
	cfg.Grid = config.GridConfig{NX: 4, NY: 1, NZ: 4}
	cfg.Duration = 0.5
	return cfg
}

func TestResolve(t *testing.T) {
	cfg, err := Resolve("Mars/dust_storm")
	require.NoError(t, err)
	assert.Equal(t, "mars", cfg.Planet)
	assert.True(t, cfg.Physics.Entrainment)

	cfg, err = Resolve("venus")
	require.NoError(t, err)
	assert.Equal(t, "venus", cfg.Planet)

	_, err = Resolve("mars/plume")
	assert.Error(t, err)
	_, err = Resolve("pluto/calm")
	assert.Error(t, err)
}

func TestListScenarios(t *testing.T) {
	got := ListScenarios()
	assert.Contains(t, got, "earth/plume")
	assert.Contains(t, got, "mars/dust_storm")
	assert.Equal(t, "earth/calm", got[0])
}

func TestExperimentRun(t *testing.T) {
	cfg, err := Resolve("earth/calm")
	require.NoError(t, err)

	exp, err := New(small(cfg), nil)
	require.NoError(t, err)
	assert.Equal(t, dynamo.AxisZ, exp.Vertical())
	assert.Equal(t, 0.01, exp.SimConfig().Dt)
	assert.Equal(t, config.AdvectionUpwind, exp.Planet().Numerics.Advection)

	result, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, result.Steps)
	for _, name := range []string{"mass_drift", "mean_concentration", "max_speed", "stability"} {
		assert.Contains(t, result.Metrics, name)
	}
	assert.Equal(t, 1.0, result.Metrics["stability"])
}

func TestScenariosRunToCompletion(t *testing.T) {
	for _, ref := range ListScenarios() {
		t.Run(ref, func(t *testing.T) {
			cfg, err := Resolve(ref)
			require.NoError(t, err)
			exp, err := New(cfg, nil)
			require.NoError(t, err)

			result, err := exp.Run(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, cfg.Duration, result.Time, 1e-6)
			assert.NoError(t, validate.State(result.Final))
			assert.Equal(t, 1.0, result.Metrics["stability"])
		})
	}
}

func TestExperimentFeedbackAssumesCoMovingDust(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	cfg := small(config.DefaultConfig())
	cfg.Physics.Feedback = true
	cfg.Physics.FeedbackCoefficients = &config.Feedback{Coupling: 0.1}

	exp, err := New(cfg, zap.New(core))
	require.NoError(t, err)
	assert.True(t, exp.Initial().DustVelocity.Present())
	assert.Equal(t, 1, logs.FilterMessage("no dust-phase velocity given, assuming co-moving dust").Len())

	_, err = exp.Run(context.Background())
	assert.NoError(t, err)
}

func TestExperimentCoMovingDustStaysCoMoving(t *testing.T) {
	cfg := small(config.DefaultConfig())
	cfg.Duration = 1
	cfg.Physics.Feedback = true
	cfg.Physics.FeedbackCoefficients = &config.Feedback{Coupling: 0.1}

	exp, err := New(cfg, nil)
	require.NoError(t, err)
	result, err := exp.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, result.Steps)

	fb, err := equations.Feedback(result.Final, exp.Planet())
	require.NoError(t, err)
	assert.Zero(t, fb.MaxNorm())
	g := exp.Planet().G
	assert.InDelta(t, -g, result.Final.Velocity[dynamo.AxisZ][0], 1e-9, "drag must not pull the wind back")
}

func TestExperimentLogsSettlingRegimeWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	cfg := small(config.DefaultConfig())
	cfg.Physics.Settling = true
	cfg.Particle.Diameter = 500e-6

	_, err := New(cfg, zap.New(core))
	require.NoError(t, err)
	entries := logs.FilterMessage("particle outside model regime").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "settling_velocity")
}

func TestExperimentFeedbackNeedsCoefficients(t *testing.T) {
	cfg := small(config.DefaultConfig())
	cfg.Physics.Feedback = true

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
}

func TestExperimentRejectsUnknownIntegrator(t *testing.T) {
	cfg := small(config.DefaultConfig())
	cfg.Integrator = "leapfrog"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestExperimentAdaptiveConfig(t *testing.T) {
	cfg := small(config.DefaultConfig())
	cfg.Integrator = "rk45"
	exp, err := New(cfg, nil)
	require.NoError(t, err)

	sc := exp.SimConfig()
	assert.True(t, sc.Adaptive)
	assert.InDelta(t, 1.0, sc.MaxDt, 1e-12)

	sess, err := exp.Session()
	require.NoError(t, err)
	require.NoError(t, sess.Step())
	assert.Equal(t, 1, sess.StepCount())

	sc2 := exp.Scenario("adaptive")
	assert.Equal(t, "adaptive", sc2.Name)
}
