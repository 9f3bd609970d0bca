package particle

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(t *testing.T, name string) config.Planet {
	t.Helper()
	p, err := config.Lookup(name)
	require.NoError(t, err)
	return p
}

func TestReynoldsNumber(t *testing.T) {
	re, err := ReynoldsNumber(1.0, 1.0, 1.5e-5)
	require.NoError(t, err)
	assert.InDelta(t, 66666.67, re, 0.01)

	for _, nu := range []float64{0, -1e-5, math.NaN()} {
		_, err := ReynoldsNumber(1, 1, nu)
		var cfgErr *dynamo.ConfigurationError
		require.True(t, errors.As(err, &cfgErr), "nu=%v", nu)
		assert.Equal(t, "nu", cfgErr.Field)
	}
}

func TestSettlingVelocity_Formula(t *testing.T) {
	earth := lookup(t, "earth")
	s, err := SettlingVelocity(10e-6, 2650, earth)
	require.NoError(t, err)

	want := 2650 * 9.81 * 1e-10 / (18 * 1.5e-5 * 1.225)
	assert.InDelta(t, want, s.Velocity, 1e-15)
	assert.InDelta(t, want*10e-6/1.5e-5, s.ParticleReynolds, 1e-12)
	assert.True(t, s.Stokes)
	assert.NoError(t, s.Warning())
}

func TestSettlingVelocity_IncreasesWithDiameterSquared(t *testing.T) {
	for _, name := range config.Names() {
		p := lookup(t, name)
		prev := 0.0
		for _, d := range []float64{1e-6, 2e-6, 5e-6, 1e-5, 5e-5, 1e-4} {
			s, err := SettlingVelocity(d, 2650, p)
			require.NoError(t, err)
			assert.Greater(t, s.Velocity, prev, "%s d=%g", name, d)
			prev = s.Velocity
		}

		small, _ := SettlingVelocity(1e-6, 2650, p)
		double, _ := SettlingVelocity(2e-6, 2650, p)
		assert.InDelta(t, 4, double.Velocity/small.Velocity, 1e-12)
	}
}

func TestSettlingVelocity_RegimeWarning(t *testing.T) {
	s, err := SettlingVelocity(500e-6, 2650, lookup(t, "earth"))
	require.NoError(t, err)
	assert.False(t, s.Stokes)

	warn := s.Warning()
	require.Error(t, warn)
	assert.True(t, errors.Is(warn, dynamo.ErrRegime))
	var rw *dynamo.RegimeWarning
	require.True(t, errors.As(warn, &rw))
	assert.Equal(t, StokesLimit, rw.Limit)
	assert.Greater(t, rw.Value, StokesLimit)
}

func TestSettlingVelocity_ConfigurationErrors(t *testing.T) {
	earth := lookup(t, "earth")
	tests := []struct {
		name     string
		diameter float64
		density  float64
		mutate   func(*config.Planet)
		field    string
	}{
		{"zero diameter", 0, 2650, nil, "particle.diameter"},
		{"negative density", 1e-5, -1, nil, "particle.density"},
		{"zero nu", 1e-5, 2650, func(p *config.Planet) { p.Nu = 0 }, "nu"},
		{"zero rho", 1e-5, 2650, func(p *config.Planet) { p.Rho = 0 }, "rho"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := earth
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			_, err := SettlingVelocity(tt.diameter, tt.density, p)
			var cfgErr *dynamo.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestThresholdFrictionVelocity(t *testing.T) {
	mars := lookup(t, "mars")
	u, err := ThresholdFrictionVelocity(100e-6, 2650, mars, DefaultEmpiricalConstant)
	require.NoError(t, err)
	want := math.Sqrt((2650 - 0.020) * 3.71 * 100e-6 / (0.020 * 0.1))
	assert.InDelta(t, want, u, 1e-12)

	loose, err := ThresholdFrictionVelocity(100e-6, 2650, mars, 0.4)
	require.NoError(t, err)
	assert.InDelta(t, u/2, loose, 1e-12, "u*t scales with 1/sqrt(a)")
}

func TestThresholdFrictionVelocity_Errors(t *testing.T) {
	venus := lookup(t, "venus")

	_, err := ThresholdFrictionVelocity(1e-4, 2650, venus, 0)
	var cfgErr *dynamo.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "empirical_constant", cfgErr.Field)

	_, err = ThresholdFrictionVelocity(1e-4, 50, venus, DefaultEmpiricalConstant)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "particle.density", cfgErr.Field)
}
