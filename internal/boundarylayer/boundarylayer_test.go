package boundarylayer

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func earth(t *testing.T) config.Planet {
	t.Helper()
	p, err := config.Lookup("earth")
	require.NoError(t, err)
	return p
}

func TestPsi(t *testing.T) {
	assert.Equal(t, 0.0, Psi(10, Neutral))
	assert.Equal(t, 0.0, Psi(10, math.Inf(-1)))
	assert.Equal(t, 0.0, Psi(10, 0))
	assert.InDelta(t, -4.7*0.1, Psi(10, 100), 1e-12)
	assert.Greater(t, Psi(10, -50), 0.0, "unstable correction is positive")
	assert.InDelta(t, 0, Psi(1e-9, -50), 1e-9, "continuous through neutral")
}

func TestWindSpeed_NeutralLogLaw(t *testing.T) {
	p := earth(t)
	u, err := WindSpeed(0.5, 10, p, Neutral)
	require.NoError(t, err)
	assert.InDelta(t, 0.5/0.41*math.Log(1000), u, 1e-12)
}

func TestFrictionVelocity_RoundTrip(t *testing.T) {
	p := earth(t)
	for _, L := range []float64{Neutral, 200, -30} {
		ustar, err := FrictionVelocity(8, 10, p, L)
		require.NoError(t, err)
		u, err := WindSpeed(ustar, 10, p, L)
		require.NoError(t, err)
		assert.InDelta(t, 8, u, 1e-12, "L=%v", L)
	}

	stable, _ := FrictionVelocity(8, 10, p, 50)
	unstable, _ := FrictionVelocity(8, 10, p, -50)
	assert.Less(t, stable, unstable)
}

func TestProfile_Errors(t *testing.T) {
	p := earth(t)

	_, err := WindSpeed(0.3, p.Z0, p, Neutral)
	var cfgErr *dynamo.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "z", cfgErr.Field)

	_, err = WindSpeed(-0.3, 10, p, Neutral)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "ustar", cfgErr.Field)

	_, err = FrictionVelocity(5, 10, p, math.NaN())
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))

	_, err = FrictionVelocity(5, 10, p, -1e-5)
	require.True(t, errors.As(err, &cfgErr), "extreme instability drives the profile negative")
	assert.Equal(t, "obukhov_length", cfgErr.Field)
}

func TestObukhovLength(t *testing.T) {
	p := earth(t)
	L, err := ObukhovLength(100, 300, 0.3, p)
	require.NoError(t, err)
	thetaFlux := 100 / (p.Rho * p.Cp)
	want := -300 * math.Pow(0.3, 3) / (p.G * config.VonKarman * thetaFlux)
	assert.InDelta(t, want, L, 1e-9)
	assert.Less(t, L, 0.0)

	L, err = ObukhovLength(-20, 300, 0.3, p)
	require.NoError(t, err)
	assert.Greater(t, L, 0.0)

	L, err = ObukhovLength(0, 300, 0.3, p)
	require.NoError(t, err)
	assert.True(t, math.IsInf(L, 1))
}

func TestObukhovLength_PlanetConstants(t *testing.T) {
	mars, err := config.Lookup("mars")
	require.NoError(t, err)
	L, err := ObukhovLength(20, 210, 0.4, mars)
	require.NoError(t, err)
	want := -210 * math.Pow(0.4, 3) / (mars.G * config.VonKarman * (20 / (mars.Rho * mars.Cp)))
	assert.InDelta(t, want, L, 1e-9)

	mars.Cp = 0
	_, err = ObukhovLength(20, 210, 0.4, mars)
	var cfgErr *dynamo.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "cp", cfgErr.Field)
}
