// Package particle computes particle-scale quantities of suspended dust:
// flow Reynolds number, Stokes settling velocity and the threshold
// friction velocity for aeolian uplift.
package particle

import (
	"fmt"
	"math"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
)

// DefaultEmpiricalConstant is the dimensionless constant a of the threshold
// friction velocity. It is calibrated against wind-tunnel data, not derived
// from first principles, and should be tuned per surface.
const DefaultEmpiricalConstant = 0.1

// StokesLimit is the particle Reynolds number below which Stokes' law holds.
const StokesLimit = 1.0

// ReynoldsNumber returns velocity·length/ν.
func ReynoldsNumber(velocity, length, nu float64) (float64, error) {
	if err := config.RequirePositive("nu", nu); err != nil {
		return 0, err
	}
	return velocity * length / nu, nil
}

// Settling is a settling velocity together with its regime check.
type Settling struct {
	Velocity         float64 // [m/s], downward
	ParticleReynolds float64 // v_s·d/ν
	Stokes           bool    // ParticleReynolds < StokesLimit
}

// Warning returns a *dynamo.RegimeWarning when the velocity was evaluated
// outside the Stokes regime, and nil otherwise.
func (s Settling) Warning() error {
	if s.Stokes {
		return nil
	}
	return &dynamo.RegimeWarning{
		Quantity: "settling_velocity",
		Regime:   "Stokes",
		Value:    s.ParticleReynolds,
		Limit:    StokesLimit,
	}
}

// SettlingVelocity evaluates Stokes' law ρp·g·d²/(18·ν·ρ) for a particle of
// the given diameter [m] and density [kg/m³]. The result is returned even
// outside the Stokes regime; check Settling.Stokes or Settling.Warning.
func SettlingVelocity(diameter, density float64, p config.Planet) (Settling, error) {
	if err := config.RequirePositive("particle.diameter", diameter); err != nil {
		return Settling{}, err
	}
	if err := config.RequirePositive("particle.density", density); err != nil {
		return Settling{}, err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"nu", p.Nu}, {"rho", p.Rho}, {"g", p.G}} {
		if err := config.RequirePositive(f.name, f.v); err != nil {
			return Settling{}, err
		}
	}

	vs := density * p.G * diameter * diameter / (18 * p.Nu * p.Rho)
	re := vs * diameter / p.Nu
	return Settling{Velocity: vs, ParticleReynolds: re, Stokes: re < StokesLimit}, nil
}

// ThresholdFrictionVelocity returns sqrt((ρp − ρ)·g·d/(ρ·a)), the friction
// velocity above which the surface wind lifts particles of diameter d.
// a is the empirical constant; pass DefaultEmpiricalConstant absent a
// surface-specific calibration.
func ThresholdFrictionVelocity(diameter, density float64, p config.Planet, a float64) (float64, error) {
	if err := config.RequirePositive("empirical_constant", a); err != nil {
		return 0, err
	}
	if err := config.RequirePositive("particle.diameter", diameter); err != nil {
		return 0, err
	}
	if err := config.RequirePositive("rho", p.Rho); err != nil {
		return 0, err
	}
	if err := config.RequirePositive("g", p.G); err != nil {
		return 0, err
	}
	if !(density > p.Rho) {
		return 0, dynamo.NewConfigError("particle.density", density,
			fmt.Sprintf("must exceed the atmosphere's density %g", p.Rho))
	}
	return math.Sqrt((density - p.Rho) * p.G * diameter / (p.Rho * a)), nil
}
