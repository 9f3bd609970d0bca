// Package boundarylayer implements the surface-layer wind profile
//
//	u(z) = (u*/κ)[ln(z/z0) - Ψm(z/L)]
//
// with the Businger-Dyer stability correction Ψm. L is the Monin-Obukhov
// length: negative for unstable (upward heat flux), positive for stable
// stratification, and ±Inf or 0 for neutral conditions.
package boundarylayer

import (
	"fmt"
	"math"

	"github.com/ctessum/atmos/acm2"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
)

// Constants acm2 is calibrated with.
const (
	acm2Cp = 1006.0
	acm2G  = 9.80665
)

// Neutral is the Monin-Obukhov length of neutral stratification.
var Neutral = math.Inf(1)

// Psi returns the Businger-Dyer momentum stability correction Ψm(z/L).
func Psi(z, L float64) float64 {
	if L == 0 || math.IsInf(L, 0) {
		return 0
	}
	zeta := z / L
	if zeta >= 0 {
		return -4.7 * zeta
	}
	x := math.Pow(1-15*zeta, 0.25)
	return 2*math.Log((1+x)/2) + math.Log((1+x*x)/2) - 2*math.Atan(x) + math.Pi/2
}

// WindSpeed evaluates the profile at height z for friction velocity ustar.
func WindSpeed(ustar, z float64, p config.Planet, L float64) (float64, error) {
	if !(ustar >= 0) || math.IsInf(ustar, 0) {
		return 0, dynamo.NewConfigError("ustar", ustar, "must be non-negative and finite")
	}
	f, err := profile(z, p, L)
	if err != nil {
		return 0, err
	}
	return ustar / p.Kappa * f, nil
}

// FrictionVelocity inverts the profile: the u* that yields windSpeed at
// height z.
func FrictionVelocity(windSpeed, z float64, p config.Planet, L float64) (float64, error) {
	f, err := profile(z, p, L)
	if err != nil {
		return 0, err
	}
	return p.Kappa * math.Abs(windSpeed) / f, nil
}

// profile returns ln(z/z0) - Ψm(z/L), which must be positive.
func profile(z float64, p config.Planet, L float64) (float64, error) {
	if err := config.RequirePositive("kappa", p.Kappa); err != nil {
		return 0, err
	}
	if err := config.RequirePositive("z0", p.Z0); err != nil {
		return 0, err
	}
	if !(z > p.Z0) {
		return 0, dynamo.NewConfigError("z", z, fmt.Sprintf("height must exceed the roughness length %g", p.Z0))
	}
	if math.IsNaN(L) {
		return 0, dynamo.NewConfigError("obukhov_length", L, "must not be NaN")
	}
	f := math.Log(z/p.Z0) - Psi(z, L)
	if !(f > 0) {
		return 0, dynamo.NewConfigError("obukhov_length", L,
			fmt.Sprintf("stability correction cancels the log law at z=%g", z))
	}
	return f, nil
}

// ObukhovLength returns the Monin-Obukhov length [m] for a surface heat flux
// [W/m²] (positive upward), boundary-layer mean temperature To [K] and
// friction velocity ustar [m/s]. The planet's Cp and g replace the
// terrestrial constants of the underlying parameterisation. A zero heat
// flux returns Neutral.
func ObukhovLength(heatFlux, To, ustar float64, p config.Planet) (float64, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"cp", p.Cp}, {"rho", p.Rho}, {"g", p.G}, {"temperature", To}, {"ustar", ustar}} {
		if err := config.RequirePositive(f.name, f.v); err != nil {
			return 0, err
		}
	}
	if math.IsNaN(heatFlux) || math.IsInf(heatFlux, 0) {
		return 0, dynamo.NewConfigError("heat_flux", heatFlux, "must be finite")
	}
	if heatFlux == 0 {
		return Neutral, nil
	}
	// acm2 divides by its own Cp and g; rescale so the kinematic flux uses
	// the planet's. acm2 reports positive L for upward flux.
	L := acm2.ObukhovLen(heatFlux*acm2Cp/p.Cp, p.Rho, To, ustar)
	return -L * acm2G / p.G, nil
}
