// Package sources provides source, removal and entrainment terms for the
// dust transport equation. Each constructor returns an equations.ScalarTerm
// that evaluates to a concentration tendency field; removal terms return a
// positive rate that the engine subtracts.
//
// Surface fluxes act on the ground layer, the cells at coordinate 0 along
// the planet's vertical axis, and are converted to a volume rate by
// dividing by the vertical cell size Δz.
package sources

import (
	"fmt"
	"math"

	"github.com/ctessum/atmos/seinfeld"
	"github.com/san-kum/dustdyn/internal/boundarylayer"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/equations"
	"github.com/san-kum/dustdyn/internal/particle"
	"github.com/san-kum/dustdyn/internal/stencil"
)

// Constant emits rate into every cell.
func Constant(rate float64) equations.ScalarTerm {
	return func(s dynamo.State, _ config.Planet) (dynamo.ScalarField, error) {
		if math.IsNaN(rate) || math.IsInf(rate, 0) {
			return nil, dynamo.NewConfigError("source", rate, "must be finite")
		}
		return dynamo.Uniform(s.Grid.Len(), rate), nil
	}
}

// Sum adds terms together; nil terms are skipped.
func Sum(terms ...equations.ScalarTerm) equations.ScalarTerm {
	return func(s dynamo.State, p config.Planet) (dynamo.ScalarField, error) {
		out := make(dynamo.ScalarField, s.Grid.Len())
		for _, t := range terms {
			if t == nil {
				continue
			}
			v, err := t(s, p)
			if err != nil {
				return nil, err
			}
			if len(v) != len(out) {
				return nil, &dynamo.ValidationError{Field: "source", Index: -1,
					Reason: fmt.Sprintf("term has %d cells, grid has %d", len(v), len(out))}
			}
			for i := range out {
				out[i] += v[i]
			}
		}
		return out, nil
	}
}

// column resolves the vertical axis and its cell size.
type column struct {
	axis dynamo.Axis
	dz   float64
}

func columnOf(s dynamo.State, p config.Planet) (column, error) {
	axis, err := p.Numerics.VerticalAxis.Axis()
	if err != nil {
		return column{}, err
	}
	op, err := stencil.ForState(s, p.Dx, p.Numerics.Boundary)
	if err != nil {
		return column{}, err
	}
	return column{axis: axis, dz: op.Spacing(axis)}, nil
}

// GravitationalSettling moves dust down each column at the Stokes settling
// velocity. Mass leaves the domain only through the ground layer; the top
// layer receives nothing from above. The term does not report the Stokes
// regime; callers check particle.Settling.Warning once up front.
func GravitationalSettling(diameter, density float64) equations.ScalarTerm {
	return func(s dynamo.State, p config.Planet) (dynamo.ScalarField, error) {
		st, err := particle.SettlingVelocity(diameter, density, p)
		if err != nil {
			return nil, err
		}
		col, err := columnOf(s, p)
		if err != nil {
			return nil, err
		}
		g := s.Grid
		n := g.Extent(col.axis)
		stride := g.Stride(col.axis)
		out := make(dynamo.ScalarField, g.Len())
		for idx := range out {
			above := 0.0
			if g.Coord(idx, col.axis) < n-1 {
				above = s.Concentration[idx+stride]
			}
			out[idx] = st.Velocity * (s.Concentration[idx] - above) / col.dz
		}
		return out, nil
	}
}

// DryDeposition configures the Seinfeld and Pandis resistance model of
// particle dry deposition.
type DryDeposition struct {
	Diameter float64 // [m], at most 20 µm
	Density  float64 // [kg/m³]
	Season   seinfeld.SeasonalCategory
	LandUse  seinfeld.LandUseCategory
	// ObukhovLength of the surface layer; 0 or ±Inf is neutral.
	ObukhovLength float64
}

// seinfeldMaxDiameter is the largest particle the resistance model accepts.
const seinfeldMaxDiameter = 20e-6

// earthGravity is the constant the resistance model is built on.
const earthGravity = 9.81

// Validate rejects parameters outside the resistance model's domain.
func (d DryDeposition) Validate(p config.Planet) error {
	if err := config.RequirePositive("dry_deposition.diameter", d.Diameter); err != nil {
		return err
	}
	if d.Diameter > seinfeldMaxDiameter {
		return dynamo.NewConfigError("dry_deposition.diameter", d.Diameter, "resistance model is limited to 20 µm particles")
	}
	if err := config.RequirePositive("dry_deposition.density", d.Density); err != nil {
		return err
	}
	if d.Season < seinfeld.Midsummer || d.Season > seinfeld.Winter {
		return dynamo.NewConfigError("dry_deposition.season", float64(d.Season), "unknown seasonal category")
	}
	if d.LandUse < seinfeld.Evergreen || d.LandUse > seinfeld.Shrubs {
		return dynamo.NewConfigError("dry_deposition.land_use", float64(d.LandUse), "unknown land use category")
	}
	if math.IsNaN(d.ObukhovLength) {
		return dynamo.NewConfigError("dry_deposition.obukhov_length", d.ObukhovLength, "must not be NaN")
	}
	if math.Abs(p.G-earthGravity) > 0.05 {
		return dynamo.NewConfigError("g", p.G, fmt.Sprintf("resistance model assumes terrestrial gravity %g", earthGravity))
	}
	return nil
}

// Term returns the removal term v_d·C/Δz on the ground layer. The
// friction velocity comes from the log law applied to each ground cell's
// horizontal wind at the cell centre. A calm cell deposits at the
// settling velocity alone.
func (d DryDeposition) Term() equations.ScalarTerm {
	return func(s dynamo.State, p config.Planet) (dynamo.ScalarField, error) {
		if err := d.Validate(p); err != nil {
			return nil, err
		}
		col, err := columnOf(s, p)
		if err != nil {
			return nil, err
		}
		settling, err := particle.SettlingVelocity(d.Diameter, d.Density, p)
		if err != nil {
			return nil, err
		}
		L := d.ObukhovLength
		if math.IsInf(L, 0) {
			L = 0
		}
		z := col.dz / 2
		out := make(dynamo.ScalarField, s.Grid.Len())
		for idx := range out {
			if s.Grid.Coord(idx, col.axis) != 0 {
				continue
			}
			speed := horizontalSpeed(s, idx, col.axis)
			ustar, err := boundarylayer.FrictionVelocity(speed, z, p, d.ObukhovLength)
			if err != nil {
				return nil, err
			}
			vd := settling.Velocity
			if ustar > 0 {
				vd = seinfeld.DryDepParticle(z, p.Z0, ustar, L, d.Diameter,
					s.Temperature[idx], s.Pressure[idx], d.Density, p.Rho, d.Season, d.LandUse)
			}
			out[idx] = vd * s.Concentration[idx] / col.dz
		}
		return out, nil
	}
}

// Entrainment configures saltation-driven uplift of surface dust.
type Entrainment struct {
	// Coefficient converts the horizontal saltation flux into a vertical
	// dust flux [1/m]. It is calibrated per surface.
	Coefficient       float64
	Diameter          float64 // [m]
	Density           float64 // [kg/m³]
	EmpiricalConstant float64
	// ObukhovLength of the surface layer; 0 or ±Inf is neutral.
	ObukhovLength float64
}

// Term returns the uplift term on the ground layer:
//
//	E = c·(ρ/g)·u*³·(1 + u*t/u*)·(1 − u*t²/u*²) / Δz
//
// for cells whose friction velocity u* exceeds the threshold u*t, and
// zero elsewhere.
func (e Entrainment) Term() equations.ScalarTerm {
	return func(s dynamo.State, p config.Planet) (dynamo.ScalarField, error) {
		if err := config.RequirePositive("entrainment.coefficient", e.Coefficient); err != nil {
			return nil, err
		}
		threshold, err := particle.ThresholdFrictionVelocity(e.Diameter, e.Density, p, e.EmpiricalConstant)
		if err != nil {
			return nil, err
		}
		col, err := columnOf(s, p)
		if err != nil {
			return nil, err
		}
		z := col.dz / 2
		out := make(dynamo.ScalarField, s.Grid.Len())
		for idx := range out {
			if s.Grid.Coord(idx, col.axis) != 0 {
				continue
			}
			ustar, err := boundarylayer.FrictionVelocity(horizontalSpeed(s, idx, col.axis), z, p, e.ObukhovLength)
			if err != nil {
				return nil, err
			}
			out[idx] = SaltationFlux(e.Coefficient, ustar, threshold, p) / col.dz
		}
		return out, nil
	}
}

// SaltationFlux returns the vertical dust flux for friction velocity ustar
// and threshold ut, or 0 when ustar <= ut.
func SaltationFlux(c, ustar, ut float64, p config.Planet) float64 {
	if ustar <= ut {
		return 0
	}
	r := ut / ustar
	return c * p.Rho / p.G * ustar * ustar * ustar * (1 + r) * (1 - r*r)
}

// horizontalSpeed is the wind speed in the plane normal to vertical.
func horizontalSpeed(s dynamo.State, idx int, vertical dynamo.Axis) float64 {
	sum := 0.0
	for a := dynamo.AxisX; a <= dynamo.AxisZ; a++ {
		if a == vertical {
			continue
		}
		v := s.Velocity[a][idx]
		sum += v * v
	}
	return math.Sqrt(sum)
}
