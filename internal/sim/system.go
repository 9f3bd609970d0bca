package sim

import (
	"github.com/ctessum/atmos/seinfeld"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/equations"
	"github.com/san-kum/dustdyn/internal/particle"
	"github.com/san-kum/dustdyn/internal/sources"
)

// DustSystem evaluates the dust-laden equations for one planet. It is the
// dynamo.System an integrator advances.
type DustSystem struct {
	Planet config.Planet
	Engine equations.Engine

	// Warnings are the regime warnings raised while assembling the terms.
	Warnings []error
}

// Derive returns the momentum and concentration tendencies of s.
func (d *DustSystem) Derive(s dynamo.State) (dynamo.Rates, error) {
	return d.Engine.Rates(s, d.Planet)
}

// NewDustSystem assembles the engine terms enabled in phys. Feedback needs
// the planet to carry feedback coefficients. A settling velocity evaluated
// outside the Stokes regime is kept in Warnings, not returned as an error.
func NewDustSystem(p config.Planet, phys config.PhysicsConfig, part config.ParticleConfig) (*DustSystem, error) {
	var (
		e        equations.Engine
		warnings []error
	)

	if phys.Feedback {
		if p.Feedback == nil {
			return nil, dynamo.NewConfigError("feedback", 0, "physics.feedback is enabled but the planet has no feedback coefficients")
		}
		e.Forces = append(e.Forces, equations.Feedback)
	}

	if phys.Source != 0 {
		e.Source = sources.Constant(phys.Source)
	}

	var removal []equations.ScalarTerm
	if phys.Settling {
		st, err := particle.SettlingVelocity(part.Diameter, part.Density, p)
		if err != nil {
			return nil, err
		}
		if w := st.Warning(); w != nil {
			warnings = append(warnings, w)
		}
		removal = append(removal, sources.GravitationalSettling(part.Diameter, part.Density))
	}
	if phys.DryDeposition {
		dd := sources.DryDeposition{
			Diameter: part.Diameter,
			Density:  part.Density,
			Season:   seinfeld.Midsummer,
			LandUse:  seinfeld.Desert,
		}
		if err := dd.Validate(p); err != nil {
			return nil, err
		}
		removal = append(removal, dd.Term())
	}
	switch len(removal) {
	case 0:
	case 1:
		e.Removal = removal[0]
	default:
		e.Removal = sources.Sum(removal...)
	}

	if phys.Entrainment {
		e.Entrainment = sources.Entrainment{
			Coefficient:       phys.EntrainmentCoefficient,
			Diameter:          part.Diameter,
			Density:           part.Density,
			EmpiricalConstant: part.EmpiricalConstant,
		}.Term()
	}

	return &DustSystem{Planet: p, Engine: e, Warnings: warnings}, nil
}
