package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/dustdyn/internal/dynamo"
)

// VonKarman is the von Kármán constant used by every built-in planet.
const VonKarman = 0.41

// Boundary selects how finite-difference stencils treat cells outside the
// grid.
type Boundary string

const (
	// BoundaryPeriodic wraps each axis onto itself.
	BoundaryPeriodic Boundary = "periodic"
	// BoundaryExtrapolate copies the edge cell into the ghost cell
	// (fixed-value extrapolation).
	BoundaryExtrapolate Boundary = "extrapolate"
)

// Advection selects the discretisation of the advective term of scalar
// transport.
type Advection string

const (
	// AdvectionCentral evaluates -v·∇C with central differences.
	AdvectionCentral Advection = "central"
	// AdvectionUpwind evaluates -∇·(vC) with first-order upwind face fluxes.
	AdvectionUpwind Advection = "upwind"
)

// Vertical names the grid axis gravity acts along.
type Vertical string

const (
	VerticalX Vertical = "x"
	VerticalY Vertical = "y"
	VerticalZ Vertical = "z"
)

// Axis maps v onto a grid axis.
func (v Vertical) Axis() (dynamo.Axis, error) {
	switch v {
	case VerticalX:
		return dynamo.AxisX, nil
	case VerticalY:
		return dynamo.AxisY, nil
	case VerticalZ:
		return dynamo.AxisZ, nil
	case "":
		return 0, dynamo.NewConfigError("numerics.vertical_axis", 0, "vertical axis must be set (x, y or z)")
	default:
		return 0, dynamo.NewConfigError("numerics.vertical_axis", 0, fmt.Sprintf("unknown vertical axis %q", v))
	}
}

// Numerics holds the discretisation choices. None of them has an implicit
// default: a config without a boundary policy is rejected.
type Numerics struct {
	Boundary     Boundary  `yaml:"boundary" toml:"boundary"`
	VerticalAxis Vertical  `yaml:"vertical_axis" toml:"vertical_axis"`
	Advection    Advection `yaml:"advection" toml:"advection"`
}

// Feedback holds the coefficients of the dust feedback force
// κ(v_dust − v) + α∇T + β∇H.
type Feedback struct {
	Coupling float64 `yaml:"coupling" toml:"coupling"`
	Thermal  float64 `yaml:"thermal" toml:"thermal"`
	Humidity float64 `yaml:"humidity" toml:"humidity"`
}

// Planet is the parameter set of one planetary atmosphere. Values are SI.
// Treat a Planet as immutable once built; use the With* methods to derive
// variants.
type Planet struct {
	Name string `yaml:"name,omitempty" toml:"name"`

	Nu    float64 `yaml:"nu" toml:"nu"`       // kinematic viscosity [m2/s]
	Rho   float64 `yaml:"rho" toml:"rho"`     // density [kg/m3]
	G     float64 `yaml:"g" toml:"g"`         // gravity [m/s2]
	D     float64 `yaml:"D" toml:"D"`         // diffusion coefficient [m2/s]
	Kappa float64 `yaml:"kappa" toml:"kappa"` // von Kármán constant
	Z0    float64 `yaml:"z0" toml:"z0"`       // roughness length [m]
	Dt    float64 `yaml:"dt" toml:"dt"`       // default time step [s]
	Dx    float64 `yaml:"dx" toml:"dx"`       // default grid spacing [m]
	Cp    float64 `yaml:"cp,omitempty" toml:"cp"`

	PressureBase    float64 `yaml:"pressure_base" toml:"pressure_base"`
	TemperatureBase float64 `yaml:"temperature_base" toml:"temperature_base"`
	HumidityBase    float64 `yaml:"humidity_base" toml:"humidity_base"`

	Feedback *Feedback `yaml:"feedback,omitempty" toml:"feedback"`
	Numerics Numerics  `yaml:"numerics" toml:"numerics"`

	// Units optionally declares the unit of a field, keyed by its document
	// name ("nu": "m2 s-1"). Declared units are checked by CheckUnits.
	Units map[string]string `yaml:"units,omitempty" toml:"units"`
}

var defaultNumerics = Numerics{
	Boundary:     BoundaryPeriodic,
	VerticalAxis: VerticalZ,
	Advection:    AdvectionCentral,
}

// builtin is the planet table. The parameter sets carry no feedback
// coefficients; see WithFeedback. Read it through Lookup, Names or Builtin.
var builtin = map[string]Planet{
	"earth": {
		Name: "earth", Nu: 1.5e-5, Rho: 1.225, G: 9.81, D: 0.1, Kappa: VonKarman,
		Z0: 0.01, Dt: 0.1, Dx: 0.1, Cp: 1005,
		PressureBase: 101325, TemperatureBase: 288, HumidityBase: 0.5,
		Numerics: defaultNumerics,
	},
	"mars": {
		Name: "mars", Nu: 6.5e-4, Rho: 0.020, G: 3.71, D: 0.35, Kappa: VonKarman,
		Z0: 0.03, Dt: 0.1, Dx: 0.1, Cp: 736,
		PressureBase: 600, TemperatureBase: 210, HumidityBase: 0.0001,
		Numerics: defaultNumerics,
	},
	"venus": {
		Name: "venus", Nu: 3.2e-7, Rho: 65.0, G: 8.87, D: 0.05, Kappa: VonKarman,
		Z0: 0.005, Dt: 0.1, Dx: 0.1, Cp: 1181,
		PressureBase: 9.2e6, TemperatureBase: 737, HumidityBase: 0.003,
		Numerics: defaultNumerics,
	},
}

// Lookup returns a copy of the named built-in planet.
func Lookup(name string) (Planet, error) {
	p, ok := builtin[strings.ToLower(name)]
	if !ok {
		return Planet{}, fmt.Errorf("unknown planet: %s (have %s)", name, strings.Join(Names(), ", "))
	}
	return p.clone(), nil
}

// Names lists the built-in planets in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a copy of the built-in table keyed by planet name.
func Builtin() map[string]Planet {
	out := make(map[string]Planet, len(builtin))
	for name, p := range builtin {
		out[name] = p.clone()
	}
	return out
}

func (p Planet) clone() Planet {
	if p.Feedback != nil {
		fb := *p.Feedback
		p.Feedback = &fb
	}
	if p.Units != nil {
		units := make(map[string]string, len(p.Units))
		for k, v := range p.Units {
			units[k] = v
		}
		p.Units = units
	}
	return p
}

// WithFeedback returns a copy carrying the given feedback coefficients.
func (p Planet) WithFeedback(fb Feedback) Planet {
	c := p.clone()
	c.Feedback = &fb
	return c
}

// WithNumerics returns a copy with different discretisation choices.
func (p Planet) WithNumerics(n Numerics) Planet {
	c := p.clone()
	c.Numerics = n
	return c
}

// DynamicViscosity returns μ = ν·ρ [kg/(m s)].
func (p Planet) DynamicViscosity() float64 { return p.Nu * p.Rho }

// Validate checks every field's domain and returns the first violation as
// a *dynamo.ConfigurationError.
func (p Planet) Validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"nu", p.Nu},
		{"rho", p.Rho},
		{"g", p.G},
		{"kappa", p.Kappa},
		{"z0", p.Z0},
		{"dt", p.Dt},
		{"dx", p.Dx},
		{"pressure_base", p.PressureBase},
		{"temperature_base", p.TemperatureBase},
	}
	for _, f := range positive {
		if err := RequirePositive(f.field, f.value); err != nil {
			return err
		}
	}
	if err := requireNonNegative("D", p.D); err != nil {
		return err
	}
	if err := requireNonNegative("cp", p.Cp); err != nil {
		return err
	}
	if p.HumidityBase < 0 || p.HumidityBase > 1 || math.IsNaN(p.HumidityBase) {
		return dynamo.NewConfigError("humidity_base", p.HumidityBase, "must be within [0, 1]")
	}
	if p.Feedback != nil {
		if err := p.Feedback.Validate(); err != nil {
			return err
		}
	}
	return p.Numerics.Validate()
}

// Validate checks the discretisation choices.
func (n Numerics) Validate() error {
	switch n.Boundary {
	case BoundaryPeriodic, BoundaryExtrapolate:
	case "":
		return dynamo.NewConfigError("numerics.boundary", 0, "boundary policy must be set (periodic or extrapolate)")
	default:
		return dynamo.NewConfigError("numerics.boundary", 0, fmt.Sprintf("unknown boundary policy %q", n.Boundary))
	}
	if _, err := n.VerticalAxis.Axis(); err != nil {
		return err
	}
	switch n.Advection {
	case AdvectionCentral, AdvectionUpwind:
	case "":
		return dynamo.NewConfigError("numerics.advection", 0, "advection scheme must be set (central or upwind)")
	default:
		return dynamo.NewConfigError("numerics.advection", 0, fmt.Sprintf("unknown advection scheme %q", n.Advection))
	}
	return nil
}

// Validate checks the feedback coefficients are finite and the coupling
// is non-negative.
func (f Feedback) Validate() error {
	for _, c := range []struct {
		field string
		value float64
	}{
		{"feedback.coupling", f.Coupling},
		{"feedback.thermal", f.Thermal},
		{"feedback.humidity", f.Humidity},
	} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return dynamo.NewConfigError(c.field, c.value, "must be finite")
		}
	}
	return requireNonNegative("feedback.coupling", f.Coupling)
}

// RequirePositive returns a ConfigurationError unless v > 0 and finite.
func RequirePositive(field string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return dynamo.NewConfigError(field, v, "must be positive and finite")
	}
	return nil
}

func requireNonNegative(field string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return dynamo.NewConfigError(field, v, "must be non-negative and finite")
	}
	return nil
}
