// Package verify runs the model's self-checks through its public API and
// describes the result in the report package's terms.
package verify

import (
	"fmt"
	"math"

	"github.com/san-kum/dustdyn/internal/boundarylayer"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/equations"
	"github.com/san-kum/dustdyn/internal/particle"
	"github.com/san-kum/dustdyn/internal/report"
)

const tol = 1e-9

// Equations maps the equation catalog onto report metadata.
func Equations() []report.Equation {
	var out []report.Equation
	for _, info := range equations.Catalog() {
		eq := report.Equation{Name: info.Name, Form: info.Form, Terms: len(info.Terms)}
		for _, t := range info.Terms {
			if t.Evaluated {
				eq.Evaluated++
			}
		}
		for _, t := range info.Missing() {
			eq.Missing = append(eq.Missing, t.Symbol)
		}
		out = append(out, eq)
	}
	return out
}

type check struct {
	name     string
	equation string
	run      func() (string, error)
}

var checks = []check{
	{"resting air accelerates at -g on every planet", "navier_stokes", restingAir},
	{"pressure gradient drives flow toward low pressure", "navier_stokes", pressureGradient},
	{"uniform concentration has zero tendency", "dust_transport", uniformConcentration},
	{"settling velocity is in the Stokes regime for 10 µm dust", "dust_transport", stokesSettling},
	{"co-moving dust in uniform fields exerts no force", "dust_feedback", zeroSlip},
	{"log law inverts to the friction velocity", "boundary_layer", logLawRoundTrip},
	{"stability correction vanishes for neutral stratification", "boundary_layer", neutralPsi},
}

// Checks runs every self-check. A check that errors counts as failed.
func Checks() []report.Check {
	out := make([]report.Check, 0, len(checks))
	for _, c := range checks {
		detail, err := c.run()
		rc := report.Check{Name: c.name, Equation: c.equation, Passed: err == nil, Detail: detail}
		if err != nil {
			rc.Detail = err.Error()
		}
		out = append(out, rc)
	}
	return out
}

// Report assembles a full report over the built-in planets.
func Report() report.Report {
	return report.Report{
		Equations: Equations(),
		Checks:    Checks(),
		Planets:   config.Names(),
		Required:  report.DefaultRequirements,
	}
}

func restingState(p config.Planet, g dynamo.Grid) dynamo.State {
	return dynamo.NewUniformState(g, dynamo.Vec3{}, p.PressureBase, 0.001, p.TemperatureBase, p.HumidityBase)
}

func restingAir() (string, error) {
	for _, name := range config.Names() {
		p, err := config.Lookup(name)
		if err != nil {
			return "", err
		}
		dv, err := equations.Momentum(restingState(p, dynamo.Point), p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		got := dv.At(0)
		if math.Abs(got[0]) > tol || math.Abs(got[1]) > tol || math.Abs(got[2]+p.G) > tol {
			return "", fmt.Errorf("%s: dv/dt = %v, want [0 0 %g]", name, got, -p.G)
		}
	}
	return "", nil
}

func pressureGradient() (string, error) {
	p, err := config.Lookup("earth")
	if err != nil {
		return "", err
	}
	p = p.WithNumerics(config.Numerics{Boundary: config.BoundaryExtrapolate, VerticalAxis: config.VerticalZ, Advection: config.AdvectionCentral})
	g := dynamo.Grid{NX: 5, NY: 1, NZ: 1}
	s := restingState(p, g)
	for i := 0; i < g.NX; i++ {
		s.Pressure[i] = p.PressureBase - 10*float64(i)
	}
	dv, err := equations.Momentum(s, p)
	if err != nil {
		return "", err
	}
	if dv[0][2] <= 0 {
		return "", fmt.Errorf("du/dt = %g, want > 0", dv[0][2])
	}
	return fmt.Sprintf("du/dt = %.4g m/s²", dv[0][2]), nil
}

func uniformConcentration() (string, error) {
	for _, name := range config.Names() {
		p, err := config.Lookup(name)
		if err != nil {
			return "", err
		}
		s := dynamo.NewUniformState(dynamo.Grid{NX: 4, NY: 3, NZ: 5}, dynamo.Vec3{3, -1, 0.5},
			p.PressureBase, 0.002, p.TemperatureBase, p.HumidityBase)
		dc, err := equations.ScalarTransport(s, p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		for i, v := range dc {
			if math.Abs(v) > tol {
				return "", fmt.Errorf("%s: dC/dt[%d] = %g", name, i, v)
			}
		}
	}
	return "", nil
}

func stokesSettling() (string, error) {
	p, err := config.Lookup("earth")
	if err != nil {
		return "", err
	}
	st, err := particle.SettlingVelocity(10e-6, 2650, p)
	if err != nil {
		return "", err
	}
	if err := st.Warning(); err != nil {
		return "", err
	}
	return fmt.Sprintf("v_s = %.3g m/s, Re_p = %.3g", st.Velocity, st.ParticleReynolds), nil
}

func zeroSlip() (string, error) {
	p, err := config.Lookup("mars")
	if err != nil {
		return "", err
	}
	p = p.WithFeedback(config.Feedback{Coupling: 0.5, Thermal: 1e-3, Humidity: 1e-2})
	s := dynamo.NewUniformState(dynamo.Grid{NX: 3, NY: 3, NZ: 3}, dynamo.Vec3{2, 1, 0},
		p.PressureBase, 0.001, p.TemperatureBase, p.HumidityBase).WithCoMovingDust()
	f, err := equations.Feedback(s, p)
	if err != nil {
		return "", err
	}
	if m := f.MaxNorm(); m > tol {
		return "", fmt.Errorf("|F| = %g", m)
	}
	return "", nil
}

func logLawRoundTrip() (string, error) {
	p, err := config.Lookup("earth")
	if err != nil {
		return "", err
	}
	const ustar, z = 0.4, 10.0
	for _, L := range []float64{boundarylayer.Neutral, 50, -50} {
		u, err := boundarylayer.WindSpeed(ustar, z, p, L)
		if err != nil {
			return "", err
		}
		back, err := boundarylayer.FrictionVelocity(u, z, p, L)
		if err != nil {
			return "", err
		}
		if math.Abs(back-ustar) > tol {
			return "", fmt.Errorf("L=%g: u*=%g, want %g", L, back, ustar)
		}
	}
	return "", nil
}

func neutralPsi() (string, error) {
	for _, L := range []float64{0, math.Inf(1), math.Inf(-1)} {
		if v := boundarylayer.Psi(10, L); v != 0 {
			return "", fmt.Errorf("Psi(10, %g) = %g", L, v)
		}
	}
	return "", nil
}
