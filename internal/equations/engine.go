// Package equations evaluates the governing-equation tendencies of a
// dust-laden atmosphere: momentum, scalar dust transport and the dust
// feedback force.
//
// Evaluation is pure. Every function reads one immutable State snapshot and
// writes into freshly allocated fields; the input is never modified and no
// reference to it is kept after the call returns.
//
// The baseline Momentum and ScalarTransport omit the additive forces and
// the source, removal and entrainment terms of the documented equations.
// Callers that need them supply them through an Engine.
package equations

import (
	"fmt"

	"github.com/ctessum/atmos/advect"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/stencil"
)

// ForceTerm is an additive momentum forcing, in m/s².
type ForceTerm func(dynamo.State, config.Planet) (dynamo.VectorField, error)

// ScalarTerm is an additive concentration tendency, in units of
// concentration per second.
type ScalarTerm func(dynamo.State, config.Planet) (dynamo.ScalarField, error)

// Engine carries the optional extension terms. The zero Engine evaluates
// the baseline equations.
type Engine struct {
	// Forces are added to the momentum tendency in order.
	Forces []ForceTerm

	Source      ScalarTerm
	Removal     ScalarTerm
	Entrainment ScalarTerm
}

var baseline Engine

// Momentum evaluates -(1/ρ)∇p + ν∇²v - g·ẑ with no additive forces.
func Momentum(s dynamo.State, p config.Planet) (dynamo.VectorField, error) {
	return baseline.Momentum(s, p)
}

// ScalarTransport evaluates D∇²C - v·∇C with no source, removal or
// entrainment.
func ScalarTransport(s dynamo.State, p config.Planet) (dynamo.ScalarField, error) {
	return baseline.ScalarTransport(s, p)
}

// Feedback evaluates κ(v_dust - v) + α∇T + β∇H. It has the ForceTerm
// signature so callers can add it to an Engine's Forces.
func Feedback(s dynamo.State, p config.Planet) (dynamo.VectorField, error) {
	if p.Feedback == nil {
		return dynamo.VectorField{}, dynamo.NewConfigError("feedback", 0, "feedback coefficients are required")
	}
	if err := p.Feedback.Validate(); err != nil {
		return dynamo.VectorField{}, err
	}
	if err := checkShape(s); err != nil {
		return dynamo.VectorField{}, err
	}
	if !s.DustVelocity.Present() {
		return dynamo.VectorField{}, &dynamo.ValidationError{Field: "dust_velocity", Index: -1,
			Reason: "dust-phase velocity is required; use WithCoMovingDust for the zero-slip case"}
	}
	if err := checkVector("dust_velocity", s.DustVelocity, s.Grid.Len()); err != nil {
		return dynamo.VectorField{}, err
	}
	op, err := operator(s, p)
	if err != nil {
		return dynamo.VectorField{}, err
	}

	fb := *p.Feedback
	n := s.Grid.Len()
	out := dynamo.NewVectorField(n)
	dynamo.ParallelFor(n, stencil.MinChunk, func(start, end int) {
		for idx := start; idx < end; idx++ {
			gradT := op.GradientAt(s.Temperature, idx)
			gradH := op.GradientAt(s.Humidity, idx)
			for c := 0; c < 3; c++ {
				out[c][idx] = fb.Coupling*(s.DustVelocity[c][idx]-s.Velocity[c][idx]) +
					fb.Thermal*gradT[c] + fb.Humidity*gradH[c]
			}
		}
	})
	return out, nil
}

// Momentum evaluates the momentum tendency plus every force in e.Forces.
func (e Engine) Momentum(s dynamo.State, p config.Planet) (dynamo.VectorField, error) {
	if err := checkShape(s); err != nil {
		return dynamo.VectorField{}, err
	}
	if err := config.RequirePositive("rho", p.Rho); err != nil {
		return dynamo.VectorField{}, err
	}
	if err := config.RequirePositive("nu", p.Nu); err != nil {
		return dynamo.VectorField{}, err
	}
	if err := config.RequirePositive("g", p.G); err != nil {
		return dynamo.VectorField{}, err
	}
	vertical, err := p.Numerics.VerticalAxis.Axis()
	if err != nil {
		return dynamo.VectorField{}, err
	}
	op, err := operator(s, p)
	if err != nil {
		return dynamo.VectorField{}, err
	}

	n := s.Grid.Len()
	out := dynamo.NewVectorField(n)
	invRho := 1 / p.Rho
	dynamo.ParallelFor(n, stencil.MinChunk, func(start, end int) {
		for idx := start; idx < end; idx++ {
			gradP := op.GradientAt(s.Pressure, idx)
			for c := 0; c < 3; c++ {
				out[c][idx] = -invRho*gradP[c] + p.Nu*op.LaplacianAt(s.Velocity[c], idx)
			}
			out[vertical][idx] -= p.G
		}
	})

	for i, f := range e.Forces {
		if f == nil {
			continue
		}
		extra, err := f(s, p)
		if err != nil {
			return dynamo.VectorField{}, fmt.Errorf("force %d: %w", i, err)
		}
		if err := checkVector(fmt.Sprintf("force %d", i), extra, n); err != nil {
			return dynamo.VectorField{}, err
		}
		out = out.Add(extra)
	}
	return out, nil
}

// ScalarTransport evaluates the transport tendency plus S - R + E from the
// engine's scalar terms.
func (e Engine) ScalarTransport(s dynamo.State, p config.Planet) (dynamo.ScalarField, error) {
	if err := checkShape(s); err != nil {
		return nil, err
	}
	if !(p.D >= 0) {
		return nil, dynamo.NewConfigError("D", p.D, "must be non-negative")
	}
	op, err := operator(s, p)
	if err != nil {
		return nil, err
	}

	var advection func(idx int) float64
	switch p.Numerics.Advection {
	case config.AdvectionCentral:
		advection = func(idx int) float64 {
			grad := op.GradientAt(s.Concentration, idx)
			return -(s.Velocity[0][idx]*grad[0] + s.Velocity[1][idx]*grad[1] + s.Velocity[2][idx]*grad[2])
		}
	case config.AdvectionUpwind:
		advection = func(idx int) float64 { return upwindDivergence(op, s, idx) }
	default:
		return nil, dynamo.NewConfigError("numerics.advection", 0, fmt.Sprintf("unknown advection scheme %q", p.Numerics.Advection))
	}

	n := s.Grid.Len()
	out := make(dynamo.ScalarField, n)
	dynamo.ParallelFor(n, stencil.MinChunk, func(start, end int) {
		for idx := start; idx < end; idx++ {
			out[idx] = p.D*op.LaplacianAt(s.Concentration, idx) + advection(idx)
		}
	})

	terms := []struct {
		name string
		sign float64
		fn   ScalarTerm
	}{
		{"source", 1, e.Source},
		{"removal", -1, e.Removal},
		{"entrainment", 1, e.Entrainment},
	}
	for _, t := range terms {
		if t.fn == nil {
			continue
		}
		v, err := t.fn(s, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		if len(v) != n {
			return nil, &dynamo.ValidationError{Field: t.name, Index: -1,
				Reason: fmt.Sprintf("has %d cells, grid has %d", len(v), n)}
		}
		for idx := range out {
			out[idx] += t.sign * v[idx]
		}
	}
	return out, nil
}

// Rates evaluates both prognostic tendencies, the form an integrator needs.
func (e Engine) Rates(s dynamo.State, p config.Planet) (dynamo.Rates, error) {
	dv, err := e.Momentum(s, p)
	if err != nil {
		return dynamo.Rates{}, fmt.Errorf("momentum: %w", err)
	}
	dc, err := e.ScalarTransport(s, p)
	if err != nil {
		return dynamo.Rates{}, fmt.Errorf("scalar transport: %w", err)
	}
	return dynamo.Rates{Velocity: dv, Concentration: dc}, nil
}

// upwindDivergence returns -∇·(vC) at idx as the net first-order upwind
// flux through the cell faces. Face velocities are the mean of the two
// adjacent cell velocities.
func upwindDivergence(op *stencil.Operator, s dynamo.State, idx int) float64 {
	sum := 0.0
	c := s.Concentration
	for a := dynamo.AxisX; a <= dynamo.AxisZ; a++ {
		m, p := op.Neighbours(idx, a)
		if m == idx && p == idx {
			continue
		}
		v := s.Velocity[a]
		h := op.Spacing(a)
		in := advect.UpwindFlux(0.5*(v[idx]+v[m]), c[m], c[idx], h)
		out := advect.UpwindFlux(0.5*(v[idx]+v[p]), c[idx], c[p], h)
		sum += in - out
	}
	return sum
}

func operator(s dynamo.State, p config.Planet) (*stencil.Operator, error) {
	return stencil.ForState(s, p.Dx, p.Numerics.Boundary)
}

// checkShape confirms every field the engine reads is present and sized to
// the grid. Value invariants are the validator's job.
func checkShape(s dynamo.State) error {
	if !s.Grid.Valid() {
		return &dynamo.ValidationError{Field: "grid", Index: -1,
			Reason: fmt.Sprintf("invalid shape %dx%dx%d", s.Grid.NX, s.Grid.NY, s.Grid.NZ)}
	}
	n := s.Grid.Len()
	if err := checkVector("velocity", s.Velocity, n); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		field dynamo.ScalarField
	}{
		{"pressure", s.Pressure},
		{"concentration", s.Concentration},
		{"temperature", s.Temperature},
		{"humidity", s.Humidity},
	} {
		if f.field == nil {
			return &dynamo.ValidationError{Field: f.name, Index: -1, Reason: "missing"}
		}
		if len(f.field) != n {
			return &dynamo.ValidationError{Field: f.name, Index: -1,
				Reason: fmt.Sprintf("has %d cells, grid has %d", len(f.field), n)}
		}
	}
	return nil
}

func checkVector(name string, v dynamo.VectorField, n int) error {
	if !v.Present() {
		return &dynamo.ValidationError{Field: name, Index: -1, Reason: "missing"}
	}
	for c := 0; c < 3; c++ {
		if len(v[c]) != n {
			return &dynamo.ValidationError{Field: name, Index: -1,
				Reason: fmt.Sprintf("component %d has %d cells, grid has %d", c, len(v[c]), n)}
		}
	}
	return nil
}
