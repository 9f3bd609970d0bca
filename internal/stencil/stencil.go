// Package stencil implements the finite-difference operators used by the
// equation engine: second-order central first derivatives and the
// second central difference Laplacian on a uniform (per-axis) grid.
//
// Cells outside the grid are resolved by an explicit boundary policy:
// periodic wrapping, or fixed-value extrapolation where the ghost cell
// takes the edge cell's value. An axis with a single cell contributes
// nothing to any derivative.
package stencil

import (
	"fmt"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
)

// Operator evaluates stencils over one grid. It holds no field data and is
// safe for concurrent use.
type Operator struct {
	grid     dynamo.Grid
	h        [3]float64
	boundary config.Boundary
}

// New returns an operator for grid g with per-axis spacing h.
func New(g dynamo.Grid, h [3]float64, b config.Boundary) (*Operator, error) {
	if !g.Valid() {
		return nil, &dynamo.ValidationError{Field: "grid", Index: -1,
			Reason: fmt.Sprintf("invalid shape %dx%dx%d", g.NX, g.NY, g.NZ)}
	}
	for a, v := range h {
		if err := config.RequirePositive("spacing."+dynamo.Axis(a).String(), v); err != nil {
			return nil, err
		}
	}
	switch b {
	case config.BoundaryPeriodic, config.BoundaryExtrapolate:
	default:
		return nil, dynamo.NewConfigError("numerics.boundary", 0, fmt.Sprintf("unsupported boundary policy %q", b))
	}
	return &Operator{grid: g, h: h, boundary: b}, nil
}

// ForState builds an operator for s, using the state's own spacing when it
// carries one and dx on every axis otherwise.
func ForState(s dynamo.State, dx float64, b config.Boundary) (*Operator, error) {
	h := [3]float64{dx, dx, dx}
	if s.HasSpacing() {
		for a, v := range s.Spacing {
			if !(v > 0) {
				return nil, &dynamo.ValidationError{Field: "spacing", Index: -1,
					Reason: fmt.Sprintf("axis %s spacing must be positive, got %g", dynamo.Axis(a), v)}
			}
		}
		h = s.Spacing
	} else if err := config.RequirePositive("dx", dx); err != nil {
		return nil, err
	}
	return New(s.Grid, h, b)
}

func (o *Operator) Grid() dynamo.Grid { return o.grid }

// Spacing returns the grid spacing along a.
func (o *Operator) Spacing(a dynamo.Axis) float64 { return o.h[a] }

// Neighbours returns the flat indices of the cells before and after idx
// along a, with the boundary policy applied.
func (o *Operator) Neighbours(idx int, a dynamo.Axis) (minus, plus int) {
	n := o.grid.Extent(a)
	if n == 1 {
		return idx, idx
	}
	c := o.grid.Coord(idx, a)
	stride := o.grid.Stride(a)
	minus, plus = idx-stride, idx+stride
	switch {
	case c == 0 && o.boundary == config.BoundaryPeriodic:
		minus = idx + (n-1)*stride
	case c == 0:
		minus = idx
	}
	switch {
	case c == n-1 && o.boundary == config.BoundaryPeriodic:
		plus = idx - (n-1)*stride
	case c == n-1:
		plus = idx
	}
	return minus, plus
}

// Partial returns ∂f/∂a at idx by central difference.
func (o *Operator) Partial(f dynamo.ScalarField, idx int, a dynamo.Axis) float64 {
	m, p := o.Neighbours(idx, a)
	if m == p {
		return 0
	}
	return (f[p] - f[m]) / (2 * o.h[a])
}

// GradientAt returns ∇f at idx.
func (o *Operator) GradientAt(f dynamo.ScalarField, idx int) dynamo.Vec3 {
	return dynamo.Vec3{
		o.Partial(f, idx, dynamo.AxisX),
		o.Partial(f, idx, dynamo.AxisY),
		o.Partial(f, idx, dynamo.AxisZ),
	}
}

// LaplacianAt returns ∇²f at idx.
func (o *Operator) LaplacianAt(f dynamo.ScalarField, idx int) float64 {
	sum := 0.0
	for a := dynamo.AxisX; a <= dynamo.AxisZ; a++ {
		m, p := o.Neighbours(idx, a)
		if m == idx && p == idx {
			continue
		}
		sum += (f[p] - 2*f[idx] + f[m]) / (o.h[a] * o.h[a])
	}
	return sum
}

// Gradient returns ∇f over the whole grid in a new field.
func (o *Operator) Gradient(f dynamo.ScalarField) dynamo.VectorField {
	out := dynamo.NewVectorField(len(f))
	dynamo.ParallelFor(len(f), MinChunk, func(start, end int) {
		for idx := start; idx < end; idx++ {
			out.Set(idx, o.GradientAt(f, idx))
		}
	})
	return out
}

// Laplacian returns ∇²f over the whole grid in a new field.
func (o *Operator) Laplacian(f dynamo.ScalarField) dynamo.ScalarField {
	out := make(dynamo.ScalarField, len(f))
	dynamo.ParallelFor(len(f), MinChunk, func(start, end int) {
		for idx := start; idx < end; idx++ {
			out[idx] = o.LaplacianAt(f, idx)
		}
	})
	return out
}

// MinChunk is the smallest number of cells handed to one worker.
const MinChunk = 256
