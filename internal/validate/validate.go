// Package validate checks physical states against their invariants and
// integration results against finiteness and mass conservation. It never
// repairs anything: every violation is returned to the caller.
package validate

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
)

// DefaultTolerance is the relative mass-conservation tolerance.
const DefaultTolerance = 1e-3

type scalar struct {
	name  string
	field dynamo.ScalarField
	check func(float64) bool
	rule  string
}

func scalars(s dynamo.State) []scalar {
	return []scalar{
		{"pressure", s.Pressure, func(v float64) bool { return v > 0 }, "must be positive"},
		{"temperature", s.Temperature, func(v float64) bool { return v > 0 }, "must be positive"},
		{"humidity", s.Humidity, func(v float64) bool { return v >= 0 && v <= 1 }, "must be within [0, 1]"},
		{"concentration", s.Concentration, func(v float64) bool { return v >= 0 }, "must be non-negative"},
	}
}

// State returns the first invariant violation of s as a
// *dynamo.ValidationError, or nil. Structural problems (missing fields,
// mismatched shapes, NaN/Inf) are reported before value ranges.
func State(s dynamo.State) error {
	errs := check(s, true)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// All returns every violated field of s, one *dynamo.ValidationError per
// field, joined with errors.Join.
func All(s dynamo.State) error {
	return errors.Join(check(s, false)...)
}

func check(s dynamo.State, first bool) []error {
	var errs []error
	add := func(err error) bool {
		errs = append(errs, err)
		return first
	}

	if !s.Grid.Valid() {
		add(&dynamo.ValidationError{Field: "grid", Index: -1,
			Reason: fmt.Sprintf("invalid shape %dx%dx%d", s.Grid.NX, s.Grid.NY, s.Grid.NZ)})
		return errs
	}
	n := s.Grid.Len()

	vectors := []struct {
		name     string
		field    dynamo.VectorField
		optional bool
	}{
		{"velocity", s.Velocity, false},
		{"dust_velocity", s.DustVelocity, true},
	}
	for _, v := range vectors {
		if err := checkVector(v.name, v.field, n, v.optional); err != nil && add(err) {
			return errs
		}
	}

	for _, f := range scalars(s) {
		var err error
		switch {
		case f.field == nil:
			err = &dynamo.ValidationError{Field: f.name, Index: -1, Reason: "missing"}
		case len(f.field) != n:
			err = &dynamo.ValidationError{Field: f.name, Index: -1,
				Reason: fmt.Sprintf("has %d cells, grid has %d", len(f.field), n)}
		default:
			if i := f.field.FirstNonFinite(); i >= 0 {
				err = &dynamo.ValidationError{Field: f.name, Index: i, Reason: fmt.Sprintf("is %v", f.field[i])}
			}
		}
		if err != nil && add(err) {
			return errs
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, f := range scalars(s) {
		for i, v := range f.field {
			if !f.check(v) {
				if add(&dynamo.ValidationError{Field: f.name, Index: i,
					Reason: fmt.Sprintf("%s, got %g", f.rule, v)}) {
					return errs
				}
				break
			}
		}
	}
	return errs
}

func checkVector(name string, v dynamo.VectorField, n int, optional bool) error {
	if !v.Present() {
		if optional && v[0] == nil && v[1] == nil && v[2] == nil {
			return nil
		}
		return &dynamo.ValidationError{Field: name, Index: -1, Reason: "missing"}
	}
	for c := 0; c < 3; c++ {
		if len(v[c]) != n {
			return &dynamo.ValidationError{Field: name, Index: -1,
				Reason: fmt.Sprintf("component %d has %d cells, grid has %d", c, len(v[c]), n)}
		}
		if i := v[c].FirstNonFinite(); i >= 0 {
			return &dynamo.ValidationError{Field: name, Index: i,
				Reason: fmt.Sprintf("component %d is %v", c, v[c][i])}
		}
	}
	return nil
}

// Results checks a state produced by an integration step: every velocity
// component and concentration value must be finite (*dynamo.NumericalError)
// and total concentration must stay within tolerance of initial
// (*dynamo.ConservationError). The drift is relative to initial; when
// initial is zero the absolute total is compared against tolerance.
func Results(s dynamo.State, initial, tolerance float64) error {
	if err := config.RequirePositive("tolerance", tolerance); err != nil {
		return err
	}
	if !(initial >= 0) || math.IsInf(initial, 0) {
		return dynamo.NewConfigError("initial_concentration", initial, "must be non-negative and finite")
	}
	if err := Finite(s); err != nil {
		return err
	}

	total := s.TotalConcentration()
	drift := math.Abs(total - initial)
	if initial > 0 {
		drift /= initial
	}
	if drift > tolerance {
		return &dynamo.ConservationError{Initial: initial, Final: total, Relative: drift, Tolerance: tolerance}
	}
	return nil
}

// Finite reports the first NaN or Inf in the prognostic fields as a
// *dynamo.NumericalError.
func Finite(s dynamo.State) error {
	for c := 0; c < 3; c++ {
		if i := s.Velocity[c].FirstNonFinite(); i >= 0 {
			return &dynamo.NumericalError{Field: "velocity", Component: c, Index: i, Value: s.Velocity[c][i]}
		}
	}
	if i := s.Concentration.FirstNonFinite(); i >= 0 {
		return &dynamo.NumericalError{Field: "concentration", Component: -1, Index: i, Value: s.Concentration[i]}
	}
	return nil
}
