package dynamo

import (
	"errors"
	"fmt"
)

// Sentinels for the error taxonomy. Every typed error below unwraps to one
// of these.
var (
	// ErrConfiguration indicates a missing, zero or out-of-domain config value.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrValidation indicates a state that violates a physical invariant.
	ErrValidation = errors.New("dynamo: invalid state")

	// ErrNumerical indicates NaN or Inf in a field that must be finite.
	ErrNumerical = errors.New("dynamo: non-finite value")

	// ErrConservation indicates total concentration drifted beyond tolerance.
	ErrConservation = errors.New("dynamo: mass conservation violated")

	// ErrRegime indicates a formula evaluated outside its valid regime.
	ErrRegime = errors.New("dynamo: outside valid regime")
)

// ConfigurationError names the offending configuration field.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dynamo: config %s=%g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigError is shorthand for a *ConfigurationError.
func NewConfigError(field string, value float64, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// ValidationError names exactly one offending state field. Index is the
// flat cell index of the first violation, or -1 when the failure is not
// tied to a cell (a missing field, a shape mismatch).
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("dynamo: state %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("dynamo: state %s[%d]: %s", e.Field, e.Index, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NumericalError reports the first non-finite value found in a field.
// Component is the vector component, or -1 for scalar fields.
type NumericalError struct {
	Field     string
	Component int
	Index     int
	Value     float64
}

func (e *NumericalError) Error() string {
	if e.Component < 0 {
		return fmt.Sprintf("dynamo: %s[%d] is %v", e.Field, e.Index, e.Value)
	}
	return fmt.Sprintf("dynamo: %s[%d] component %d is %v", e.Field, e.Index, e.Component, e.Value)
}

func (e *NumericalError) Unwrap() error { return ErrNumerical }

// ConservationError reports the relative drift of total concentration.
type ConservationError struct {
	Initial   float64
	Final     float64
	Relative  float64
	Tolerance float64
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("dynamo: total concentration %g drifted from %g (relative %.3e > %.3e)",
		e.Final, e.Initial, e.Relative, e.Tolerance)
}

func (e *ConservationError) Unwrap() error { return ErrConservation }

// RegimeWarning is reported, not raised: the caller decides whether a value
// computed outside its validity domain is acceptable.
type RegimeWarning struct {
	Quantity string
	Regime   string
	Value    float64
	Limit    float64
}

func (e *RegimeWarning) Error() string {
	return fmt.Sprintf("dynamo: %s outside %s regime (%g >= %g)", e.Quantity, e.Regime, e.Value, e.Limit)
}

func (e *RegimeWarning) Unwrap() error { return ErrRegime }

// SimulationError wraps an error with driver context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
