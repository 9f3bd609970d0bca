// Package dynamo provides the core primitives shared by the dust dynamics
// packages.
//
// The package defines the field types the rest of the module reads and
// writes:
//
//   - [Grid]: cell counts along x, y and z with a flat row-major index
//   - [ScalarField], [VectorField]: per-cell values over a grid
//   - [State]: a physical snapshot (velocity, pressure, concentration,
//     temperature, humidity and, optionally, the dust-phase velocity)
//   - [Rates]: the time derivatives an integrator applies to a State
//
// A single-point model is a 1x1x1 grid; every finite-difference operator
// then sees a uniform neighbourhood and returns zero.
//
// # Ownership
//
// A State is owned by the driver that created it. Evaluation code borrows
// it read-only and always returns freshly allocated fields; [State.Advance]
// returns a new State rather than updating the receiver.
//
// # Errors
//
// Failures are typed ([ConfigurationError], [ValidationError],
// [NumericalError], [ConservationError], [RegimeWarning]) and unwrap to the
// package sentinels, so both errors.Is and errors.As work:
//
//	if errors.Is(err, dynamo.ErrConfiguration) { ... }
package dynamo
