package dynamo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGrid_IndexRoundTrip(t *testing.T) {
	g := Grid{NX: 4, NY: 3, NZ: 2}
	if g.Len() != 24 {
		t.Fatalf("Len() = %d, want 24", g.Len())
	}
	for idx := 0; idx < g.Len(); idx++ {
		i, j, k := g.Coords(idx)
		if got := g.Index(i, j, k); got != idx {
			t.Errorf("Index(Coords(%d)) = %d", idx, got)
		}
	}
	if g.Stride(AxisX) != 1 || g.Stride(AxisY) != 4 || g.Stride(AxisZ) != 12 {
		t.Errorf("unexpected strides %d %d %d", g.Stride(AxisX), g.Stride(AxisY), g.Stride(AxisZ))
	}
	if g.Coord(g.Index(3, 2, 1), AxisY) != 2 {
		t.Error("Coord along y mismatch")
	}
}

func TestScalarField_FirstNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		field ScalarField
		want  int
	}{
		{"empty", ScalarField{}, -1},
		{"normal", ScalarField{1, 2, 3}, -1},
		{"with NaN", ScalarField{1, math.NaN()}, 1},
		{"with +Inf", ScalarField{math.Inf(1), 1}, 0},
		{"with -Inf", ScalarField{1, 2, math.Inf(-1)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.FirstNonFinite(); got != tt.want {
				t.Errorf("FirstNonFinite() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVec3_Norm(t *testing.T) {
	if got := (Vec3{3, 4, 0}).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", got)
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := NewUniformState(Grid{NX: 2, NY: 1, NZ: 1}, Vec3{1, 2, 3}, 100, 0.5, 280, 0.2)
	c := s.Clone()
	c.Velocity[0][0] = 99
	c.Concentration[1] = 99
	if s.Velocity[0][0] == 99 || s.Concentration[1] == 99 {
		t.Error("Clone shares backing arrays with the original")
	}
}

func TestState_WithCoMovingDust(t *testing.T) {
	s := NewPointState(Vec3{1, -2, 0.5}, 101325, 0.001, 288, 0.5)
	if s.DustVelocity.Present() {
		t.Fatal("dust velocity should be absent by default")
	}
	d := s.WithCoMovingDust()
	if !d.DustVelocity.Present() {
		t.Fatal("dust velocity should be present")
	}
	if diff := cmp.Diff(d.Velocity, d.DustVelocity); diff != "" {
		t.Errorf("dust velocity differs from bulk (-bulk +dust):\n%s", diff)
	}
	if !d.CoMovingDust || s.CoMovingDust {
		t.Error("only the copy should be marked co-moving")
	}
	d.DustVelocity[0][0] = 7
	if d.Velocity[0][0] == 7 {
		t.Error("dust velocity aliases bulk velocity")
	}
}

func TestState_AdvanceZeroStep(t *testing.T) {
	s := NewPointState(Vec3{1, 2, 3}, 600, 0.001, 210, 1e-4)
	r := Rates{
		Velocity:      UniformVector(1, Vec3{math.Inf(1), 1e300, -9.81}),
		Concentration: ScalarField{math.NaN()},
	}
	next := s.Advance(r, 0)
	if diff := cmp.Diff(s, next); diff != "" {
		t.Errorf("zero step changed state (-want +got):\n%s", diff)
	}
}

func TestState_Advance(t *testing.T) {
	s := NewPointState(Vec3{0, 0, 0}, 101325, 1, 288, 0.5)
	r := Rates{Velocity: UniformVector(1, Vec3{0, 0, -9.81}), Concentration: ScalarField{-0.5}}
	next := s.Advance(r, 0.1)
	if math.Abs(next.Velocity[2][0]+0.981) > 1e-12 {
		t.Errorf("vz = %v, want -0.981", next.Velocity[2][0])
	}
	if math.Abs(next.Concentration[0]-0.95) > 1e-12 {
		t.Errorf("C = %v, want 0.95", next.Concentration[0])
	}
	if s.Velocity[2][0] != 0 {
		t.Error("Advance mutated the receiver")
	}
}

func TestState_AdvanceKeepsDustCoMoving(t *testing.T) {
	s := NewPointState(Vec3{1, 0, 0}, 101325, 1, 288, 0.5).WithCoMovingDust()
	r := Rates{Velocity: UniformVector(1, Vec3{0.5, 0, -9.81}), Concentration: ScalarField{0}}
	next := s
	for i := 0; i < 10; i++ {
		next = next.Advance(r, 0.1)
	}
	if !next.CoMovingDust {
		t.Fatal("co-moving flag lost across Advance")
	}
	if diff := cmp.Diff(next.Velocity, next.DustVelocity); diff != "" {
		t.Errorf("dust velocity drifted from bulk (-bulk +dust):\n%s", diff)
	}
	if math.Abs(next.DustVelocity[2][0]+9.81) > 1e-9 {
		t.Errorf("dust vz = %v, want -9.81", next.DustVelocity[2][0])
	}

	slip := NewPointState(Vec3{1, 0, 0}, 101325, 1, 288, 0.5)
	slip.DustVelocity = UniformVector(1, Vec3{2, 0, 0})
	after := slip.Advance(r, 0.1)
	if after.DustVelocity[0][0] != 2 {
		t.Errorf("independent dust velocity changed to %v", after.DustVelocity[0][0])
	}
}

func TestWeightedSum(t *testing.T) {
	a := Rates{Velocity: UniformVector(2, Vec3{1, 1, 1}), Concentration: ScalarField{1, 2}}
	b := Rates{Velocity: UniformVector(2, Vec3{2, 0, -1}), Concentration: ScalarField{3, 4}}
	got := WeightedSum([]float64{1, 2}, a, b)
	if diff := cmp.Diff(Vec3{5, 1, -1}, got.Velocity.At(1)); diff != "" {
		t.Errorf("velocity (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ScalarField{7, 10}, got.Concentration); diff != "" {
		t.Errorf("concentration (-want +got):\n%s", diff)
	}
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{NewConfigError("nu", 0, "must be positive"), ErrConfiguration},
		{&ValidationError{Field: "pressure", Index: 0, Reason: "must be positive"}, ErrValidation},
		{&NumericalError{Field: "velocity", Component: 2, Index: 0, Value: math.NaN()}, ErrNumerical},
		{&ConservationError{Initial: 1, Final: 2, Relative: 1, Tolerance: 1e-3}, ErrConservation},
		{&RegimeWarning{Quantity: "settling_velocity", Regime: "Stokes", Value: 3, Limit: 1}, ErrRegime},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%v does not unwrap to %v", tt.err, tt.want)
		}
	}

	wrapped := &SimulationError{Step: 3, Time: 0.3, Wrapped: NewConfigError("rho", -1, "must be positive")}
	var cfgErr *ConfigurationError
	if !errors.As(wrapped, &cfgErr) || cfgErr.Field != "rho" {
		t.Errorf("errors.As through SimulationError failed: %v", wrapped)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "humidity", Index: 4, Reason: "must be within [0, 1]"}
	want := "dynamo: state humidity[4]: must be within [0, 1]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	err = &ValidationError{Field: "velocity", Index: -1, Reason: "missing"}
	if err.Error() != "dynamo: state velocity: missing" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParallelFor_CoversRangeOnce(t *testing.T) {
	const n = 1000
	hits := make([]int32, n)
	ParallelFor(n, 16, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}
