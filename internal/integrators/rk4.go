package integrators

import "github.com/san-kum/dustdyn/internal/dynamo"

var rk4Weights = []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0}

// RK4 is the classical fourth-order Runge-Kutta method. Intermediate
// stages are fresh states; the input is never written.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(sys dynamo.System, s dynamo.State, dt float64) (dynamo.State, error) {
	k1, err := sys.Derive(s)
	if err != nil {
		return dynamo.State{}, err
	}
	k2, err := sys.Derive(s.Advance(k1, dt*0.5))
	if err != nil {
		return dynamo.State{}, err
	}
	k3, err := sys.Derive(s.Advance(k2, dt*0.5))
	if err != nil {
		return dynamo.State{}, err
	}
	k4, err := sys.Derive(s.Advance(k3, dt))
	if err != nil {
		return dynamo.State{}, err
	}
	return s.Advance(dynamo.WeightedSum(rk4Weights, k1, k2, k3, k4), dt), nil
}
