package integrators

import "github.com/san-kum/dustdyn/internal/dynamo"

// Euler is the forward Euler method.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, s dynamo.State, dt float64) (dynamo.State, error) {
	r, err := sys.Derive(s)
	if err != nil {
		return dynamo.State{}, err
	}
	return s.Advance(r, dt), nil
}
