package integrators

import (
	"math"

	"github.com/san-kum/dustdyn/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0

	rk45Weights    = []float64{c1, 0, c3, c4, c5, c6}
	rk45ErrWeights = []float64{dc1, 0, dc3, dc4, dc5, dc6, dc7}
)

// RK45 is the Dormand-Prince embedded pair. StepAdaptive also returns the
// step size suggested by the local error estimate.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	tol      float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		tol:      1e-6,
	}
}

func (r *RK45) Step(sys dynamo.System, s dynamo.State, dt float64) (dynamo.State, error) {
	next, _, err := r.StepAdaptive(sys, s, dt, r.tol)
	return next, err
}

// StepAdaptive advances s by dt and returns the new state with the next
// suggested dt. The error is measured over velocity and concentration,
// relative to each value's magnitude.
func (r *RK45) StepAdaptive(sys dynamo.System, s dynamo.State, dt, tol float64) (dynamo.State, float64, error) {
	stages := [][]float64{
		nil,
		{b21},
		{b31, b32},
		{b41, b42, b43},
		{b51, b52, b53, b54},
		{b61, b62, b63, b64, b65},
	}
	ks := make([]dynamo.Rates, 0, 7)
	for i, w := range stages {
		x := s
		if i > 0 {
			x = s.Advance(dynamo.WeightedSum(w, ks...), dt)
		}
		k, err := sys.Derive(x)
		if err != nil {
			return dynamo.State{}, dt, err
		}
		ks = append(ks, k)
	}

	next := s.Advance(dynamo.WeightedSum(rk45Weights, ks...), dt)
	k7, err := sys.Derive(next)
	if err != nil {
		return dynamo.State{}, dt, err
	}
	ks = append(ks, k7)

	est := dynamo.WeightedSum(rk45ErrWeights, ks...)
	errMax := 0.0
	measure := func(x, k1, e dynamo.ScalarField) {
		for i := range x {
			scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
			errMax = math.Max(errMax, math.Abs(dt*e[i])/scale)
		}
	}
	for c := 0; c < 3; c++ {
		measure(s.Velocity[c], ks[0].Velocity[c], est.Velocity[c])
	}
	measure(s.Concentration, ks[0].Concentration, est.Concentration)

	errRatio := errMax / tol

	var dtNew float64
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		dtNew = dt * scale
	} else {
		if errRatio > 0 {
			scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			dtNew = dt * scale
		} else {
			dtNew = dt * r.maxScale
		}
	}

	return next, dtNew, nil
}
