package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Axis selects a grid direction.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "invalid"
	}
}

// Valid reports whether a is one of the three grid axes.
func (a Axis) Valid() bool { return a >= AxisX && a <= AxisZ }

// Grid is the cell layout of a State. Cells are stored x-fastest:
// index = (k*NY + j)*NX + i.
type Grid struct {
	NX, NY, NZ int
}

// Point is the 1x1x1 grid of a single-point model.
var Point = Grid{NX: 1, NY: 1, NZ: 1}

func (g Grid) Len() int { return g.NX * g.NY * g.NZ }

// Extent returns the number of cells along a.
func (g Grid) Extent(a Axis) int {
	switch a {
	case AxisX:
		return g.NX
	case AxisY:
		return g.NY
	default:
		return g.NZ
	}
}

func (g Grid) Index(i, j, k int) int {
	return (k*g.NY+j)*g.NX + i
}

func (g Grid) Coords(idx int) (i, j, k int) {
	i = idx % g.NX
	j = (idx / g.NX) % g.NY
	k = idx / (g.NX * g.NY)
	return
}

// Stride is the flat-index distance between neighbours along a.
func (g Grid) Stride(a Axis) int {
	switch a {
	case AxisX:
		return 1
	case AxisY:
		return g.NX
	default:
		return g.NX * g.NY
	}
}

// Coord returns the cell coordinate of idx along a.
func (g Grid) Coord(idx int, a Axis) int {
	i, j, k := g.Coords(idx)
	switch a {
	case AxisX:
		return i
	case AxisY:
		return j
	default:
		return k
	}
}

func (g Grid) Valid() bool {
	return g.NX > 0 && g.NY > 0 && g.NZ > 0
}

// ScalarField holds one value per grid cell.
type ScalarField []float64

// Uniform returns a field of n cells all set to v.
func Uniform(n int, v float64) ScalarField {
	f := make(ScalarField, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func (f ScalarField) Clone() ScalarField {
	if f == nil {
		return nil
	}
	c := make(ScalarField, len(f))
	copy(c, f)
	return c
}

func (f ScalarField) Sum() float64 { return floats.Sum(f) }

// FirstNonFinite returns the index of the first NaN or Inf, or -1.
func (f ScalarField) FirstNonFinite() int {
	for i, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// Vec3 is a single-cell vector.
type Vec3 [3]float64

func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// VectorField holds three component fields of equal length. A VectorField
// whose components are nil is absent.
type VectorField [3]ScalarField

// NewVectorField returns a zero vector field of n cells.
func NewVectorField(n int) VectorField {
	return VectorField{make(ScalarField, n), make(ScalarField, n), make(ScalarField, n)}
}

// UniformVector returns a vector field of n cells all set to v.
func UniformVector(n int, v Vec3) VectorField {
	return VectorField{Uniform(n, v[0]), Uniform(n, v[1]), Uniform(n, v[2])}
}

// Present reports whether all three components are allocated.
func (v VectorField) Present() bool {
	return v[0] != nil && v[1] != nil && v[2] != nil
}

func (v VectorField) Len() int { return len(v[0]) }

func (v VectorField) At(idx int) Vec3 {
	return Vec3{v[0][idx], v[1][idx], v[2][idx]}
}

func (v VectorField) Set(idx int, x Vec3) {
	v[0][idx], v[1][idx], v[2][idx] = x[0], x[1], x[2]
}

func (v VectorField) Clone() VectorField {
	return VectorField{v[0].Clone(), v[1].Clone(), v[2].Clone()}
}

// Add returns v + o in a new field.
func (v VectorField) Add(o VectorField) VectorField {
	out := v.Clone()
	for c := 0; c < 3; c++ {
		floats.Add(out[c], o[c])
	}
	return out
}

// MaxNorm returns the largest per-cell magnitude.
func (v VectorField) MaxNorm() float64 {
	m := 0.0
	for i := 0; i < v.Len(); i++ {
		m = math.Max(m, v.At(i).Norm())
	}
	return m
}

// State is a snapshot of the physical fields over a grid. Spacing, when
// non-zero, overrides the planet's dx per axis. DustVelocity is optional;
// see WithCoMovingDust.
type State struct {
	Grid    Grid
	Spacing [3]float64

	// CoMovingDust ties DustVelocity to Velocity across Advance.
	CoMovingDust bool

	Velocity      VectorField
	DustVelocity  VectorField
	Pressure      ScalarField
	Concentration ScalarField
	Temperature   ScalarField
	Humidity      ScalarField
}

// NewUniformState builds a state with the same values in every cell.
func NewUniformState(g Grid, velocity Vec3, pressure, concentration, temperature, humidity float64) State {
	n := g.Len()
	return State{
		Grid:          g,
		Velocity:      UniformVector(n, velocity),
		Pressure:      Uniform(n, pressure),
		Concentration: Uniform(n, concentration),
		Temperature:   Uniform(n, temperature),
		Humidity:      Uniform(n, humidity),
	}
}

// NewPointState builds a single-point state.
func NewPointState(velocity Vec3, pressure, concentration, temperature, humidity float64) State {
	return NewUniformState(Point, velocity, pressure, concentration, temperature, humidity)
}

func (s State) Clone() State {
	c := s
	c.Velocity = s.Velocity.Clone()
	if s.DustVelocity.Present() {
		c.DustVelocity = s.DustVelocity.Clone()
	}
	c.Pressure = s.Pressure.Clone()
	c.Concentration = s.Concentration.Clone()
	c.Temperature = s.Temperature.Clone()
	c.Humidity = s.Humidity.Clone()
	return c
}

// WithCoMovingDust returns a copy whose dust-phase velocity equals the bulk
// velocity, the zero-slip case of the feedback force. The tie persists:
// states advanced from the copy keep DustVelocity equal to Velocity.
func (s State) WithCoMovingDust() State {
	c := s.Clone()
	c.DustVelocity = s.Velocity.Clone()
	c.CoMovingDust = true
	return c
}

// TotalConcentration sums concentration over all cells.
func (s State) TotalConcentration() float64 {
	return s.Concentration.Sum()
}

// HasSpacing reports whether the state carries its own per-axis spacing.
func (s State) HasSpacing() bool {
	return s.Spacing != [3]float64{}
}

// Rates are the time derivatives of the prognostic fields.
type Rates struct {
	Velocity      VectorField
	Concentration ScalarField
}

// WeightedSum returns Σ w[i]·rs[i]. All rates must share one length.
func WeightedSum(w []float64, rs ...Rates) Rates {
	n := len(rs[0].Concentration)
	out := Rates{Velocity: NewVectorField(n), Concentration: make(ScalarField, n)}
	for i, r := range rs {
		for c := 0; c < 3; c++ {
			floats.AddScaled(out.Velocity[c], w[i], r.Velocity[c])
		}
		floats.AddScaled(out.Concentration, w[i], r.Concentration)
	}
	return out
}

// Advance returns s + dt·r as a new state. Diagnostic fields (pressure,
// temperature, humidity) are copied unchanged, as is the dust velocity
// unless the state is co-moving, in which case it follows the new bulk
// velocity. A zero dt returns an exact copy regardless of r.
func (s State) Advance(r Rates, dt float64) State {
	next := s.Clone()
	if dt == 0 {
		return next
	}
	for c := 0; c < 3; c++ {
		floats.AddScaled(next.Velocity[c], dt, r.Velocity[c])
	}
	floats.AddScaled(next.Concentration, dt, r.Concentration)
	if next.CoMovingDust {
		next.DustVelocity = next.Velocity.Clone()
	}
	return next
}

// System yields the time derivatives of a state. Implementations must not
// modify s.
type System interface {
	Derive(s State) (Rates, error)
}

// Integrator advances a state by dt, returning a new state.
type Integrator interface {
	Step(sys System, s State, dt float64) (State, error)
}
