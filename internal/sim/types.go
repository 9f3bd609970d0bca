package sim

import (
	"fmt"

	"github.com/san-kum/dustdyn/internal/dynamo"
)

// Metric accumulates a scalar over the states of a run.
type Metric interface {
	Name() string
	Observe(s dynamo.State, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every accepted step.
type Observer interface {
	OnStep(s dynamo.State, t float64)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s dynamo.State, t float64)

func (f ObserverFunc) OnStep(s dynamo.State, t float64) { f(s, t) }

// AdaptiveIntegrator can suggest the next step size.
type AdaptiveIntegrator interface {
	StepAdaptive(sys dynamo.System, s dynamo.State, dt, tol float64) (dynamo.State, float64, error)
}

// Config controls a run.
type Config struct {
	Dt       float64
	Duration float64

	// Tolerance is the relative mass-conservation tolerance. It is also the
	// local error tolerance of adaptive steps.
	Tolerance         float64
	CheckConservation bool

	// MaxRetries is how many times a failed step is retried with half
	// the step size. Zero aborts on the first failure.
	MaxRetries int

	// SnapshotEvery records every n-th step; the initial and final
	// states are always recorded. Zero records only those two.
	SnapshotEvery int

	Adaptive bool
	MinDt    float64
	MaxDt    float64
}

func (c Config) validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %f", c.Tolerance)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot interval must not be negative, got %d", c.SnapshotEvery)
	}
	if c.Adaptive && (c.MinDt < 0 || (c.MaxDt > 0 && c.MaxDt < c.MinDt)) {
		return fmt.Errorf("invalid adaptive bounds [%f, %f]", c.MinDt, c.MaxDt)
	}
	return nil
}

// Snapshot is a recorded state with its summary statistics.
type Snapshot struct {
	Step      int
	Time      float64
	Dt        float64
	TotalMass float64
	MaxSpeed  float64
	State     dynamo.State
}

func newSnapshot(step int, t, dt float64, s dynamo.State) Snapshot {
	return Snapshot{
		Step:      step,
		Time:      t,
		Dt:        dt,
		TotalMass: s.TotalConcentration(),
		MaxSpeed:  s.Velocity.MaxNorm(),
		State:     s.Clone(),
	}
}

// Result is the outcome of a run. On failure it holds everything up to the
// last accepted step.
type Result struct {
	Snapshots   []Snapshot
	Final       dynamo.State
	Steps       int
	Time        float64
	Retries     int
	InitialMass float64
	// MassDrift is |final - initial| relative to the initial total mass,
	// or absolute when the initial total is zero.
	MassDrift float64
	Metrics   map[string]float64
}

// Times returns the snapshot times.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = s.Time
	}
	return out
}

// MassSeries returns total mass at each snapshot.
func (r *Result) MassSeries() []float64 {
	out := make([]float64, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = s.TotalMass
	}
	return out
}
