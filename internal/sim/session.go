package sim

import (
	"errors"
	"math"

	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/validate"
	"go.uber.org/zap"
)

// Session steps a run one accepted step at a time. Run drives a Session to
// completion; interactive front ends call Step themselves.
type Session struct {
	sim *Simulator
	cfg Config

	x0          dynamo.State
	x           dynamo.State
	t           float64
	dt          float64
	step        int
	retries     int
	initialMass float64
}

// NewSession validates x0 and prepares a run from it. x0 is copied.
func (s *Simulator) NewSession(x0 dynamo.State, cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := validate.State(x0); err != nil {
		return nil, &dynamo.SimulationError{Step: 0, Time: 0, Wrapped: err}
	}
	sess := &Session{sim: s, cfg: cfg, x0: x0.Clone()}
	sess.Reset()
	return sess, nil
}

// Reset rewinds to the initial state.
func (ss *Session) Reset() {
	ss.x = ss.x0.Clone()
	ss.t = 0
	ss.dt = ss.cfg.Dt
	ss.step = 0
	ss.retries = 0
	ss.initialMass = ss.x.TotalConcentration()
	for _, m := range ss.sim.metrics {
		m.Reset()
		m.Observe(ss.x, 0)
	}
}

func (ss *Session) State() dynamo.State  { return ss.x }
func (ss *Session) Time() float64        { return ss.t }
func (ss *Session) StepCount() int       { return ss.step }
func (ss *Session) Dt() float64          { return ss.dt }
func (ss *Session) InitialMass() float64 { return ss.initialMass }

// Done reports whether the configured duration has been reached.
func (ss *Session) Done() bool {
	return ss.t >= ss.cfg.Duration-1e-9*ss.cfg.Duration
}

// Step advances by one accepted step. A step whose result fails
// validation is retried with half the step size up to MaxRetries times,
// and the reduced step size is kept. Configuration errors are never
// retried. The session is unchanged when Step returns an error.
func (ss *Session) Step() error {
	if ss.Done() {
		return nil
	}
	log := ss.sim.logger
	dt := math.Min(ss.dt, ss.cfg.Duration-ss.t)

	for attempt := 0; ; attempt++ {
		next, suggested, err := ss.advance(dt)
		if err == nil {
			ss.x = next
			ss.t += dt
			ss.step++
			if ss.cfg.Adaptive {
				ss.dt = ss.clampDt(suggested)
			} else if dt < ss.dt && !ss.Done() && attempt > 0 {
				ss.dt = dt
			}
			ss.notify()
			return nil
		}

		wrapped := &dynamo.SimulationError{Step: ss.step + 1, Time: ss.t, Wrapped: err}
		if errors.Is(err, dynamo.ErrConfiguration) || attempt >= ss.cfg.MaxRetries {
			log.Error("step failed",
				zap.Int("step", ss.step+1),
				zap.Float64("t", ss.t),
				zap.Float64("dt", dt),
				zap.Error(err))
			return wrapped
		}
		ss.retries++
		log.Warn("retrying step with half dt",
			zap.Int("step", ss.step+1),
			zap.Float64("t", ss.t),
			zap.Float64("dt", dt/2),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		dt /= 2
	}
}

func (ss *Session) advance(dt float64) (dynamo.State, float64, error) {
	var (
		next      dynamo.State
		suggested = dt
		err       error
	)
	if adaptive, ok := ss.sim.integrator.(AdaptiveIntegrator); ok && ss.cfg.Adaptive {
		next, suggested, err = adaptive.StepAdaptive(ss.sim.sys, ss.x, dt, ss.cfg.Tolerance)
	} else {
		next, err = ss.sim.integrator.Step(ss.sim.sys, ss.x, dt)
	}
	if err != nil {
		return dynamo.State{}, dt, err
	}
	if err := validate.Finite(next); err != nil {
		return dynamo.State{}, dt, err
	}
	if err := validate.State(next); err != nil {
		return dynamo.State{}, dt, err
	}
	if ss.cfg.CheckConservation {
		if err := validate.Results(next, ss.initialMass, ss.cfg.Tolerance); err != nil {
			return dynamo.State{}, dt, err
		}
	}
	return next, suggested, nil
}

func (ss *Session) clampDt(dt float64) float64 {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return ss.dt
	}
	if ss.cfg.MinDt > 0 {
		dt = math.Max(dt, ss.cfg.MinDt)
	}
	if ss.cfg.MaxDt > 0 {
		dt = math.Min(dt, ss.cfg.MaxDt)
	}
	return dt
}

func (ss *Session) notify() {
	for _, m := range ss.sim.metrics {
		m.Observe(ss.x, ss.t)
	}
	for _, o := range ss.sim.observers {
		o.OnStep(ss.x, ss.t)
	}
}
