package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/dustdyn/internal/config"
)

var setters = map[string]func(*config.Config, float64){
	"dt":                 func(c *config.Config, v float64) { c.Dt = v },
	"duration":           func(c *config.Config, v float64) { c.Duration = v },
	"wind":               func(c *config.Config, v float64) { c.InitState.Velocity[0] = v },
	"concentration":      func(c *config.Config, v float64) { c.InitState.Concentration = v },
	"plume":              func(c *config.Config, v float64) { c.InitState.Plume = v },
	"lapse_rate":         func(c *config.Config, v float64) { c.InitState.LapseRate = v },
	"diameter":           func(c *config.Config, v float64) { c.Particle.Diameter = v },
	"density":            func(c *config.Config, v float64) { c.Particle.Density = v },
	"empirical_constant": func(c *config.Config, v float64) { c.Particle.EmpiricalConstant = v },
	"source":             func(c *config.Config, v float64) { c.Physics.Source = v },
	"entrainment_coefficient": func(c *config.Config, v float64) {
		c.Physics.Entrainment = v > 0
		c.Physics.EntrainmentCoefficient = v
	},
	"coupling": func(c *config.Config, v float64) {
		fb := config.Feedback{}
		if c.Physics.FeedbackCoefficients != nil {
			fb = *c.Physics.FeedbackCoefficients
		}
		fb.Coupling = v
		c.Physics.Feedback = true
		c.Physics.FeedbackCoefficients = &fb
	},
}

// SetParam sets a named tunable of cfg.
func SetParam(cfg *config.Config, name string, value float64) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s (available: %v)", name, Params())
	}
	set(cfg, value)
	return nil
}

// Params lists the names SetParam accepts.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithParams returns a copy of cfg with params applied.
func WithParams(cfg *config.Config, params map[string]float64) (*config.Config, error) {
	out := *cfg
	if cfg.Physics.FeedbackCoefficients != nil {
		fb := *cfg.Physics.FeedbackCoefficients
		out.Physics.FeedbackCoefficients = &fb
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := SetParam(&out, name, params[name]); err != nil {
			return nil, err
		}
	}
	return &out, nil
}
