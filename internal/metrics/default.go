package metrics

import "github.com/san-kum/dustdyn/internal/sim"

// Default returns the metrics attached to every CLI run. speedLimit is
// the wind speed above which a state counts as unstable.
func Default(speedLimit float64) []sim.Metric {
	return []sim.Metric{
		NewMassDrift(),
		NewMeanConcentration(),
		NewMaxSpeed(),
		NewStability(speedLimit),
	}
}
