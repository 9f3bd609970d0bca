package metrics

import (
	"math"

	"github.com/san-kum/dustdyn/internal/dynamo"
)

// MassDrift tracks the largest relative deviation of total concentration
// from the first observed state.
type MassDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(s dynamo.State, t float64) {
	total := s.TotalConcentration()
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++

	drift := math.Abs(total - m.initial)
	if m.initial != 0 {
		drift /= math.Abs(m.initial)
	}
	m.maxDrift = math.Max(m.maxDrift, drift)
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// MeanConcentration is the time average of the domain-mean concentration.
type MeanConcentration struct {
	name    string
	sum     float64
	samples int
}

func NewMeanConcentration() *MeanConcentration {
	return &MeanConcentration{name: "mean_concentration"}
}

func (m *MeanConcentration) Name() string { return m.name }

func (m *MeanConcentration) Observe(s dynamo.State, t float64) {
	if n := len(s.Concentration); n > 0 {
		m.sum += s.TotalConcentration() / float64(n)
		m.samples++
	}
}

func (m *MeanConcentration) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanConcentration) Reset() {
	m.sum = 0
	m.samples = 0
}
