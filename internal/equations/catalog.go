package equations

// Term is one additive term of a governing equation.
type Term struct {
	Symbol      string
	Description string
	// Evaluated is true when the baseline function computes the term.
	Evaluated bool
	// Extension names the hook that supplies an unevaluated term.
	Extension string
}

// EquationInfo describes a governing equation and how much of it the
// package evaluates.
type EquationInfo struct {
	Name  string
	Form  string
	Terms []Term
}

// Missing returns the terms the baseline evaluation leaves to callers.
func (e EquationInfo) Missing() []Term {
	var out []Term
	for _, t := range e.Terms {
		if !t.Evaluated {
			out = append(out, t)
		}
	}
	return out
}

// Catalog lists the governing equations with their term coverage.
func Catalog() []EquationInfo {
	return []EquationInfo{
		{
			Name: "navier_stokes",
			Form: "∂v/∂t = -(1/ρ)∇p + ν∇²v + g + F_d + F_s",
			Terms: []Term{
				{Symbol: "-(1/ρ)∇p", Description: "pressure gradient", Evaluated: true},
				{Symbol: "ν∇²v", Description: "viscous diffusion", Evaluated: true},
				{Symbol: "g", Description: "gravity along the vertical axis", Evaluated: true},
				{Symbol: "F_d", Description: "dust feedback force", Extension: "Engine.Forces (Feedback)"},
				{Symbol: "F_s", Description: "source force", Extension: "Engine.Forces"},
			},
		},
		{
			Name: "dust_transport",
			Form: "∂C/∂t = D∇²C - v·∇C + S - R + E",
			Terms: []Term{
				{Symbol: "D∇²C", Description: "turbulent diffusion", Evaluated: true},
				{Symbol: "-v·∇C", Description: "advection", Evaluated: true},
				{Symbol: "S", Description: "source", Extension: "Engine.Source"},
				{Symbol: "R", Description: "removal", Extension: "Engine.Removal"},
				{Symbol: "E", Description: "entrainment", Extension: "Engine.Entrainment"},
			},
		},
		{
			Name: "dust_feedback",
			Form: "F = κ(v_dust - v) + α∇T + β∇H",
			Terms: []Term{
				{Symbol: "κ(v_dust - v)", Description: "drag coupling to the dust phase", Evaluated: true},
				{Symbol: "α∇T", Description: "thermal gradient forcing", Evaluated: true},
				{Symbol: "β∇H", Description: "humidity gradient forcing", Evaluated: true},
			},
		},
		{
			Name: "boundary_layer",
			Form: "u(z) = (u*/κ)[ln(z/z0) - Ψm(z/L)]",
			Terms: []Term{
				{Symbol: "(u*/κ)ln(z/z0)", Description: "neutral log law", Evaluated: true},
				{Symbol: "Ψm(z/L)", Description: "Businger-Dyer stability correction", Evaluated: true},
			},
		},
	}
}
