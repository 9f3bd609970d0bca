package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/unit"
	"github.com/san-kum/dustdyn/internal/dynamo"
)

var (
	meter2PerSecond = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}
	pascalSecond    = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -1}
	specificHeat    = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}
)

// siDimensions are the dimensions each planet field is stored in.
var siDimensions = map[string]unit.Dimensions{
	"nu":               meter2PerSecond,
	"rho":              unit.KilogramPerMeter3,
	"g":                unit.MeterPerSecond2,
	"D":                meter2PerSecond,
	"kappa":            unit.Dimless,
	"z0":               unit.Meter,
	"dt":               unit.Second,
	"dx":               unit.Meter,
	"cp":               specificHeat,
	"pressure_base":    unit.Pascal,
	"temperature_base": unit.Kelvin,
	"humidity_base":    unit.Dimless,
}

var symbols = map[string]unit.Dimension{
	"m":  unit.LengthDim,
	"kg": unit.MassDim,
	"s":  unit.TimeDim,
	"K":  unit.TemperatureDim,
}

// ParseDimensions reads a unit string of space-separated SI base symbols
// with optional integer powers, e.g. "m2 s-1" or "kg m-3". "1" or an
// empty string is dimensionless.
func ParseDimensions(s string) (unit.Dimensions, error) {
	d := unit.Dimensions{}
	s = strings.TrimSpace(s)
	if s == "" || s == "1" {
		return d, nil
	}
	for _, tok := range strings.Fields(s) {
		i := strings.IndexAny(tok, "-0123456789")
		sym, pow := tok, 1
		if i == 0 {
			return nil, fmt.Errorf("unit %q: missing symbol in %q", s, tok)
		}
		if i > 0 {
			sym = tok[:i]
			n, err := strconv.Atoi(tok[i:])
			if err != nil {
				return nil, fmt.Errorf("unit %q: bad power in %q", s, tok)
			}
			pow = n
		}
		dim, ok := symbols[sym]
		if !ok {
			return nil, fmt.Errorf("unit %q: unknown symbol %q (want m, kg, s or K)", s, sym)
		}
		d[dim] += pow
		if d[dim] == 0 {
			delete(d, dim)
		}
	}
	return d, nil
}

// Quantities returns the planet's dimensional parameters. Fields listed in
// Units carry the declared dimensions; the rest are SI.
func (p Planet) Quantities() (map[string]*unit.Unit, error) {
	for field := range p.Units {
		if _, ok := siDimensions[field]; !ok {
			return nil, dynamo.NewConfigError("units."+field, 0, "no such planet field")
		}
	}
	values := map[string]float64{
		"nu":               p.Nu,
		"rho":              p.Rho,
		"g":                p.G,
		"D":                p.D,
		"kappa":            p.Kappa,
		"z0":               p.Z0,
		"dt":               p.Dt,
		"dx":               p.Dx,
		"cp":               p.Cp,
		"pressure_base":    p.PressureBase,
		"temperature_base": p.TemperatureBase,
		"humidity_base":    p.HumidityBase,
	}
	q := make(map[string]*unit.Unit, len(values))
	for field, v := range values {
		dims := siDimensions[field]
		if s, ok := p.Units[field]; ok {
			parsed, err := ParseDimensions(s)
			if err != nil {
				return nil, dynamo.NewConfigError("units."+field, 0, err.Error())
			}
			dims = parsed
		}
		q[field] = unit.New(v, dims)
	}
	return q, nil
}

// CheckUnits combines the parameters the way the equations do and checks
// the resulting dimensions: μ = ν·ρ, the gravity increment g·dt, the
// pressure-gradient acceleration p/(ρ·dx), the viscous rate ν/dx², the
// Schmidt number ν/D, the log-law argument z0/dx and the scale height
// cp·T/g. Remaining fields are checked on their own.
func (p Planet) CheckUnits() error {
	q, err := p.Quantities()
	if err != nil {
		return err
	}
	type check struct {
		name   string
		fields []string
		u      *unit.Unit
		want   unit.Dimensions
	}
	checks := []check{
		{"dynamic viscosity", []string{"nu", "rho"}, unit.Mul(q["nu"], q["rho"]), pascalSecond},
		{"gravity increment", []string{"g", "dt"}, unit.Mul(q["g"], q["dt"]), unit.MeterPerSecond},
		{"pressure gradient acceleration", []string{"pressure_base", "rho", "dx"},
			unit.Div(q["pressure_base"], q["rho"], q["dx"]), unit.MeterPerSecond2},
		{"viscous diffusion rate", []string{"nu", "dx"}, unit.Div(q["nu"], q["dx"], q["dx"]), unit.Herz},
		{"log-law argument", []string{"z0", "dx"}, unit.Div(q["z0"], q["dx"]), unit.Dimless},
		{"von Karman constant", []string{"kappa"}, q["kappa"], unit.Dimless},
		{"reference temperature", []string{"temperature_base"}, q["temperature_base"], unit.Kelvin},
		{"reference humidity", []string{"humidity_base"}, q["humidity_base"], unit.Dimless},
	}
	if p.D > 0 || p.Units["D"] != "" {
		checks = append(checks, check{"Schmidt number", []string{"nu", "D"}, unit.Div(q["nu"], q["D"]), unit.Dimless})
	}
	if p.Cp > 0 || p.Units["cp"] != "" {
		checks = append(checks, check{"scale height", []string{"cp", "temperature_base", "g"},
			unit.Div(unit.Mul(q["cp"], q["temperature_base"]), q["g"]), unit.Meter})
	}
	for _, c := range checks {
		if err := c.u.Check(c.want); err != nil {
			return &dynamo.ConfigurationError{
				Field:  "units." + declared(p, c.fields),
				Reason: fmt.Sprintf("planet %s %s: %v", p.Name, c.name, err),
			}
		}
	}
	return nil
}

// declared names the fields of a failed check whose units the document
// declares, or all of them when it declares none.
func declared(p Planet, fields []string) string {
	var set []string
	for _, f := range fields {
		if _, ok := p.Units[f]; ok {
			set = append(set, f)
		}
	}
	if len(set) == 0 {
		set = fields
	}
	sort.Strings(set)
	return strings.Join(set, ",")
}
