package config

import "sort"

// upwind keeps the plume presets positive: with uniform pressure the
// vertical wind grows as g·t, so dt and spacing are chosen to hold
// dt·(|u|/h + g·T/h + 4D/h²) under one half for the whole run.
var upwind = &Numerics{Boundary: BoundaryPeriodic, VerticalAxis: VerticalZ, Advection: AdvectionUpwind}

// Presets are named run scenarios per planet.
var Presets = map[string]map[string]*Config{
	"earth": {
		"calm": {
			Planet: "earth", Integrator: "rk4", Duration: 4.0, Dt: 0.01, Numerics: upwind,
			Grid:      GridConfig{NX: 8, NY: 1, NZ: 8, Spacing: 1},
			InitState: InitConfig{Velocity: [3]float64{1, 0, 0}, Concentration: 0.001},
		},
		"plume": {
			Planet: "earth", Integrator: "rk4", Duration: 5.0, Dt: 0.01, Numerics: upwind,
			Grid:      GridConfig{NX: 16, NY: 1, NZ: 16, Spacing: 2},
			InitState: InitConfig{Velocity: [3]float64{2, 0, 0}, Concentration: 0.001, Plume: 0.01, LapseRate: 0.0065},
		},
		"gusty": {
			Planet: "earth", Integrator: "rk4", Duration: 4.0, Dt: 0.005, Numerics: upwind,
			Grid:      GridConfig{NX: 16, NY: 1, NZ: 8, Spacing: 1},
			InitState: InitConfig{Velocity: [3]float64{15, 0, 0}, Concentration: 0.001, Plume: 0.005},
			Physics:   PhysicsConfig{Entrainment: true, EntrainmentCoefficient: 1e-5, Settling: true},
		},
	},
	"mars": {
		"calm": {
			Planet: "mars", Integrator: "rk4", Duration: 4.0, Dt: 0.01, Numerics: upwind,
			Grid:      GridConfig{NX: 8, NY: 1, NZ: 8, Spacing: 1},
			InitState: InitConfig{Velocity: [3]float64{1, 0, 0}, Concentration: 0.001},
		},
		"dust_storm": {
			Planet: "mars", Integrator: "rk4", Duration: 2.0, Dt: 0.0025, Numerics: upwind,
			Grid:      GridConfig{NX: 16, NY: 1, NZ: 16, Spacing: 0.5},
			InitState: InitConfig{Velocity: [3]float64{40, 0, 0}, Concentration: 0.002, Plume: 0.02, LapseRate: 0.0025},
			Physics:   PhysicsConfig{Entrainment: true, EntrainmentCoefficient: 1e-5, Settling: true},
		},
	},
	"venus": {
		"calm": {
			Planet: "venus", Integrator: "rk4", Duration: 4.0, Dt: 0.01, Numerics: upwind,
			Grid:      GridConfig{NX: 8, NY: 1, NZ: 8, Spacing: 1},
			InitState: InitConfig{Velocity: [3]float64{0.5, 0, 0}, Concentration: 0.001},
		},
		"plume": {
			Planet: "venus", Integrator: "rk4", Duration: 5.0, Dt: 0.01, Numerics: upwind,
			Grid:      GridConfig{NX: 16, NY: 1, NZ: 16, Spacing: 2},
			InitState: InitConfig{Velocity: [3]float64{1, 0, 0}, Concentration: 0.001, Plume: 0.01, LapseRate: 0.008},
		},
	},
}

// GetPreset returns a full run config for the named scenario, with
// unspecified fields taken from DefaultConfig.
func GetPreset(planet, name string) *Config {
	if planetPresets, ok := Presets[planet]; ok {
		if p, ok := planetPresets[name]; ok {
			cfg := DefaultConfig()
			cfg.Planet = p.Planet
			cfg.Integrator = p.Integrator
			cfg.Duration = p.Duration
			cfg.Dt = p.Dt
			cfg.Grid = p.Grid
			cfg.InitState = p.InitState
			if p.Numerics != nil {
				n := *p.Numerics
				cfg.Numerics = &n
			}
			if p.Physics != (PhysicsConfig{}) {
				cfg.Physics = p.Physics
				cfg.Physics.CheckConservation = false
			}
			return cfg
		}
	}
	return nil
}

func ListPresets(planet string) []string {
	if planetPresets, ok := Presets[planet]; ok {
		names := make([]string, 0, len(planetPresets))
		for name := range planetPresets {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	return nil
}
