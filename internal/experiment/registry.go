package experiment

import (
	"fmt"
	"strings"

	"github.com/san-kum/dustdyn/internal/config"
)

// Resolve returns the run config for a "planet/preset" reference, or for
// a bare planet name the default config on that planet.
func Resolve(ref string) (*config.Config, error) {
	planet, preset, hasPreset := strings.Cut(strings.ToLower(ref), "/")
	if _, err := config.Lookup(planet); err != nil {
		return nil, err
	}
	if !hasPreset {
		cfg := config.DefaultConfig()
		cfg.Planet = planet
		return cfg, nil
	}
	cfg := config.GetPreset(planet, preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(planet))
	}
	return cfg, nil
}

// ListScenarios returns every "planet/preset" reference.
func ListScenarios() []string {
	var out []string
	for _, planet := range config.Names() {
		for _, preset := range config.ListPresets(planet) {
			out = append(out, planet+"/"+preset)
		}
	}
	return out
}
