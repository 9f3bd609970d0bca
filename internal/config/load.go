package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadPlanets reads a document keyed by planet name. YAML and JSON files
// (.yaml, .yml, .json) are decoded with yaml.v3, TOML files with
// BurntSushi/toml. Every entry is validated and its declared units are
// checked; nothing is defaulted.
func LoadPlanets(path string) (map[string]Planet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]Planet)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported planet file format %q", ext)
	}

	planets := make(map[string]Planet, len(raw))
	for key, p := range raw {
		name := strings.ToLower(key)
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("config: planet %s: %w", name, err)
		}
		if err := p.CheckUnits(); err != nil {
			return nil, fmt.Errorf("config: planet %s: %w", name, err)
		}
		planets[name] = p
	}
	return planets, nil
}

// LoadPlanet reads one named planet from a keyed document.
func LoadPlanet(path, name string) (Planet, error) {
	planets, err := LoadPlanets(path)
	if err != nil {
		return Planet{}, err
	}
	p, ok := planets[strings.ToLower(name)]
	if !ok {
		return Planet{}, fmt.Errorf("config: planet %s not found in %s", name, path)
	}
	return p, nil
}

// SavePlanets writes planets as a YAML document keyed by name.
func SavePlanets(path string, planets map[string]Planet) error {
	data, err := yaml.Marshal(planets)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
