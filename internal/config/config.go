package config

import (
	"fmt"
	"math"
	"os"

	"github.com/san-kum/dustdyn/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPlanet        = "earth"
	DefaultIntegrator    = "rk4"
	DefaultDuration      = 10.0
	DefaultGridSize      = 8
	DefaultConcentration = 0.001
	DefaultTolerance     = 1e-3
	DefaultDiameter      = 10e-6
	DefaultDensity       = 2650.0
	DefaultSnapshotEvery = 10
)

// Config describes one simulation run.
type Config struct {
	Planet        string         `yaml:"planet"`
	PlanetFile    string         `yaml:"planet_file,omitempty"`
	Numerics      *Numerics      `yaml:"numerics,omitempty"`
	Integrator    string         `yaml:"integrator"`
	Dt            float64        `yaml:"dt,omitempty"`
	Duration      float64        `yaml:"duration"`
	Grid          GridConfig     `yaml:"grid"`
	InitState     InitConfig     `yaml:"init_state"`
	Particle      ParticleConfig `yaml:"particle"`
	Physics       PhysicsConfig  `yaml:"physics"`
	Tolerance     float64        `yaml:"tolerance"`
	SnapshotEvery int            `yaml:"snapshot_every"`
	MaxRetries    int            `yaml:"max_retries"`
}

// GridConfig sizes the grid. Spacing 0 uses the planet's dx.
type GridConfig struct {
	NX      int     `yaml:"nx"`
	NY      int     `yaml:"ny"`
	NZ      int     `yaml:"nz"`
	Spacing float64 `yaml:"spacing,omitempty"`
}

// InitConfig describes the initial fields. Pressure, temperature and
// humidity left unset take the planet's reference values; an explicit zero
// is kept (dry air is humidity 0).
type InitConfig struct {
	Velocity      [3]float64 `yaml:"velocity"`
	DustSlip      [3]float64 `yaml:"dust_slip"`
	Concentration float64    `yaml:"concentration"`
	Plume         float64    `yaml:"plume"`
	PlumeRadius   float64    `yaml:"plume_radius"`
	Pressure      *float64   `yaml:"pressure,omitempty"`
	Temperature   *float64   `yaml:"temperature,omitempty"`
	Humidity      *float64   `yaml:"humidity,omitempty"`
	LapseRate     float64    `yaml:"lapse_rate"`
}

// ParticleConfig describes the suspended dust.
type ParticleConfig struct {
	Diameter          float64 `yaml:"diameter"`
	Density           float64 `yaml:"density"`
	EmpiricalConstant float64 `yaml:"empirical_constant"`
}

// PhysicsConfig toggles the optional terms of the governing equations.
type PhysicsConfig struct {
	Feedback               bool      `yaml:"feedback"`
	FeedbackCoefficients   *Feedback `yaml:"feedback_coefficients,omitempty"`
	Settling               bool      `yaml:"settling"`
	DryDeposition          bool      `yaml:"dry_deposition"`
	Entrainment            bool      `yaml:"entrainment"`
	EntrainmentCoefficient float64   `yaml:"entrainment_coefficient"`
	Source                 float64   `yaml:"source"`
	CheckConservation      bool      `yaml:"check_conservation"`
}

func DefaultConfig() *Config {
	return &Config{
		Planet:     DefaultPlanet,
		Integrator: DefaultIntegrator,
		Duration:   DefaultDuration,
		Grid: GridConfig{
			NX: DefaultGridSize,
			NY: 1,
			NZ: DefaultGridSize,
		},
		InitState: InitConfig{
			Concentration: DefaultConcentration,
		},
		Particle: ParticleConfig{
			Diameter:          DefaultDiameter,
			Density:           DefaultDensity,
			EmpiricalConstant: 0.1,
		},
		Physics: PhysicsConfig{
			CheckConservation: true,
		},
		Tolerance:     DefaultTolerance,
		SnapshotEvery: DefaultSnapshotEvery,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePlanet returns the planet named by the config, read from
// PlanetFile when set and from the built-in table otherwise. Numerics and
// feedback coefficients in the run config override the planet's.
func (c *Config) ResolvePlanet() (Planet, error) {
	var (
		p   Planet
		err error
	)
	if c.PlanetFile != "" {
		p, err = LoadPlanet(c.PlanetFile, c.Planet)
	} else {
		p, err = Lookup(c.Planet)
	}
	if err != nil {
		return Planet{}, err
	}
	if c.Numerics != nil {
		p = p.WithNumerics(*c.Numerics)
	}
	if c.Physics.FeedbackCoefficients != nil {
		p = p.WithFeedback(*c.Physics.FeedbackCoefficients)
	}
	if err := p.Validate(); err != nil {
		return Planet{}, err
	}
	return p, nil
}

// TimeStep returns the run's dt, falling back to the planet's.
func (c *Config) TimeStep(p Planet) float64 {
	if c.Dt > 0 {
		return c.Dt
	}
	return p.Dt
}

// Validate checks the run-level settings.
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	if c.Dt < 0 {
		return fmt.Errorf("dt must not be negative, got %f", c.Dt)
	}
	if c.Grid.NX < 1 || c.Grid.NY < 1 || c.Grid.NZ < 1 {
		return fmt.Errorf("grid must have at least one cell per axis, got %dx%dx%d", c.Grid.NX, c.Grid.NY, c.Grid.NZ)
	}
	if c.Grid.Spacing < 0 {
		return fmt.Errorf("grid spacing must not be negative, got %f", c.Grid.Spacing)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %f", c.Tolerance)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

// InitialState builds the driver's starting state for planet p: uniform
// wind, a Gaussian dust plume centred in the domain on top of the
// background concentration, and temperature decreasing along the vertical
// axis at LapseRate [K/m].
func (c *Config) InitialState(p Planet) (dynamo.State, error) {
	g := dynamo.Grid{NX: c.Grid.NX, NY: c.Grid.NY, NZ: c.Grid.NZ}
	if !g.Valid() {
		return dynamo.State{}, fmt.Errorf("invalid grid %dx%dx%d", g.NX, g.NY, g.NZ)
	}
	vertical, err := p.Numerics.VerticalAxis.Axis()
	if err != nil {
		return dynamo.State{}, err
	}

	is := c.InitState
	pressure := orDefault(is.Pressure, p.PressureBase)
	temperature := orDefault(is.Temperature, p.TemperatureBase)
	humidity := orDefault(is.Humidity, p.HumidityBase)

	s := dynamo.NewUniformState(g, dynamo.Vec3(is.Velocity), pressure, is.Concentration, temperature, humidity)
	h := p.Dx
	if c.Grid.Spacing > 0 {
		h = c.Grid.Spacing
		s.Spacing = [3]float64{h, h, h}
	}

	radius := is.PlumeRadius
	if radius <= 0 {
		radius = 0.25 * float64(max(g.NX, g.NY, g.NZ)) * h
	}
	cx, cy, cz := float64(g.NX-1)/2, float64(g.NY-1)/2, float64(g.NZ-1)/2
	for idx := 0; idx < g.Len(); idx++ {
		i, j, k := g.Coords(idx)
		if is.Plume != 0 {
			dx, dy, dz := (float64(i)-cx)*h, (float64(j)-cy)*h, (float64(k)-cz)*h
			r2 := (dx*dx + dy*dy + dz*dz) / (radius * radius)
			s.Concentration[idx] += is.Plume * math.Exp(-r2)
		}
		if is.LapseRate != 0 {
			height := float64(g.Coord(idx, vertical)) * h
			s.Temperature[idx] -= is.LapseRate * height
		}
	}

	if is.DustSlip != [3]float64{} {
		s.DustVelocity = dynamo.UniformVector(g.Len(), dynamo.Vec3{
			is.Velocity[0] + is.DustSlip[0],
			is.Velocity[1] + is.DustSlip[1],
			is.Velocity[2] + is.DustSlip[2],
		})
	}
	return s, nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
