package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/experiment"
	"github.com/san-kum/dustdyn/internal/sim"
	"github.com/san-kum/dustdyn/internal/storage"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run of a scenario. Preset is a planet or
// "planet/preset" reference; Config, when set, is a run config file and
// takes precedence.
type ScenarioStep struct {
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Params     map[string]float64 `yaml:"params"`
	Save       bool               `yaml:"save"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", scenario.Name)
	}
	return &scenario, nil
}

func (s ScenarioStep) config() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.Config != "" {
		cfg, err = config.Load(s.Config)
	} else {
		cfg, err = experiment.Resolve(s.Preset)
	}
	if err != nil {
		return nil, err
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	return experiment.WithParams(cfg, s.Params)
}

// StepResult is the outcome of one scenario step. RunID is set when the
// step was saved.
type StepResult struct {
	Result *sim.Result
	RunID  string
}

// RunScenario executes the steps in order. Steps marked Save are written
// to st, which may be nil when no step saves.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("preset", step.Preset))

		cfg, err := step.config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Result: result}
		if step.Save {
			if st == nil {
				return results, fmt.Errorf("step %d: save requested without a store", i+1)
			}
			sr.RunID, err = st.Save(storage.RunMetadata{
				Planet:     cfg.Planet,
				Preset:     step.Preset,
				Integrator: cfg.Integrator,
				Dt:         exp.SimConfig().Dt,
				Duration:   cfg.Duration,
			}, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs one preset across a range of one parameter.
type ParameterSweep struct {
	Preset    string
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Duration  float64
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	FinalMass  float64
	MassDrift  float64
	MaxSpeed   float64
	Err        error
}

// RunSweep executes a parameter sweep. Runs that fail are reported in
// their SweepResult rather than aborting the sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	base, err := experiment.Resolve(sweep.Preset)
	if err != nil {
		return nil, err
	}
	if sweep.Duration > 0 {
		base.Duration = sweep.Duration
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		paramVal := sweep.ParamMin + float64(i)*paramStep
		sr := SweepResult{ParamValue: paramVal}

		cfg, err := experiment.WithParams(base, map[string]float64{sweep.ParamName: paramVal})
		if err != nil {
			return nil, err
		}
		exp, err := experiment.New(cfg, nil)
		if err != nil {
			sr.Err = err
			results = append(results, sr)
			continue
		}
		result, err := exp.Run(ctx)
		if result != nil {
			sr.FinalMass = result.Final.TotalConcentration()
			sr.MassDrift = result.MassDrift
			sr.MaxSpeed = result.Metrics["max_speed"]
		}
		sr.Err = err
		results = append(results, sr)
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial wind and background concentration
// of a preset by up to ±Perturbation (relative) per trial.
type MonteCarloConfig struct {
	Preset       string
	Perturbation float64
	NumTrials    int
	Duration     float64
	Seed         int64
}

// MonteCarloResult holds one trial.
type MonteCarloResult struct {
	TrialID   int
	Wind      float64
	FinalMass float64
	// Stable is false when the run failed or the wind exceeded
	// experiment.SpeedLimit.
	Stable bool
}

// RunMonteCarlo executes multiple trials with random perturbations
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	base, err := experiment.Resolve(cfg.Preset)
	if err != nil {
		return nil, err
	}
	if cfg.Duration > 0 {
		base.Duration = cfg.Duration
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		wind := base.InitState.Velocity[0] * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
		conc := base.InitState.Concentration * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)

		trialCfg, err := experiment.WithParams(base, map[string]float64{"wind": wind, "concentration": conc})
		if err != nil {
			return nil, err
		}
		mc := MonteCarloResult{TrialID: trial, Wind: wind}

		exp, err := experiment.New(trialCfg, nil)
		if err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		if result != nil {
			mc.FinalMass = result.Final.TotalConcentration()
		}
		mc.Stable = err == nil && result.Metrics["stability"] == 1
		results = append(results, mc)
	}

	return results, nil
}

// MonteCarloStats counts stable trials and summarises the final mass of
// the stable ones.
func MonteCarloStats(results []MonteCarloResult) (stableCount, unstableCount int, meanMass, stdMass float64) {
	var masses []float64
	for _, r := range results {
		if r.Stable {
			stableCount++
			masses = append(masses, r.FinalMass)
		} else {
			unstableCount++
		}
	}
	switch len(masses) {
	case 0:
	case 1:
		meanMass = masses[0]
	default:
		meanMass, stdMass = stat.MeanStdDev(masses, nil)
	}
	return
}
