package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/experiment"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	planetFile string
	dt         float64
	duration   float64
	integrator string
	nx, ny, nz int
	maxRetries int
	feedback   bool
	coupling   float64
	point      bool
	plot       bool
	save       bool

	diameter float64
	density  float64
	speed    float64
	length   float64
	ustar    float64
	height   float64
	heatFlux float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dustdyn",
		Short:         "dust-laden atmosphere dynamics for earth, mars and venus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dustdyn", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	planetsCmd := &cobra.Command{
		Use:   "planets",
		Short: "list planet parameter sets",
		RunE:  listPlanets,
	}
	planetsCmd.Flags().StringVar(&planetFile, "planet-file", "", "planet document (yaml, json or toml)")

	presetsCmd := &cobra.Command{
		Use:   "presets [planet]",
		Short: "list run presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	tendencyCmd := &cobra.Command{
		Use:   "tendency [planet[/preset]]",
		Short: "evaluate the governing equations on an initial state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showTendency,
	}
	addRunFlags(tendencyCmd)
	tendencyCmd.Flags().BoolVar(&point, "point", false, "evaluate a single-point model")

	deriveCmd := &cobra.Command{
		Use:   "derive [planet]",
		Short: "derived quantities: Reynolds number, settling and threshold velocities, wind profile",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showDerived,
	}
	deriveCmd.Flags().StringVar(&planetFile, "planet-file", "", "planet document (yaml, json or toml)")
	deriveCmd.Flags().Float64Var(&diameter, "diameter", config.DefaultDiameter, "particle diameter [m]")
	deriveCmd.Flags().Float64Var(&density, "density", config.DefaultDensity, "particle density [kg/m³]")
	deriveCmd.Flags().Float64Var(&speed, "speed", 5, "flow speed for the Reynolds number [m/s]")
	deriveCmd.Flags().Float64Var(&length, "length", 1, "length scale for the Reynolds number [m]")
	deriveCmd.Flags().Float64Var(&ustar, "ustar", 0.3, "friction velocity [m/s]")
	deriveCmd.Flags().Float64Var(&height, "height", 10, "height for the wind profile [m]")
	deriveCmd.Flags().Float64Var(&heatFlux, "heat-flux", 0, "surface sensible heat flux [W/m²]")

	validateCmd := &cobra.Command{
		Use:   "validate [planet[/preset]]",
		Short: "validate a run configuration and its initial state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  validateConfig,
	}
	addRunFlags(validateCmd)

	runCmd := &cobra.Command{
		Use:   "run [planet[/preset]]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot total mass after the run")
	runCmd.Flags().BoolVar(&save, "save", true, "store the run in the data directory")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [planet/preset]...",
		Short: "run several scenarios concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEnsemble,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [planet[/preset]]",
		Short: "benchmark steps per second over grid sizes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchGrid,
	}

	liveCmd := &cobra.Command{
		Use:   "live [planet[/preset]]",
		Short: "run a simulation in the terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [run_id] [reference_run_id]",
		Short: "score one stored run against another",
		Args:  cobra.ExactArgs(2),
		RunE:  compareRuns,
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "verify equation coverage and run the self-checks",
		RunE:  showReport,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [planet[/preset]]",
		Short: "sweep one parameter over a range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "wind", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "n", 5, "number of values")
	sweepCmd.Flags().Float64Var(&duration, "time", 0, "duration [s], 0 keeps the preset's")

	searchCmd := &cobra.Command{
		Use:   "search [planet[/preset]]",
		Short: "grid search parameters minimising a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().StringArrayVar(&searchRanges, "range", nil, "parameter range name=lo:hi:n (repeatable)")
	searchCmd.Flags().StringVar(&metricName, "metric", "mass_drift", "metric to minimise")
	searchCmd.Flags().Float64Var(&duration, "time", 0, "duration [s]")
	_ = searchCmd.MarkFlagRequired("range")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [planet[/preset]]",
		Short: "perturb initial wind and concentration over many trials",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturbation", 0.1, "relative perturbation")
	monteCarloCmd.Flags().Float64Var(&duration, "time", 0, "duration [s], 0 keeps the preset's")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 seeds from the clock")

	rootCmd.AddCommand(planetsCmd, presetsCmd, tendencyCmd, deriveCmd, validateCmd, runCmd,
		ensembleCmd, benchCmd, liveCmd, listCmd, plotCmd, exportCmd, compareCmd, reportCmd,
		batchCmd, sweepCmd, searchCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run config file (yaml)")
	cmd.Flags().StringVar(&planetFile, "planet-file", "", "planet document (yaml, json or toml)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep, 0 uses the planet's")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration [s]")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4, rk45)")
	cmd.Flags().IntVar(&nx, "nx", config.DefaultGridSize, "cells along x")
	cmd.Flags().IntVar(&ny, "ny", 1, "cells along y")
	cmd.Flags().IntVar(&nz, "nz", config.DefaultGridSize, "cells along z")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retries of a failed step with half dt")
	cmd.Flags().BoolVar(&feedback, "feedback", false, "enable the dust feedback force")
	cmd.Flags().Float64Var(&coupling, "coupling", 0, "feedback drag coupling κ [1/s]")
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func refArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.DefaultPlanet
}

// loadConfig resolves the run config from --config or a planet/preset
// reference, then applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg, err = experiment.Resolve(refArg(args))
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("planet-file") {
		cfg.PlanetFile = planetFile
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("nx") {
		cfg.Grid.NX = nx
	}
	if flags.Changed("ny") {
		cfg.Grid.NY = ny
	}
	if flags.Changed("nz") {
		cfg.Grid.NZ = nz
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = maxRetries
	}
	if flags.Changed("feedback") {
		cfg.Physics.Feedback = feedback
	}
	if flags.Changed("coupling") {
		fb := config.Feedback{}
		if cfg.Physics.FeedbackCoefficients != nil {
			fb = *cfg.Physics.FeedbackCoefficients
		}
		fb.Coupling = coupling
		cfg.Physics.FeedbackCoefficients = &fb
	}
	if flags.Lookup("point") != nil && point {
		cfg.Grid = config.GridConfig{NX: 1, NY: 1, NZ: 1}
	}
	return cfg, nil
}

func resolvePlanet(args []string) (config.Planet, error) {
	name := strings.ToLower(refArg(args))
	if planetFile != "" {
		return config.LoadPlanet(planetFile, name)
	}
	return config.Lookup(name)
}
