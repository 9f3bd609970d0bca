package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/experiment"
	"github.com/san-kum/dustdyn/internal/metrics"
	"github.com/san-kum/dustdyn/internal/sim"
	"github.com/san-kum/dustdyn/internal/storage"
	"github.com/san-kum/dustdyn/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s simulation...\n", exp.Planet().Name)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", elapsed)
	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		meta := storage.RunMetadata{
			Planet:     cfg.Planet,
			Integrator: cfg.Integrator,
			Dt:         exp.SimConfig().Dt,
			Duration:   cfg.Duration,
		}
		if ref := refArg(args); configFile == "" && strings.Contains(ref, "/") {
			meta.Preset = ref
		}
		runID, err := st.Save(meta, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
		logger.Debug("run stored", zap.String("id", runID), zap.String("dir", dataDir))
	}

	fmt.Printf("steps: %d (retries %d)\n", result.Steps, result.Retries)
	fmt.Printf("simulated time: %.4g s\n", result.Time)
	fmt.Printf("mass drift: %.3e\n\n", result.MassDrift)
	fmt.Print(metrics.FormatReport(result.Metrics))

	if plot && len(result.Snapshots) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(result.MassSeries(),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("total mass"),
		))
	}
	return runErr
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	scenarios := make([]sim.Scenario, 0, len(args))
	for _, ref := range args {
		cfg, err := experiment.Resolve(ref)
		if err != nil {
			return err
		}
		exp, err := experiment.New(cfg, logger.With(zap.String("scenario", ref)))
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		scenarios = append(scenarios, exp.Scenario(ref))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results, runErr := sim.RunEnsemble(ctx, scenarios)
	fmt.Printf("ensemble of %d finished in %v\n\n", len(scenarios), time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSTEPS\tTIME\tMASS DRIFT\tMAX SPEED")
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", scenarios[i].Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.3gs\t%.3e\t%.3g\n",
			scenarios[i].Name, res.Steps, res.Time, res.MassDrift, res.Metrics["max_speed"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func benchGrid(cmd *cobra.Command, args []string) error {
	base, err := experiment.Resolve(refArg(args))
	if err != nil {
		return err
	}

	const steps = 20
	sizes := []int{8, 16, 32, 64}

	fmt.Printf("benchmarking %s, %d %s steps per grid\n\n", refArg(args), steps, base.Integrator)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GRID\tCELLS\tTIME\tSTEPS/SEC\tCELLS·STEPS/SEC")

	for _, n := range sizes {
		cfg := *base
		cfg.Grid = config.GridConfig{NX: n, NY: 1, NZ: n}
		cfg.Physics.CheckConservation = false

		p, err := cfg.ResolvePlanet()
		if err != nil {
			return err
		}
		cfg.Duration = steps * cfg.TimeStep(p)

		exp, err := experiment.New(&cfg, nil)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		rate := float64(result.Steps) / elapsed.Seconds()
		fmt.Fprintf(w, "%dx1x%d\t%d\t%v\t%.0f\t%.3g\n", n, n, n*n, elapsed, rate, rate*float64(n*n))
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	// The terminal is taken over by the UI, so logs are discarded.
	exp, err := experiment.New(cfg, nil)
	if err != nil {
		return err
	}
	sess, err := exp.Session()
	if err != nil {
		return err
	}
	return tui.Run(sess, refArg(args), exp.Vertical())
}
