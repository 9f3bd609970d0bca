package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/dustdyn/internal/automation"
	"github.com/san-kum/dustdyn/internal/experiment"
	"github.com/san-kum/dustdyn/internal/optim"
	"github.com/san-kum/dustdyn/internal/storage"
	"github.com/spf13/cobra"
)

var (
	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	searchRanges []string
	metricName   string
	trials       int
	perturb      float64
	seed         int64
)

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, runErr := automation.RunScenario(ctx, sc, st, logger)
	for i, r := range results {
		id := r.RunID
		if id == "" {
			id = "(not saved)"
		}
		fmt.Printf("  %d. %-16s steps=%d drift=%.2e %s\n", i+1, sc.Steps[i].Preset, r.Result.Steps, r.Result.MassDrift, id)
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Preset:    refArg(args),
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
		Duration:  duration,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL MASS\tDRIFT\tMAX SPEED\tERROR\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(w, "%.4g\t%.6g\t%.2e\t%.3g\t%s\n", r.ParamValue, r.FinalMass, r.MassDrift, r.MaxSpeed, errText)
	}
	return w.Flush()
}

// parseRange reads "name=lo:hi:n".
func parseRange(arg string) (string, []float64, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid range %q, want name=lo:hi:n", arg)
	}
	var (
		lo, hi float64
		n      int
	)
	if _, err := fmt.Sscanf(rng, "%g:%g:%d", &lo, &hi, &n); err != nil {
		return "", nil, fmt.Errorf("invalid range %q: %w", arg, err)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	base, err := experiment.Resolve(refArg(args))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("time") {
		base.Duration = duration
	}

	var (
		names  []string
		ranges [][]float64
	)
	for _, r := range searchRanges {
		name, values, err := parseRange(r)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, val, all, err := gs.Search(ctx, base, metricName)
	if err != nil {
		return err
	}
	failed := 0
	for _, tr := range all {
		if tr.Err != nil {
			failed++
		}
	}
	fmt.Printf("%d combinations, %d failed\n", len(all), failed)
	fmt.Printf("best %s = %.6g at", metricName, val)
	for _, name := range names {
		fmt.Printf(" %s=%g", name, best[name])
	}
	fmt.Println()
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Preset:       refArg(args),
		Perturbation: perturb,
		NumTrials:    trials,
		Duration:     duration,
		Seed:         seed,
	})
	if err != nil {
		return err
	}
	stable, unstable, mean, std := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d  stable: %d  unstable: %d\n", len(results), stable, unstable)
	fmt.Printf("final mass: %.6g ± %.2g\n", mean, std)
	return nil
}
