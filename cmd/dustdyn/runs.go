package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dustdyn/internal/metrics"
	"github.com/san-kum/dustdyn/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANET\tPRESET\tTIME\tGRID\tDURATION\tDT\tINTEG\tDRIFT")
	for _, run := range runs {
		preset := run.Preset
		if preset == "" {
			preset = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dx%dx%d\t%.2fs\t%.4fs\t%s\t%.2e\n",
			run.ID,
			run.Planet,
			preset,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Grid[0], run.Grid[1], run.Grid[2],
			run.Duration,
			run.Dt,
			run.Integrator,
			run.MassDrift,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if series.Len() < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("planet: %s\n", meta.Planet)
	fmt.Printf("snapshots: %d\n\n", series.Len())

	for _, p := range []struct {
		data    []float64
		caption string
	}{
		{series.TotalMass, "total mass"},
		{series.MaxSpeed, "max wind speed [m/s]"},
	} {
		fmt.Println(asciigraph.Plot(p.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func compareRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	pred, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	truth, err := st.LoadSeries(args[1])
	if err != nil {
		return err
	}
	if pred.Len() != truth.Len() {
		return fmt.Errorf("runs have %d and %d snapshots; compare runs with the same schedule", pred.Len(), truth.Len())
	}

	scores, err := metrics.Compare(pred.Columns(), truth.Columns())
	if err != nil {
		return err
	}
	fmt.Print(metrics.FormatReport(scores))
	return nil
}
