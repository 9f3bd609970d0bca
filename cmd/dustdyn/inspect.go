package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/san-kum/dustdyn/internal/boundarylayer"
	"github.com/san-kum/dustdyn/internal/config"
	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/experiment"
	"github.com/san-kum/dustdyn/internal/particle"
	"github.com/san-kum/dustdyn/internal/report"
	"github.com/san-kum/dustdyn/internal/sim"
	"github.com/san-kum/dustdyn/internal/validate"
	"github.com/san-kum/dustdyn/internal/verify"
	"github.com/spf13/cobra"
)

func listPlanets(cmd *cobra.Command, args []string) error {
	planets := config.Builtin()
	if planetFile != "" {
		loaded, err := config.LoadPlanets(planetFile)
		if err != nil {
			return err
		}
		planets = loaded
	}

	names := make([]string, 0, len(planets))
	for name := range planets {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tNU\tRHO\tG\tD\tZ0\tDT\tDX\tBOUNDARY\tADVECTION\tFEEDBACK")
	for _, name := range names {
		p := planets[name]
		fb := "-"
		if p.Feedback != nil {
			fb = fmt.Sprintf("κ=%g α=%g β=%g", p.Feedback.Coupling, p.Feedback.Thermal, p.Feedback.Humidity)
		}
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%s\t%s\t%s\n",
			name, p.Nu, p.Rho, p.G, p.D, p.Z0, p.Dt, p.Dx, p.Numerics.Boundary, p.Numerics.Advection, fb)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, ref := range experiment.ListScenarios() {
			fmt.Println(ref)
		}
		return nil
	}
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for planet: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func showTendency(cmd *cobra.Command, args []string) error {
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
	sys, err := sim.NewDustSystem(exp.Planet(), cfg.Physics, cfg.Particle)
	if err != nil {
		return err
	}
	x0 := exp.Initial()
	rates, err := sys.Derive(x0)
	if err != nil {
		return err
	}

	g := x0.Grid
	centre := g.Index(g.NX/2, g.NY/2, g.NZ/2)
	dv := rates.Velocity.At(centre)

	fmt.Printf("planet: %s  grid: %dx%dx%d\n", exp.Planet().Name, g.NX, g.NY, g.NZ)
	fmt.Printf("centre cell %d:\n", centre)
	fmt.Printf("  dv/dt = [%.6g %.6g %.6g] m/s²\n", dv[0], dv[1], dv[2])
	fmt.Printf("  dC/dt = %.6g\n", rates.Concentration[centre])
	fmt.Printf("domain:\n")
	fmt.Printf("  max |dv/dt| = %.6g m/s²\n", rates.Velocity.MaxNorm())
	fmt.Printf("  Σ dC/dt     = %.6g\n", rates.Concentration.Sum())
	return nil
}

func showDerived(cmd *cobra.Command, args []string) error {
	p, err := resolvePlanet(args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "planet\t%s\n", p.Name)

	re, err := particle.ReynoldsNumber(speed, length, p.Nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "reynolds number\t%.4g\t(U=%g m/s, L=%g m)\n", re, speed, length)

	st, err := particle.SettlingVelocity(diameter, density, p)
	if err != nil {
		return err
	}
	regime := "stokes"
	var rw *dynamo.RegimeWarning
	if errors.As(st.Warning(), &rw) {
		regime = fmt.Sprintf("outside stokes regime (Re_p=%.3g >= %g)", rw.Value, rw.Limit)
	}
	fmt.Fprintf(w, "settling velocity\t%.4g m/s\t%s\n", st.Velocity, regime)

	ut, err := particle.ThresholdFrictionVelocity(diameter, density, p, particle.DefaultEmpiricalConstant)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "threshold u*\t%.4g m/s\n", ut)

	L := boundarylayer.Neutral
	if heatFlux != 0 {
		L, err = boundarylayer.ObukhovLength(heatFlux, p.TemperatureBase, ustar, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "obukhov length\t%.4g m\n", L)
	}
	u, err := boundarylayer.WindSpeed(ustar, height, p, L)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "wind at %g m\t%.4g m/s\t(u*=%g m/s)\n", height, u, ustar)
	if ustar > ut {
		fmt.Fprintf(w, "saltation\tactive\n")
	}
	return w.Flush()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := cfg.ResolvePlanet()
	if err != nil {
		return err
	}
	if err := p.CheckUnits(); err != nil {
		return err
	}
	x0, err := cfg.InitialState(p)
	if err != nil {
		return err
	}
	if err := validate.All(x0); err != nil {
		fmt.Println("initial state is invalid:")
		fmt.Println(err)
		return errors.New("validation failed")
	}

	fmt.Printf("ok: %s, %dx%dx%d cells, initial mass %.6g\n",
		p.Name, x0.Grid.NX, x0.Grid.NY, x0.Grid.NZ, x0.TotalConcentration())
	h := p.Dx
	if x0.HasSpacing() {
		h = math.Min(x0.Spacing[0], math.Min(x0.Spacing[1], x0.Spacing[2]))
	}
	// under uniform pressure the vertical wind grows by g per second
	speed := x0.Velocity.MaxNorm() + p.G*cfg.Duration
	if cfl := speed * cfg.TimeStep(p) / h; cfl > 1 {
		fmt.Printf("warning: courant number %.2g exceeds 1\n", cfl)
	}
	return nil
}

func showReport(cmd *cobra.Command, args []string) error {
	r := verify.Report()
	fmt.Println(report.Render(r))
	if !r.Complete() {
		return errors.New("verification incomplete")
	}
	return nil
}
