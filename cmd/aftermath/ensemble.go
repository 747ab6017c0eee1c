package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/aftermath/internal/analysis"
	"github.com/san-kum/aftermath/internal/config"
	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/sim"
	"github.com/san-kum/aftermath/internal/viz"
)

var (
	numRuns     int
	parallelism int
	bandKey     string
	bandEvery   int
	bandsOut    string

	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepSteps  int
	sweepMetric string
)

func newEnsembleCmd() *cobra.Command {
	ensembleCmd := &cobra.Command{
		Use:   "ensemble [asteroid|supervolcano]",
		Short: "run one event under consecutive seeds and summarize the spread",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addEventFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", config.DefaultRuns, "ensemble members")
	ensembleCmd.Flags().IntVar(&parallelism, "parallel", 0, "concurrent members (0 = unlimited)")
	ensembleCmd.Flags().StringVar(&bandKey, "key", "biodiversity_index", "snapshot key for the percentile bands")
	ensembleCmd.Flags().IntVar(&bandEvery, "every", 1000, "band table spacing in years")
	ensembleCmd.Flags().StringVar(&bandsOut, "out", "", "write bands and metric summaries as JSON")
	return ensembleCmd
}

func newSweepCmd() *cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep [asteroid|supervolcano]",
		Short: "vary one event parameter and plot a run metric against it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addEventFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&parallelism, "parallel", 0, "concurrent runs (0 = unlimited)")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "diameter", "diameter, density, velocity, angle, volume or vei")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first parameter value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 20, "last parameter value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "parameter values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "min_biodiversity", "run metric to record")
	return sweepCmd
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	runCfg, err := cfg.BuildConfig(scaling.DefaultCalibration())
	if err != nil {
		return err
	}

	factory := func() *sim.Simulator {
		s := sim.New(logger)
		metrics.Attach(s, runCfg.Kind)
		return s
	}
	ens := sim.NewEnsemble(factory, cfg.Run.Runs, cfg.Run.Seed)
	ens.SetLimit(cfg.Run.Parallelism)

	fmt.Fprintf(cmd.ErrOrStderr(), "running %d %s members...\n", cfg.Run.Runs, cfg.Kind)
	results, err := ens.Run(cmd.Context(), runCfg)
	if err != nil {
		return err
	}

	summaries := analysis.SummarizeMetrics(results)
	bands, err := analysis.Bands(results, bandKey)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX")
	for _, m := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name,
			viz.FormatMetric(m.Mean), viz.FormatMetric(m.StdDev), viz.FormatMetric(m.Min), viz.FormatMetric(m.Max))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s bands\n", bandKey)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "YEAR\tP05\tMEDIAN\tP95")
	every := int64(max(bandEvery, 1))
	lastBucket := int64(-1)
	for i, b := range bands {
		// first row of each bucket, and the final row
		bucket := int64(b.Year) / every
		if bucket == lastBucket && i != len(bands)-1 {
			continue
		}
		lastBucket = bucket
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", viz.FormatMetric(b.Year),
			viz.FormatMetric(b.P05), viz.FormatMetric(b.Median), viz.FormatMetric(b.P95))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if bandsOut != "" {
		data, err := json.MarshalIndent(struct {
			Kind    string                   `json:"kind"`
			Runs    int                      `json:"runs"`
			Key     string                   `json:"key"`
			Bands   []analysis.Band          `json:"bands"`
			Metrics []analysis.MetricSummary `json:"metrics"`
		}{cfg.Kind.String(), len(results), bandKey, bands, summaries}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(bandsOut, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", bandsOut)
	}
	return nil
}

// sweepSetter returns a function that writes param into a config copy.
func sweepSetter(param string) (func(c *config.Config, v float64), error) {
	switch param {
	case "diameter":
		return func(c *config.Config, v float64) { c.Impact.DiameterKm = v }, nil
	case "density":
		return func(c *config.Config, v float64) { c.Impact.DensityKgM3 = v }, nil
	case "velocity":
		return func(c *config.Config, v float64) { c.Impact.VelocityMS = v }, nil
	case "angle":
		return func(c *config.Config, v float64) { c.Impact.AngleDeg = v }, nil
	case "volume":
		return func(c *config.Config, v float64) { c.Eruption.VolumeKm3 = v }, nil
	case "vei":
		return func(c *config.Config, v float64) { c.Eruption.VEI = int(v) }, nil
	default:
		return nil, fmt.Errorf("unknown sweep parameter %q", param)
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	set, err := sweepSetter(sweepParam)
	if err != nil {
		return err
	}
	cal := scaling.DefaultCalibration()

	spec := analysis.SweepSpec{
		Min:    sweepMin,
		Max:    sweepMax,
		Steps:  sweepSteps,
		Metric: sweepMetric,
		Build: func(v float64) (sim.Config, error) {
			member := *cfg
			set(&member, v)
			return member.BuildConfig(cal)
		},
		NewSimulator: func() *sim.Simulator {
			s := sim.New(logger)
			metrics.Attach(s, cfg.Kind)
			return s
		},
		Parallelism: cfg.Run.Parallelism,
	}

	points, err := analysis.Sweep(cmd.Context(), spec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s vs %s\n", sweepMetric, sweepParam)
	fmt.Fprint(out, analysis.SweepToASCII(points, 60, 15))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", sweepParam, sweepMetric)
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\n", viz.FormatMetric(p.Param), viz.FormatMetric(p.Value))
	}
	return w.Flush()
}
