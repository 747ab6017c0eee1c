package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/aftermath/internal/analysis"
	"github.com/san-kum/aftermath/internal/batch"
	"github.com/san-kum/aftermath/internal/config"
	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/sim"
	"github.com/san-kum/aftermath/internal/viz"
)

var (
	mcTrials    int
	mcPerturb   float64
	mcMetric    string
	mcThreshold float64
	mcOut       string

	gridAxes     []string
	gridMetric   string
	gridMaximize bool
)

func newBatchCmd() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch plan.yaml",
		Short: "run every step of a YAML plan and save the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the runs")
	return batchCmd
}

func newMonteCarloCmd() *cobra.Command {
	mcCmd := &cobra.Command{
		Use:   "montecarlo [asteroid|supervolcano]",
		Short: "perturb the event parameters and count outcomes past a threshold",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addEventFlags(mcCmd)
	mcCmd.Flags().IntVar(&mcTrials, "trials", 20, "number of trials")
	mcCmd.Flags().Float64Var(&mcPerturb, "perturb", 0.2, "relative perturbation of each parameter, in [0, 1)")
	mcCmd.Flags().StringVar(&mcMetric, "metric", "min_biodiversity", "run metric to classify")
	mcCmd.Flags().Float64Var(&mcThreshold, "threshold", 0.5, "metric threshold")
	mcCmd.Flags().StringVar(&mcOut, "out", "", "write trials as JSON")
	return mcCmd
}

func newGridCmd() *cobra.Command {
	gridCmd := &cobra.Command{
		Use:   "grid [asteroid|supervolcano]",
		Short: "search a grid of event parameters for the extreme of a run metric",
		Example: `  aftermath grid asteroid --axis diameter=2:14:4 --axis velocity=12000,20000,30000
  aftermath grid volcano --axis volume=500:5000:5 --metric peak_cooling_c`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGrid,
	}
	addEventFlags(gridCmd)
	gridCmd.Flags().IntVar(&parallelism, "parallel", 0, "concurrent runs (0 = unlimited)")
	gridCmd.Flags().StringArrayVar(&gridAxes, "axis", nil, "param=min:max:steps or param=v1,v2 (repeatable)")
	gridCmd.Flags().StringVar(&gridMetric, "metric", "min_biodiversity", "run metric to optimize")
	gridCmd.Flags().BoolVar(&gridMaximize, "maximize", false, "search for the maximum instead of the minimum")
	return gridCmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	plan, err := batch.LoadPlan(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tKIND\tSTEPS\tMIN BIO\tID")

	r := &batch.Runner{
		Logger:      logger,
		Calibration: scaling.DefaultCalibration(),
		OnOutcome: func(_ int, o batch.Outcome) {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", o.Step, o.Kind, o.Steps,
				viz.FormatMetric(o.Metrics["min_biodiversity"]), orDash(o.ID))
		},
	}
	if !noSave {
		st, catalog, err := openStorage(dataDir)
		if err != nil {
			return err
		}
		defer catalog.Close()
		r.Store = st
		r.Catalog = catalog
	}

	if plan.Name != "" {
		fmt.Fprintf(out, "plan: %s\n", plan.Name)
	}
	_, runErr := r.Run(cmd.Context(), plan)
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	r := &batch.Runner{Logger: logger, Calibration: scaling.DefaultCalibration()}
	fmt.Fprintf(cmd.ErrOrStderr(), "running %d %s trials...\n", mcTrials, cfg.Kind)
	results, err := r.MonteCarlo(cmd.Context(), batch.MonteCarloConfig{
		Base:         cfg,
		Perturbation: mcPerturb,
		Trials:       mcTrials,
		Seed:         cfg.Run.Seed,
	})
	if err != nil {
		return err
	}

	below, above := batch.MonteCarloStats(results, mcMetric, mcThreshold)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s < %s: %d of %d trials\n", mcMetric, viz.FormatMetric(mcThreshold), below, below+above)
	fmt.Fprintf(out, "%s >= %s: %d of %d trials\n", mcMetric, viz.FormatMetric(mcThreshold), above, below+above)

	if mcOut != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(mcOut, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", mcOut)
	}
	return nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	if len(gridAxes) == 0 {
		return fmt.Errorf("at least one --axis is required")
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	setters := make(map[string]func(*config.Config, float64), len(gridAxes))
	spec := analysis.GridSpec{
		Metric:   gridMetric,
		Maximize: gridMaximize,
		NewSimulator: func() *sim.Simulator {
			s := sim.New(logger)
			metrics.Attach(s, cfg.Kind)
			return s
		},
		Parallelism: cfg.Run.Parallelism,
	}
	for _, a := range gridAxes {
		axis, err := analysis.ParseGridAxis(a)
		if err != nil {
			return err
		}
		set, err := sweepSetter(axis.Name)
		if err != nil {
			return err
		}
		setters[axis.Name] = set
		spec.Axes = append(spec.Axes, axis)
	}

	cal := scaling.DefaultCalibration()
	spec.Build = func(p map[string]float64) (sim.Config, error) {
		member := *cfg
		for name, v := range p {
			setters[name](&member, v)
		}
		return member.BuildConfig(cal)
	}

	best, points, err := analysis.GridSearch(cmd.Context(), spec)
	if err != nil {
		return err
	}

	names := make([]string, len(spec.Axes))
	for i, a := range spec.Axes {
		names[i] = a.Name
	}
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.Join(names, "\t"), gridMetric)
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\n", formatParams(names, p.Params), viz.FormatMetric(p.Value))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	pairs := make([]string, len(names))
	for i, n := range names {
		pairs[i] = n + "=" + viz.FormatMetric(best.Params[n])
	}
	fmt.Fprintf(out, "best: %s -> %s\n", strings.Join(pairs, " "), viz.FormatMetric(best.Value))
	return nil
}

func formatParams(names []string, params map[string]float64) string {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = viz.FormatMetric(params[n])
	}
	return strings.Join(cols, "\t")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
