package main

import (
	"fmt"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/aftermath/internal/analysis"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
	"github.com/san-kum/aftermath/internal/storage"
	"github.com/san-kum/aftermath/internal/viz"
)

var (
	listKind    string
	listLimit   int
	plotKeys    string
	plotWidth   int
	plotHeight  int
	phaseX      string
	phaseY      string
	threshold   float64
	exportDir   string
	exportFmt   string
	exportEvery int
)

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&listKind, "kind", "", "only runs of this kind")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "at most this many runs (0 = all)")
	return listCmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a saved run's event and metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
}

func newPlotCmd() *cobra.Command {
	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart saved run variables against log years",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotKeys, "keys", "temp_anomaly_c,co2_ppm,biodiversity_index", "comma separated snapshot keys")
	plotCmd.Flags().IntVar(&plotWidth, "width", 72, "chart width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "chart height")
	return plotCmd
}

func newPhaseCmd() *cobra.Command {
	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot one snapshot key against another",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&phaseX, "x", "temp_anomaly_c", "x-axis key")
	phaseCmd.Flags().StringVar(&phaseY, "y", "biodiversity_index", "y-axis key")
	phaseCmd.Flags().Float64Var(&threshold, "threshold", 0.9, "report years where the y key crosses this value")
	return phaseCmd
}

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "write report files for a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportDir, "out", ".", "output directory")
	exportCmd.Flags().StringVar(&exportFmt, "format", "all", "report format: csv, json, html, svg, all")
	exportCmd.Flags().IntVar(&exportEvery, "sample-every", 100, "HTML row spacing in years")
	return exportCmd
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [run_id]",
		Short: "play a saved run back in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "remove a saved run and its catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	kind := scenario.Unknown
	if listKind != "" {
		k, err := scenario.ParseKind(listKind)
		if err != nil {
			return err
		}
		kind = k
	}

	_, catalog, err := openStorage(dataDir)
	if err != nil {
		return err
	}
	defer catalog.Close()

	runs, err := catalog.List(cmd.Context(), kind, listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTIME\tSPAN\tSTEPS\tENERGY_GT\tMIN_BIO\tRECOVERY")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g-%g\t%d\t%s\t%s\t%s\n",
			run.ID,
			run.Label,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.StartYear,
			run.EndYear,
			run.Steps,
			viz.FormatMetric(run.EnergyGT),
			optional(run.MinBiodiversity),
			optional(run.RecoveryYear),
		)
	}
	return w.Flush()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return viz.FormatMetric(*v)
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:   %s\n", meta.ID)
	fmt.Fprintf(out, "kind:  %s\n", meta.Kind)
	if meta.Label != "" {
		fmt.Fprintf(out, "label: %s\n", meta.Label)
	}
	fmt.Fprintf(out, "time:  %s\n", meta.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "span:  %g to %g (%d steps, seed %d)\n", meta.StartYear, meta.FinalYear, meta.Steps, meta.Seed)

	event := map[string]float64{
		"energy_gt":      meta.Event.EnergyGT,
		"structure_km":   meta.Event.StructureKm,
		"particulate_kg": meta.Event.ParticulateKg,
		"initial_tau":    meta.Event.InitialTau,
	}
	if meta.Event.SO2Tg > 0 {
		event["so2_tg"] = meta.Event.SO2Tg
	}
	for k, v := range meta.Event.Params {
		event[k] = v
	}

	t := viz.GetTheme(theme)
	fmt.Fprintln(out, viz.Summary(t, "event", event))
	fmt.Fprintln(out, viz.Summary(t, "metrics", meta.Metrics))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	keys, snaps, err := st.LoadSnapshots(args[0])
	if err != nil {
		return err
	}
	selected, err := parseKeys(plotKeys, keys)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\nkind: %s\nsamples: %d\n\n", meta.ID, meta.Kind, len(snaps))

	opts := viz.DefaultChartOptions()
	opts.Width, opts.Height = plotWidth, plotHeight
	for _, key := range selected {
		chart, err := viz.Chart(snaps, key, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, chart)
		fmt.Fprintln(out)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	keys, snaps, err := st.LoadSnapshots(args[0])
	if err != nil {
		return err
	}
	res := &sim.Result{Keys: keys, Snapshots: snaps}

	portrait, err := analysis.PhasePortrait(res, phaseX, phaseY)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "phase portrait: %s\nx: %s  y: %s\n\n", args[0], phaseX, phaseY)
	fmt.Fprintln(out, analysis.PhasePortraitToASCII(portrait, 60, 20))

	crossings, err := analysis.Crossings(res, phaseY, threshold)
	if err != nil {
		return err
	}
	if len(crossings) == 0 {
		fmt.Fprintf(out, "%s never crosses %g\n", phaseY, threshold)
		return nil
	}
	for _, c := range crossings {
		dir := "falls below"
		if c.Rising {
			dir = "rises above"
		}
		fmt.Fprintf(out, "year %s: %s %s %g\n", viz.FormatMetric(c.Year), phaseY, dir, threshold)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	keys, snaps, err := st.LoadSnapshots(args[0])
	if err != nil {
		return err
	}

	files, err := writeReports(exportDir, exportFmt, exportEvery, *meta, keys, snaps)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f)
	}
	return nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	keys, snaps, err := st.LoadSnapshots(args[0])
	if err != nil {
		return err
	}
	if len(snaps) < 2 {
		return fmt.Errorf("run %s has no post-event snapshots", meta.ID)
	}

	title := meta.Kind.String()
	if meta.Label != "" {
		title = meta.Label
	}
	m := viz.NewReplay(title, keys, snaps).WithTheme(theme)
	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
	return err
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, catalog, err := openStorage(dataDir)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if err := st.Delete(args[0]); err != nil {
		return err
	}
	if err := catalog.Delete(cmd.Context(), args[0]); err != nil {
		logger.Warn("run had no catalog entry", "id", args[0], "error", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
