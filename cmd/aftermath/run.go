package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/aftermath/internal/config"
	"github.com/san-kum/aftermath/internal/logging"
	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/report"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
	"github.com/san-kum/aftermath/internal/storage"
	"github.com/san-kum/aftermath/internal/viz"
)

var (
	configFile string
	preset     string
	label      string
	// impact
	diameter float64
	density  float64
	velocity float64
	angle    float64
	target   string
	// eruption
	volume float64
	vei    int
	// span
	startYear float64
	endYear   float64
	dtInitial float64
	dtFinal   float64
	seed      int64
	maxSteps  int
	// output
	format      string
	sampleEvery int
	noSave      bool
	progress    bool
	replay      bool
)

const reportBase = "report"

// addEventFlags registers the flags that select and shape one run. Flags
// override the config file or preset only when set.
func addEventFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "run file (yaml or toml)")
	f.StringVar(&preset, "preset", "", "named reference event")
	f.StringVar(&label, "label", "", "run label")

	f.Float64Var(&diameter, "diameter", config.DefaultDiameterKm, "impactor diameter (km)")
	f.Float64Var(&density, "density", config.DefaultDensityKgM3, "impactor density (kg/m³)")
	f.Float64Var(&velocity, "velocity", config.DefaultVelocityMS, "impact velocity (m/s)")
	f.Float64Var(&angle, "angle", config.DefaultAngleDeg, "impact angle (degrees)")
	f.StringVar(&target, "target", "continental", "impact target: continental or oceanic")

	f.Float64Var(&volume, "volume", config.DefaultVolumeKm3, "erupted volume (km³)")
	f.IntVar(&vei, "vei", config.DefaultVEI, "volcanic explosivity index")

	f.Float64Var(&startYear, "start", 0, "event year")
	f.Float64Var(&endYear, "end", 10000, "last simulated year")
	f.Float64Var(&dtInitial, "dt-initial", 0.01, "initial time step (years)")
	f.Float64Var(&dtFinal, "dt-final", 10, "largest time step (years)")
	f.Int64Var(&seed, "seed", 42, "random seed")
	f.IntVar(&maxSteps, "max-steps", 0, "abort after this many steps (0 = unbounded)")
}

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [asteroid|supervolcano]",
		Short: "simulate one event and save the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addEventFlags(runCmd)
	runCmd.Flags().StringVar(&format, "format", "all", "report format: csv, json, html, svg, all")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "HTML row spacing in years")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&progress, "progress", true, "show a live progress line")
	runCmd.Flags().BoolVar(&replay, "replay", false, "open the interactive replay when done")
	return runCmd
}

// resolveConfig layers defaults, then the config file or preset, then
// AFTERMATH_* variables, then any flags that were set.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configFile != "":
		cfg, err = config.Load(configFile)
	case preset != "":
		if cfg, err = config.GetPreset(preset); err == nil {
			err = cfg.ApplyEnv()
		}
	case len(args) == 1:
		kind, perr := scenario.ParseKind(args[0])
		if perr != nil {
			return nil, perr
		}
		cfg = config.DefaultConfig(kind)
		err = cfg.ApplyEnv()
	default:
		return nil, errors.New("an event kind, --preset or --config is required")
	}
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		kind, err := scenario.ParseKind(args[0])
		if err != nil {
			return nil, err
		}
		if kind != cfg.Kind {
			return nil, fmt.Errorf("%s run requested but the event is %s", kind, cfg.Kind)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("label") {
		cfg.Label = label
	}
	if flags.Changed("diameter") {
		cfg.Impact.DiameterKm = diameter
	}
	if flags.Changed("density") {
		cfg.Impact.DensityKgM3 = density
	}
	if flags.Changed("velocity") {
		cfg.Impact.VelocityMS = velocity
	}
	if flags.Changed("angle") {
		cfg.Impact.AngleDeg = angle
	}
	if flags.Changed("target") {
		t, err := scenario.ParseTarget(target)
		if err != nil {
			return nil, err
		}
		cfg.Impact.Target = t
	}
	if flags.Changed("volume") {
		cfg.Eruption.VolumeKm3 = volume
	}
	if flags.Changed("vei") {
		cfg.Eruption.VEI = vei
	}
	if flags.Changed("start") {
		cfg.Run.StartYear = startYear
	}
	if flags.Changed("end") {
		cfg.Run.EndYear = endYear
	}
	if flags.Changed("dt-initial") {
		cfg.Run.DtInitial = dtInitial
	}
	if flags.Changed("dt-final") {
		cfg.Run.DtFinal = dtFinal
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("max-steps") {
		cfg.Run.MaxSteps = maxSteps
	}
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("sample-every") {
		cfg.Output.SampleEvery = sampleEvery
	}
	if flags.Changed("runs") {
		cfg.Run.Runs = numRuns
	}
	if flags.Changed("parallel") {
		cfg.Run.Parallelism = parallelism
	}

	if flags.Changed("data") || configFile == "" {
		cfg.Output.Dir = dataDir
	}
	if flags.Changed("catalog") {
		cfg.Output.Catalog = catalogPath
	} else if cfg.Output.Catalog != "" {
		catalogPath = cfg.Output.Catalog
	}
	if configFile != "" && !flags.Changed("log-level") && !flags.Changed("log-json") {
		l, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
		if err != nil {
			return nil, err
		}
		logger = l
		slog.SetDefault(l)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	runCfg, err := cfg.BuildConfig(scaling.DefaultCalibration())
	if err != nil {
		return err
	}

	s := sim.New(logger)
	metrics.Attach(s, runCfg.Kind)

	var bar *viz.ProgressRenderer
	if progress {
		bar = viz.NewProgressRenderer(cmd.ErrOrStderr(), runCfg.EndYear, 10)
		s.AddObserver(bar)
		bar.Start()
	}
	res, err := s.Run(cmd.Context(), runCfg)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	title := runTitle(cfg)
	fmt.Fprintf(out, "%s: %d steps to year %.1f in %v\n", title, res.StepsTaken, res.Final().Year(), res.Wall)

	if !noSave {
		st, catalog, err := openStorage(cfg.Output.Dir)
		if err != nil {
			return err
		}
		defer catalog.Close()

		meta := storage.NewMetadata(cfg.Label, runCfg, cfg.Params(), res)
		id, err := st.Save(meta, res)
		if err != nil {
			return err
		}
		meta.ID = id
		if err := catalog.Put(cmd.Context(), storage.EntryFromMetadata(meta)); err != nil {
			return err
		}
		files, err := writeReports(filepath.Join(st.BaseDir(), id), cfg.Output.Format, cfg.Output.SampleEvery, meta, res.Keys, res.Snapshots)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run id: %s\n", id)
		for _, f := range files {
			fmt.Fprintf(out, "  wrote %s\n", f)
		}
	}

	t := viz.GetTheme(theme)
	fmt.Fprintln(out, viz.Summary(t, "metrics", res.Metrics))
	if chart, err := viz.Chart(res.Snapshots, "temp_anomaly_c", viz.DefaultChartOptions()); err == nil {
		fmt.Fprintln(out, chart)
	}

	if replay {
		m := viz.NewReplay(title, res.Keys, res.Snapshots).WithEvents(res.Events).WithTheme(theme)
		if _, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run(); err != nil {
			return err
		}
	}
	return nil
}

func runTitle(cfg *config.Config) string {
	if cfg.Label != "" {
		return fmt.Sprintf("%s (%s)", cfg.Label, cfg.Kind)
	}
	return cfg.Kind.String()
}

// writeReports writes one report file per requested format into dir. The
// SVG format produces one chart per snapshot key.
func writeReports(dir, formatName string, every int, meta storage.RunMetadata, keys []string, snaps []record.Snapshot) ([]string, error) {
	f, err := report.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var written []string
	write := func(name string, fn func(*os.File) error) error {
		path := filepath.Join(dir, name)
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(file); err != nil {
			file.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := file.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	title := fmt.Sprintf("%s aftermath", meta.Kind)
	if meta.Label != "" {
		title = meta.Label + " " + title
	}

	for _, ff := range f.Formats() {
		var err error
		switch ff {
		case report.FormatCSV:
			err = write(reportBase+ff.Ext(), func(w *os.File) error {
				return report.WriteCSV(w, keys, snaps)
			})
		case report.FormatJSON:
			err = write(reportBase+ff.Ext(), func(w *os.File) error {
				return report.WriteJSON(w, report.Document{Metadata: meta, Keys: keys, Snapshots: snaps, Metrics: meta.Metrics})
			})
		case report.FormatHTML:
			err = write(reportBase+ff.Ext(), func(w *os.File) error {
				return report.WriteHTML(w, keys, snaps, report.HTMLOptions{Title: title, SampleEvery: every, Metrics: meta.Metrics})
			})
		case report.FormatSVG:
			for _, key := range keys {
				if key == record.KeyYear {
					continue
				}
				if err = write(reportBase+"_"+key+ff.Ext(), func(w *os.File) error {
					return report.WriteSVG(w, key, snaps, report.DefaultSVGOptions())
				}); err != nil {
					break
				}
			}
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// parseKeys splits a comma separated key list and checks each against keys.
func parseKeys(list string, keys []string) ([]string, error) {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	var out []string
	for _, k := range strings.Split(list, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !known[k] {
			return nil, fmt.Errorf("unknown key %q (have %s)", k, strings.Join(keys, ", "))
		}
		out = append(out, k)
	}
	return out, nil
}
