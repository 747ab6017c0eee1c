package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/aftermath/internal/config"
	"github.com/san-kum/aftermath/internal/logging"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/storage"
)

var (
	dataDir     string
	catalogPath string
	logLevel    string
	logJSON     bool
	theme       string

	logger *slog.Logger
)

// main registers the aftermath commands and exits with status 1 on error.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "aftermath",
		Short:        "climate aftermath of asteroid impacts and supervolcanic eruptions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.New(logging.Options{Level: logLevel, JSON: logJSON})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "run storage directory")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "sqlite run catalog (default <data>/catalog.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "ember", "terminal theme")

	presetsCmd := &cobra.Command{
		Use:   "presets [kind]",
		Short: "list named reference events",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newEnsembleCmd(),
		newSweepCmd(),
		newGridCmd(),
		newMonteCarloCmd(),
		newBatchCmd(),
		newListCmd(),
		newShowCmd(),
		newPlotCmd(),
		newPhaseCmd(),
		newExportCmd(),
		newReplayCmd(),
		newDeleteCmd(),
		newServeCmd(),
		presetsCmd,
	)
	return rootCmd
}

func listPresets(cmd *cobra.Command, args []string) error {
	kind := scenario.Unknown
	if len(args) == 1 {
		k, err := scenario.ParseKind(args[0])
		if err != nil {
			return err
		}
		kind = k
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDESCRIPTION")
	for _, p := range config.ListPresets(kind) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Kind, p.Description)
	}
	return w.Flush()
}

// openStorage returns the run store and its catalog. The caller closes the
// catalog.
func openStorage(dir string) (*storage.Store, *storage.Catalog, error) {
	st := storage.New(dir)
	if err := st.Init(); err != nil {
		return nil, nil, err
	}
	path := catalogPath
	if path == "" {
		path = filepath.Join(dir, "catalog.db")
	}
	catalog, err := storage.OpenCatalog(path)
	if err != nil {
		return nil, nil, err
	}
	return st, catalog, nil
}
