package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/server"
)

var (
	listenAddr     string
	serveMaxSteps  int
	serveTimeout   time.Duration
	serveNoStorage bool
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve runs, presets and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&serveMaxSteps, "max-steps", server.DefaultMaxSteps, "step cap per request")
	serveCmd.Flags().DurationVar(&serveTimeout, "run-timeout", server.DefaultRunTimeout, "wall time cap per request")
	serveCmd.Flags().BoolVar(&serveNoStorage, "no-storage", false, "disable saving and listing runs")
	return serveCmd
}

func serve(cmd *cobra.Command, args []string) error {
	if logLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := server.Options{
		Logger:      logger,
		Registry:    reg,
		Calibration: scaling.DefaultCalibration(),
		MaxSteps:    serveMaxSteps,
		RunTimeout:  serveTimeout,
	}
	if !serveNoStorage {
		st, catalog, err := openStorage(dataDir)
		if err != nil {
			return err
		}
		defer catalog.Close()
		opts.Store = st
		opts.Catalog = catalog
	}

	return server.New(opts).Run(cmd.Context(), listenAddr)
}
