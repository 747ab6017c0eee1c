// Package server exposes the simulator over HTTP. Runs execute synchronously
// inside the request; saved runs go to the file store and the sqlite catalog
// when those are configured.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/storage"
)

const (
	DefaultMaxSteps   = 200_000
	DefaultRunTimeout = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type Options struct {
	Logger      *slog.Logger
	Registry    *prometheus.Registry
	Store       *storage.Store
	Catalog     *storage.Catalog
	Calibration scaling.Calibration

	// MaxSteps caps the integrator loop of every request.
	MaxSteps   int
	RunTimeout time.Duration
}

type Server struct {
	opts      Options
	logger    *slog.Logger
	collector *metrics.Collector
	router    *gin.Engine
}

// New builds the router. A nil Registry gets a fresh one carrying the Go
// runtime collectors.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if opts.Calibration == (scaling.Calibration{}) {
		opts.Calibration = scaling.DefaultCalibration()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}

	s := &Server{
		opts:      opts,
		logger:    opts.Logger.With("component", "server"),
		collector: metrics.NewCollector(opts.Registry),
		router:    gin.New(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", HealthHandler())
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1")
	{
		v1.GET("/presets", PresetsHandler())
		v1.POST("/runs", RunHandler(s.newRunService()))
		v1.GET("/runs", ListRunsHandler(s.opts.Catalog))
		v1.GET("/runs/:id", GetRunHandler(s.opts.Store))
		v1.GET("/runs/:id/snapshots", SnapshotsHandler(s.opts.Store))
	}
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
