package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/san-kum/aftermath/internal/config"
	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/report"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
	"github.com/san-kum/aftermath/internal/storage"
)

// RunRequest selects the event by preset or by kind; every config section
// present in the body is decoded over the selected defaults.
type RunRequest struct {
	Preset string `json:"preset"`
	Kind   string `json:"kind"`
}

type runOptions struct {
	*config.Config
	Constants        *scenario.Constants `json:"constants"`
	Save             bool                `json:"save"`
	IncludeSnapshots bool                `json:"include_snapshots"`
	SampleEvery      *int                `json:"sample_every"`
}

type RunResponse struct {
	ID          string                `json:"id,omitempty"`
	Kind        scenario.Kind         `json:"kind"`
	Label       string                `json:"label,omitempty"`
	Seed        int64                 `json:"seed"`
	Steps       int                   `json:"steps"`
	Aftershocks int                   `json:"aftershocks"`
	Event       storage.EventMetadata `json:"event"`
	Metrics     map[string]float64    `json:"metrics"`
	Final       record.Snapshot       `json:"final"`
	Keys        []string              `json:"keys,omitempty"`
	Snapshots   []record.Snapshot     `json:"snapshots,omitempty"`
}

// runner executes one request; it is swapped for a stub in tests.
type runner func(ctx context.Context, cfg *config.Config) (sim.Config, *sim.Result, error)

func (s *Server) newRunService() *runService {
	return &runService{
		run:     s.simulate,
		store:   s.opts.Store,
		catalog: s.opts.Catalog,
	}
}

func (s *Server) simulate(ctx context.Context, cfg *config.Config) (sim.Config, *sim.Result, error) {
	runCfg, err := cfg.BuildConfig(s.opts.Calibration)
	if err != nil {
		return sim.Config{}, nil, err
	}
	if runCfg.MaxSteps <= 0 || runCfg.MaxSteps > s.opts.MaxSteps {
		runCfg.MaxSteps = s.opts.MaxSteps
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	simulator := sim.New(s.opts.Logger)
	metrics.Attach(simulator, runCfg.Kind)
	simulator.AddObserver(s.collector.Observer(runCfg.Kind))

	res, err := simulator.Run(ctx, runCfg)
	var wall time.Duration
	if res != nil {
		wall = res.Wall
	}
	s.collector.RecordRun(runCfg.Kind, wall, err)
	return runCfg, res, err
}

type runService struct {
	run     runner
	store   *storage.Store
	catalog *storage.Catalog
}

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func PresetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := scenario.Unknown
		if q := c.Query("kind"); q != "" {
			k, err := scenario.ParseKind(q)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kind = k
		}
		c.JSON(http.StatusOK, gin.H{"presets": config.ListPresets(kind)})
	}
}

// RunHandler runs one simulation and answers with its metrics and final
// snapshot. Snapshots are included on request, sampled every sample_every
// years.
func RunHandler(svc *runService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest
		if err := c.ShouldBindBodyWithJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		cfg, err := baseConfig(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		defaults := scenario.MustDefaults(cfg.Kind)
		constants := defaults
		opts := runOptions{Config: cfg, Constants: &constants}
		if err := c.ShouldBindBodyWithJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if cfg.Kind != defaults.Kind {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind does not match preset"})
			return
		}
		if opts.Constants != nil && *opts.Constants != defaults {
			opts.Constants.Kind = cfg.Kind
			cfg.Constants = opts.Constants
		}
		if err := cfg.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		runCfg, res, err := svc.run(c.Request.Context(), cfg)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		meta := storage.NewMetadata(cfg.Label, runCfg, cfg.Params(), res)
		resp := RunResponse{
			Kind:        meta.Kind,
			Label:       meta.Label,
			Seed:        meta.Seed,
			Steps:       meta.Steps,
			Aftershocks: meta.Aftershocks,
			Event:       meta.Event,
			Metrics:     meta.Metrics,
			Final:       res.Final(),
		}
		if opts.IncludeSnapshots {
			every := cfg.Output.SampleEvery
			if opts.SampleEvery != nil {
				every = *opts.SampleEvery
			}
			resp.Keys = res.Keys
			resp.Snapshots = report.Sample(res.Snapshots, every)
		}

		if opts.Save {
			if svc.store == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run storage is not configured"})
				return
			}
			id, err := svc.store.Save(meta, res)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			meta.ID = id
			if svc.catalog != nil {
				if err := svc.catalog.Put(c.Request.Context(), storage.EntryFromMetadata(meta)); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}
			resp.ID = id
			c.JSON(http.StatusCreated, resp)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func baseConfig(req RunRequest) (*config.Config, error) {
	if req.Preset != "" {
		return config.GetPreset(req.Preset)
	}
	if req.Kind == "" {
		return nil, errors.New("either preset or kind is required")
	}
	kind, err := scenario.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	return config.DefaultConfig(kind), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid),
		errors.Is(err, scaling.ErrInvalidParameters),
		errors.Is(err, sim.ErrInvalidConfig),
		errors.Is(err, sim.ErrInvalidSpan),
		errors.Is(err, sim.ErrStepBounds),
		errors.Is(err, sim.ErrNonPositiveStep):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrStepLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ListRunsHandler answers from the catalog, newest first.
func ListRunsHandler(catalog *storage.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if catalog == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run catalog is not configured"})
			return
		}
		kind := scenario.Unknown
		if q := c.Query("kind"); q != "" {
			k, err := scenario.ParseKind(q)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kind = k
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}

		runs, err := catalog.List(c.Request.Context(), kind, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func GetRunHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run storage is not configured"})
			return
		}
		meta, err := store.Load(c.Param("id"))
		if err != nil {
			c.JSON(notFoundOr500(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}

// SnapshotsHandler streams a saved run as CSV, or as sampled JSON when
// format=json.
func SnapshotsHandler(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run storage is not configured"})
			return
		}
		keys, snaps, err := store.LoadSnapshots(c.Param("id"))
		if err != nil {
			c.JSON(notFoundOr500(err), gin.H{"error": err.Error()})
			return
		}

		every, err := strconv.Atoi(c.DefaultQuery("sample_every", "0"))
		if err != nil || every < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sample_every must be a non-negative integer"})
			return
		}
		snaps = report.Sample(snaps, every)

		if c.Query("format") == "json" {
			c.JSON(http.StatusOK, gin.H{"keys": keys, "snapshots": snaps})
			return
		}
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		if err := report.WriteCSV(c.Writer, keys, snaps); err != nil {
			_ = c.Error(err)
		}
	}
}

func notFoundOr500(err error) int {
	if errors.Is(err, storage.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
