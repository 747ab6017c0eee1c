package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/scenario"
)

// Collector exports run activity to Prometheus. One Collector serves every
// run of a process; it is safe for concurrent use as a sim.Observer.
type Collector struct {
	steps       *prometheus.CounterVec
	events      *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	minBio      *prometheus.GaugeVec
}

// NewCollector registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aftermath_steps_total",
			Help: "Integrator steps taken by event kind",
		}, []string{"kind"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aftermath_step_events_total",
			Help: "Pulse and aftershock events by kind and type",
		}, []string{"kind", "event"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aftermath_runs_total",
			Help: "Completed runs by kind and status",
		}, []string{"kind", "status"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aftermath_run_duration_seconds",
			Help:    "Wall time per run",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"kind"}),
		minBio: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aftermath_last_min_biodiversity",
			Help: "Minimum biodiversity of the most recent run",
		}, []string{"kind"}),
	}
}

// Observer binds the collector to one run kind.
func (c *Collector) Observer(kind scenario.Kind) *RunObserver {
	return &RunObserver{c: c, kind: kind.String(), min: 1}
}

// RecordRun counts a finished run.
func (c *Collector) RecordRun(kind scenario.Kind, wall time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.runs.WithLabelValues(kind.String(), status).Inc()
	c.runDuration.WithLabelValues(kind.String()).Observe(wall.Seconds())
}

// RunObserver is the per-run sim.Observer of a Collector.
type RunObserver struct {
	c    *Collector
	kind string
	min  float64
}

func (o *RunObserver) OnStep(step int, dt float64, snap record.Snapshot, ev climate.Events) {
	if step > 1 {
		o.c.steps.WithLabelValues(o.kind).Inc()
	}
	if ev.Has(climate.PulseFired) {
		o.c.events.WithLabelValues(o.kind, "pulse").Inc()
	}
	if ev.Has(climate.PulseMethane) {
		o.c.events.WithLabelValues(o.kind, "pulse_methane").Inc()
	}
	if ev.Has(climate.Aftershock) {
		o.c.events.WithLabelValues(o.kind, "aftershock").Inc()
	}
	if bio := snap.Value("biodiversity_index"); bio < o.min {
		o.min = bio
		o.c.minBio.WithLabelValues(o.kind).Set(bio)
	}
}
