// Package batch runs scripted sequences of events and Monte Carlo studies
// over perturbed event parameters.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/aftermath/internal/config"
	"github.com/san-kum/aftermath/internal/metrics"
	"github.com/san-kum/aftermath/internal/scaling"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
	"github.com/san-kum/aftermath/internal/storage"
)

var ErrEmptyPlan = errors.New("batch: plan has no steps")

// Plan is a named sequence of runs. Each step is a run document as accepted
// by config.ParseYAML, plus an optional name.
type Plan struct {
	Name        string
	Description string
	Steps       []Step
}

type Step struct {
	Name   string
	Config *config.Config
}

// LoadPlan reads a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

func ParsePlan(data []byte) (*Plan, error) {
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Steps       []yaml.Node `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Steps) == 0 {
		return nil, ErrEmptyPlan
	}

	plan := &Plan{Name: raw.Name, Description: raw.Description}
	for i := range raw.Steps {
		node := &raw.Steps[i]
		var head struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		doc, err := yaml.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		cfg, err := config.ParseYAML(doc)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		name := head.Name
		if name == "" {
			name = cfg.Label
		}
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		if cfg.Label == "" {
			cfg.Label = name
		}
		plan.Steps = append(plan.Steps, Step{Name: name, Config: cfg})
	}
	return plan, nil
}

// Outcome summarizes one finished step.
type Outcome struct {
	Step    string             `json:"step"`
	Kind    scenario.Kind      `json:"kind"`
	ID      string             `json:"id,omitempty"`
	Steps   int                `json:"steps"`
	Metrics map[string]float64 `json:"metrics"`
}

// Runner executes plans. Store and Catalog are optional; without a Store
// nothing is saved.
type Runner struct {
	Logger      *slog.Logger
	Calibration scaling.Calibration
	Store       *storage.Store
	Catalog     *storage.Catalog

	// OnOutcome is called after each finished step or trial.
	OnOutcome func(i int, o Outcome)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) calibration() scaling.Calibration {
	if r.Calibration == (scaling.Calibration{}) {
		return scaling.DefaultCalibration()
	}
	return r.Calibration
}

// Run executes the steps in order and stops at the first failure, returning
// the outcomes so far.
func (r *Runner) Run(ctx context.Context, plan *Plan) ([]Outcome, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, ErrEmptyPlan
	}
	log := r.logger().With("plan", plan.Name)

	outcomes := make([]Outcome, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		log.Info("running step", "step", i+1, "of", len(plan.Steps), "name", step.Name, "kind", step.Config.Kind.String())

		o, err := r.runOne(ctx, step.Name, step.Config, true)
		if err != nil {
			return outcomes, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
		outcomes = append(outcomes, o)
		if r.OnOutcome != nil {
			r.OnOutcome(i, o)
		}
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, name string, cfg *config.Config, save bool) (Outcome, error) {
	runCfg, err := cfg.BuildConfig(r.calibration())
	if err != nil {
		return Outcome{}, err
	}

	s := sim.New(r.logger())
	metrics.Attach(s, runCfg.Kind)
	res, err := s.Run(ctx, runCfg)
	if err != nil {
		return Outcome{}, err
	}

	o := Outcome{Step: name, Kind: res.Kind, Steps: res.StepsTaken, Metrics: res.Metrics}
	if !save || r.Store == nil {
		return o, nil
	}

	meta := storage.NewMetadata(cfg.Label, runCfg, cfg.Params(), res)
	id, err := r.Store.Save(meta, res)
	if err != nil {
		return Outcome{}, err
	}
	meta.ID = id
	if r.Catalog != nil {
		if err := r.Catalog.Put(ctx, storage.EntryFromMetadata(meta)); err != nil {
			return Outcome{}, err
		}
	}
	o.ID = id
	return o, nil
}

// MonteCarloConfig perturbs the continuous event parameters of Base by a
// uniform relative amount in [-Perturbation, +Perturbation].
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	Trials       int
	Seed         int64
}

type MonteCarloResult struct {
	Trial   int                `json:"trial"`
	Params  map[string]float64 `json:"params"`
	Metrics map[string]float64 `json:"metrics"`
}

// MonteCarlo runs Trials perturbed copies of Base. Trial i runs with seed
// Seed+i, so aftershock draws vary along with the event. Trials are not saved.
func (r *Runner) MonteCarlo(ctx context.Context, mc MonteCarloConfig) ([]MonteCarloResult, error) {
	if mc.Base == nil || mc.Trials <= 0 {
		return nil, fmt.Errorf("batch: monte carlo needs a base config and at least one trial")
	}
	if mc.Perturbation < 0 || mc.Perturbation >= 1 {
		return nil, fmt.Errorf("batch: perturbation %g outside [0, 1)", mc.Perturbation)
	}

	rng := rand.New(rand.NewSource(mc.Seed))
	jitter := func(v float64) float64 {
		return v * (1 + (rng.Float64()-0.5)*2*mc.Perturbation)
	}

	results := make([]MonteCarloResult, 0, mc.Trials)
	for trial := 0; trial < mc.Trials; trial++ {
		cfg := *mc.Base
		cfg.Run.Seed = mc.Seed + int64(trial)
		switch cfg.Kind {
		case scenario.AsteroidImpact:
			cfg.Impact.DiameterKm = jitter(cfg.Impact.DiameterKm)
			cfg.Impact.DensityKgM3 = jitter(cfg.Impact.DensityKgM3)
			cfg.Impact.VelocityMS = jitter(cfg.Impact.VelocityMS)
		case scenario.SupervolcanoEruption:
			cfg.Eruption.VolumeKm3 = jitter(cfg.Eruption.VolumeKm3)
		}

		o, err := r.runOne(ctx, fmt.Sprintf("trial-%d", trial), &cfg, false)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		results = append(results, MonteCarloResult{Trial: trial, Params: cfg.Params(), Metrics: o.Metrics})
		if r.OnOutcome != nil {
			r.OnOutcome(trial, o)
		}
	}
	return results, nil
}

// MonteCarloStats counts trials whose metric fell below threshold. Trials
// missing the metric count in neither total.
func MonteCarloStats(results []MonteCarloResult, metric string, threshold float64) (below, atOrAbove int) {
	for _, r := range results {
		v, ok := r.Metrics[metric]
		if !ok {
			continue
		}
		if v < threshold {
			below++
		} else {
			atOrAbove++
		}
	}
	return
}
