package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/aftermath/internal/sim"
)

var ErrEmptyGrid = errors.New("analysis: grid has no axes")

// GridAxis is one searched parameter and its candidate values.
type GridAxis struct {
	Name   string
	Values []float64
}

// ParseGridAxis reads name=min:max:steps, or name=v1,v2,... for explicit values.
func ParseGridAxis(s string) (GridAxis, error) {
	name, spec, ok := strings.Cut(s, "=")
	if !ok || name == "" || spec == "" {
		return GridAxis{}, fmt.Errorf("axis %q: want name=min:max:steps or name=v1,v2", s)
	}

	if parts := strings.Split(spec, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return GridAxis{}, fmt.Errorf("axis %q: %w", s, err)
		}
		return GridAxis{Name: name, Values: SweepSpec{Min: lo, Max: hi, Steps: n}.Values()}, nil
	}

	var values []float64
	for _, p := range strings.Split(spec, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return GridAxis{}, fmt.Errorf("axis %q: %w", s, err)
		}
		values = append(values, v)
	}
	return GridAxis{Name: name, Values: values}, nil
}

// GridSpec is an exhaustive search over the cartesian product of Axes.
// Build must accept every axis name; NewSimulator must attach Metric.
type GridSpec struct {
	Axes         []GridAxis
	Metric       string
	Maximize     bool
	Build        func(params map[string]float64) (sim.Config, error)
	NewSimulator func() *sim.Simulator
	Parallelism  int
}

type GridPoint struct {
	Params map[string]float64 `json:"params"`
	Value  float64            `json:"value"`
}

// Points enumerates the grid with the last axis varying fastest.
func (g GridSpec) Points() []map[string]float64 {
	if len(g.Axes) == 0 {
		return nil
	}
	out := []map[string]float64{{}}
	for _, axis := range g.Axes {
		next := make([]map[string]float64, 0, len(out)*len(axis.Values))
		for _, partial := range out {
			for _, v := range axis.Values {
				p := make(map[string]float64, len(partial)+1)
				for k, pv := range partial {
					p[k] = pv
				}
				p[axis.Name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// GridSearch evaluates every grid point and returns the best one along with
// all points in enumeration order. Ties keep the earlier point.
func GridSearch(ctx context.Context, spec GridSpec) (GridPoint, []GridPoint, error) {
	params := spec.Points()
	if len(params) == 0 {
		return GridPoint{}, nil, ErrEmptyGrid
	}

	points := make([]GridPoint, len(params))
	g, ctx := errgroup.WithContext(ctx)
	if spec.Parallelism > 0 {
		g.SetLimit(spec.Parallelism)
	}
	for i, p := range params {
		g.Go(func() error {
			cfg, err := spec.Build(p)
			if err != nil {
				return fmt.Errorf("%v: %w", p, err)
			}
			res, err := spec.NewSimulator().Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("%v: %w", p, err)
			}
			v, ok := res.Metrics[spec.Metric]
			if !ok {
				return fmt.Errorf("%w: metric %s", ErrUnknownKey, spec.Metric)
			}
			points[i] = GridPoint{Params: p, Value: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GridPoint{}, nil, err
	}

	best := points[0]
	for _, p := range points[1:] {
		if math.IsNaN(p.Value) {
			continue
		}
		if (spec.Maximize && p.Value > best.Value) || (!spec.Maximize && p.Value < best.Value) || math.IsNaN(best.Value) {
			best = p
		}
	}
	return best, points, nil
}
