package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/aftermath/internal/sim"
)

// SweepPoint is one metric value for one parameter value.
type SweepPoint struct {
	Param float64 `json:"param"`
	Value float64 `json:"value"`
}

// SweepSpec describes a one-parameter sweep. Build turns a parameter value
// into a run configuration; NewSimulator must attach the metric named Metric.
type SweepSpec struct {
	Min, Max     float64
	Steps        int
	Metric       string
	Build        func(param float64) (sim.Config, error)
	NewSimulator func() *sim.Simulator
	Parallelism  int
}

// Values returns the evenly spaced parameter values of the sweep.
func (s SweepSpec) Values() []float64 {
	steps := s.Steps
	if steps < 2 {
		steps = 2
	}
	out := make([]float64, steps)
	inc := (s.Max - s.Min) / float64(steps-1)
	for i := range out {
		out[i] = s.Min + float64(i)*inc
	}
	return out
}

// Sweep runs one simulation per parameter value and records the metric.
func Sweep(ctx context.Context, spec SweepSpec) ([]SweepPoint, error) {
	values := spec.Values()
	points := make([]SweepPoint, len(values))

	g, ctx := errgroup.WithContext(ctx)
	if spec.Parallelism > 0 {
		g.SetLimit(spec.Parallelism)
	}
	for i, p := range values {
		g.Go(func() error {
			cfg, err := spec.Build(p)
			if err != nil {
				return fmt.Errorf("param %g: %w", p, err)
			}
			res, err := spec.NewSimulator().Run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("param %g: %w", p, err)
			}
			v, ok := res.Metrics[spec.Metric]
			if !ok {
				return fmt.Errorf("%w: metric %s", ErrUnknownKey, spec.Metric)
			}
			points[i] = SweepPoint{Param: p, Value: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// SweepToASCII plots the sweep as a scatter of '•' on a width x height grid.
func SweepToASCII(points []SweepPoint, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minVal = math.Min(minVal, p.Value)
		maxVal = math.Max(maxVal, p.Value)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := newCanvas(width, height)
	for i, p := range points {
		col := i * width / len(points)
		if col >= width {
			col = width - 1
		}
		row := height - 1 - int((p.Value-minVal)/(maxVal-minVal)*float64(height-1))
		if row >= 0 && row < height {
			canvas[row][col] = '•'
		}
	}
	return canvasString(canvas)
}

func newCanvas(width, height int) [][]rune {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}
	return canvas
}

func canvasString(canvas [][]rune) string {
	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
