package viz

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/aftermath/internal/record"
)

var ErrTooFewPoints = errors.New("viz: need at least two post-event snapshots")

// ChartOptions sizes a chart. With LogYears the x axis is log10 of years
// since the event, which keeps the first decade readable on a 10000 year run.
type ChartOptions struct {
	Width     int
	Height    int
	LogYears  bool
	Precision uint
}

func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 72, Height: 12, LogYears: true, Precision: 2}
}

// Chart plots key over the post-event snapshots. The baseline snapshot is
// dropped so the event discontinuity is not drawn as a slope.
func Chart(snaps []record.Snapshot, key string, opts ChartOptions) (string, error) {
	if len(snaps) < 3 {
		return "", ErrTooFewPoints
	}
	if _, ok := snaps[0].Get(key); !ok {
		return "", fmt.Errorf("viz: unknown key %s", key)
	}
	if opts.Width <= 1 {
		opts.Width = DefaultChartOptions().Width
	}
	if opts.Height <= 0 {
		opts.Height = DefaultChartOptions().Height
	}

	xs, ys := Series(snaps[1:], key, opts.LogYears)
	data := Resample(xs, ys, opts.Width)

	first, last := snaps[1].Year(), snaps[len(snaps)-1].Year()
	axis := "years"
	if opts.LogYears {
		axis = "log years"
	}
	caption := fmt.Sprintf("%s, year %g to %g (%s)", key, first, last, axis)

	return asciigraph.Plot(data,
		asciigraph.Height(opts.Height),
		asciigraph.Precision(opts.Precision),
		asciigraph.Caption(caption),
	), nil
}

// Series extracts key against year, or against log10(1 + years since the
// first snapshot) when logYears is set.
func Series(snaps []record.Snapshot, key string, logYears bool) (xs, ys []float64) {
	xs = make([]float64, len(snaps))
	ys = make([]float64, len(snaps))
	if len(snaps) == 0 {
		return xs, ys
	}
	origin := snaps[0].Year()
	for i, s := range snaps {
		x := s.Year()
		if logYears {
			x = math.Log10(1 + math.Max(0, x-origin))
		}
		xs[i], ys[i] = x, s.Value(key)
	}
	return xs, ys
}

// Resample linearly interpolates ys(xs) onto n evenly spaced points. xs must
// be non-decreasing.
func Resample(xs, ys []float64, n int) []float64 {
	if len(xs) == 0 || n <= 0 {
		return nil
	}
	out := make([]float64, n)
	lo, hi := xs[0], xs[len(xs)-1]
	if n == 1 || hi == lo {
		for i := range out {
			out[i] = ys[len(ys)-1]
		}
		return out
	}
	for i := range out {
		x := lo + (hi-lo)*float64(i)/float64(n-1)
		j := sort.SearchFloat64s(xs, x)
		switch {
		case j == 0:
			out[i] = ys[0]
		case j >= len(xs):
			out[i] = ys[len(ys)-1]
		case xs[j] == xs[j-1]:
			out[i] = ys[j]
		default:
			f := (x - xs[j-1]) / (xs[j] - xs[j-1])
			out[i] = ys[j-1] + f*(ys[j]-ys[j-1])
		}
	}
	return out
}
