package analysis

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/aftermath/internal/sim"
)

var (
	ErrNoResults  = errors.New("analysis: no results")
	ErrMisaligned = errors.New("analysis: results do not share a step schedule")
	ErrUnknownKey = errors.New("analysis: unknown snapshot key")
)

// Band summarises one snapshot index across an ensemble.
type Band struct {
	Year   float64 `json:"year"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	P05    float64 `json:"p05"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Bands computes per-snapshot statistics of key across results.
func Bands(results []*sim.Result, key string) ([]Band, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	n := len(results[0].Snapshots)
	if _, ok := results[0].Final().Get(key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	for i, r := range results {
		if len(r.Snapshots) != n {
			return nil, fmt.Errorf("%w: run %d has %d snapshots, want %d", ErrMisaligned, i, len(r.Snapshots), n)
		}
	}

	bands := make([]Band, n)
	column := make([]float64, len(results))
	for i := 0; i < n; i++ {
		year := results[0].Snapshots[i].Year()
		for j, r := range results {
			if r.Snapshots[i].Year() != year {
				return nil, fmt.Errorf("%w: snapshot %d at %v vs %v", ErrMisaligned, i, r.Snapshots[i].Year(), year)
			}
			column[j] = r.Snapshots[i].Value(key)
		}
		sort.Float64s(column)

		mean, std := stat.MeanStdDev(column, nil)
		if len(column) < 2 {
			std = 0
		}
		bands[i] = Band{
			Year:   year,
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(column),
			P05:    stat.Quantile(0.05, stat.Empirical, column, nil),
			Median: stat.Quantile(0.5, stat.Empirical, column, nil),
			P95:    stat.Quantile(0.95, stat.Empirical, column, nil),
			Max:    floats.Max(column),
		}
	}
	return bands, nil
}

// MetricSummary is the distribution of one run metric across an ensemble.
type MetricSummary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SummarizeMetrics aggregates every metric present in all results.
func SummarizeMetrics(results []*sim.Result) []MetricSummary {
	if len(results) == 0 {
		return nil
	}
	names := make([]string, 0, len(results[0].Metrics))
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]MetricSummary, 0, len(names))
	vals := make([]float64, len(results))
	for _, name := range names {
		complete := true
		for i, r := range results {
			v, ok := r.Metrics[name]
			if !ok {
				complete = false
				break
			}
			vals[i] = v
		}
		if !complete {
			continue
		}
		mean, std := stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			std = 0
		}
		out = append(out, MetricSummary{
			Name:   name,
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(vals),
			Max:    floats.Max(vals),
		})
	}
	return out
}
