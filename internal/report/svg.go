package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/aftermath/internal/record"
)

// SVGOptions sizes and colours a line chart.
type SVGOptions struct {
	Width, Height int
	Stroke        string
	// LogYears plots the x axis as log10(1 + years since the first point).
	LogYears bool
}

// DefaultSVGOptions is an 800x300 green chart on a log year axis.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 300, Stroke: "#00ff00", LogYears: true}
}

// WriteSVG draws key against year as a single polyline.
func WriteSVG(w io.Writer, key string, snaps []record.Snapshot, opts SVGOptions) error {
	if len(snaps) < 2 {
		return ErrNoSnapshots
	}
	if _, ok := snaps[0].Get(key); !ok {
		return fmt.Errorf("report: unknown key %s", key)
	}

	points := make([]struct{ X, Y float64 }, len(snaps))
	origin := snaps[0].Year()
	for i, s := range snaps {
		x := s.Year()
		if opts.LogYears {
			x = math.Log10(1 + math.Max(0, x-origin))
		}
		points[i] = struct{ X, Y float64 }{X: x, Y: s.Value(key)}
	}
	_, err := io.WriteString(w, TrajectoryToSVG(points, key, opts))
	return err
}

// TrajectoryToSVG creates an SVG from trajectory data
func TrajectoryToSVG(points []struct{ X, Y float64 }, title string, opts SVGOptions) string {
	if len(points) < 2 {
		return ""
	}
	width, height := opts.Width, opts.Height

	// Find bounds
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="8" y="16" fill="#cccccc" font-family="monospace" font-size="12">%s [%s, %s]</text>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, escapeXML(title), FormatValue(minY+rangeY*0.1), FormatValue(maxY-rangeY*0.1), opts.Stroke)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func escapeXML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
