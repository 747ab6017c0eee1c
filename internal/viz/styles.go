package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Panel   lipgloss.Style
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Active  lipgloss.Style
	Series  lipgloss.Style
	KeyHint lipgloss.Style
	Running lipgloss.Style
	Paused  lipgloss.Style
	Good    lipgloss.Style
	Warning lipgloss.Style
	Bad     lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		Label:   lipgloss.NewStyle().Foreground(t.Muted).Width(28),
		Value:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Active:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Series:  lipgloss.NewStyle().Foreground(t.Series),
		KeyHint: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Running: lipgloss.NewStyle().Bold(true).Foreground(t.Good),
		Paused:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Good:    lipgloss.NewStyle().Foreground(t.Good),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Bad:     lipgloss.NewStyle().Foreground(t.Bad),
	}
}

// ProgressBar renders a bar filled to fraction of width.
func (s Styles) ProgressBar(fraction float64, width int) string {
	filled := int(math.Round(fraction * float64(width)))
	filled = max(0, min(width, filled))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction > 0.8:
		return s.Good.Render(bar)
	case fraction > 0.4:
		return s.Warning.Render(bar)
	default:
		return s.Bad.Render(bar)
	}
}

// Sparkline renders values as one row of block characters scaled between
// their minimum and maximum, sampled down to width.
func (s Styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(math.Round(norm * float64(len(chars)-1)))
		idx = max(0, min(len(chars)-1, idx))
		result.WriteRune(chars[idx])
	}
	return s.Series.Render(result.String())
}

// Summary renders metrics as a titled two-column panel in name order.
func Summary(t Theme, title string, metrics map[string]float64) string {
	st := NewStyles(t)
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(st.Title.Render(title) + "\n")
	for _, k := range names {
		b.WriteString(st.Label.Render(k) + st.Value.Render(FormatMetric(metrics[k])) + "\n")
	}
	return st.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// FormatMetric prints large or tiny magnitudes in scientific notation.
func FormatMetric(v float64) string {
	a := math.Abs(v)
	if a != 0 && (a >= 1e6 || a < 1e-3) {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.4g", v)
}
