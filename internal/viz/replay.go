package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/sim"
)

const (
	canvasWidth  = 60
	canvasHeight = 16
	maxSpeed     = 256
	trendWidth   = 12
)

type TickMsg time.Time

// ReplayModel plays a recorded run back one snapshot group per tick.
type ReplayModel struct {
	title    string
	keys     []string
	snaps    []record.Snapshot
	events   []sim.EventRecord
	xs       []float64
	head     int
	speed    int
	running  bool
	selected int
	theme    Theme
	styles   Styles
	canvas   *Canvas
	showHelp bool
	interval time.Duration
}

// NewReplay builds a replay of snaps. keys are the plottable variables;
// the year column is dropped when present.
func NewReplay(title string, keys []string, snaps []record.Snapshot) ReplayModel {
	plot := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != record.KeyYear {
			plot = append(plot, k)
		}
	}
	xs, _ := Series(snaps, record.KeyYear, true)
	return ReplayModel{
		title:    title,
		keys:     plot,
		snaps:    snaps,
		xs:       xs,
		speed:    1,
		running:  true,
		theme:    ThemeEmber,
		styles:   NewStyles(ThemeEmber),
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		interval: time.Second / 30,
	}
}

// WithEvents attaches the run's event log so the panel can count events
// up to the playhead.
func (m ReplayModel) WithEvents(events []sim.EventRecord) ReplayModel {
	m.events = events
	return m
}

// WithTheme selects a theme by name.
func (m ReplayModel) WithTheme(name string) ReplayModel {
	m.theme = GetTheme(name)
	m.styles = NewStyles(m.theme)
	return m
}

func (m ReplayModel) Head() int     { return m.head }
func (m ReplayModel) Speed() int    { return m.speed }
func (m ReplayModel) Running() bool { return m.running }
func (m ReplayModel) SelectedKey() string {
	if len(m.keys) == 0 {
		return ""
	}
	return m.keys[m.selected]
}

func (m ReplayModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ReplayModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and advances the playhead.
func (m ReplayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.head = 0
			m.running = true
		case "[":
			m.running = false
			m.scrub(-1)
		case "]":
			m.running = false
			m.scrub(1)
		case "tab":
			if len(m.keys) > 0 {
				m.selected = (m.selected + 1) % len(m.keys)
			}
		case "shift+tab":
			if len(m.keys) > 0 {
				m.selected = (m.selected + len(m.keys) - 1) % len(m.keys)
			}
		case "+", "=":
			m.speed = min(maxSpeed, m.speed*2)
		case "-", "_":
			m.speed = max(1, m.speed/2)
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = NewStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.scrub(m.speed)
			if m.head == len(m.snaps)-1 {
				m.running = false
			}
		}
		return m, m.tick()
	}
	return m, nil
}

// scrub moves the playhead by n snapshots, clamped to the run.
func (m *ReplayModel) scrub(n int) {
	if len(m.snaps) == 0 {
		return
	}
	m.head = max(0, min(len(m.snaps)-1, m.head+n))
}

// countEvents returns the pulse and aftershock steps up to the playhead.
func (m ReplayModel) countEvents() (pulses, aftershocks int) {
	if len(m.snaps) == 0 {
		return 0, 0
	}
	year := m.snaps[m.head].Year()
	for _, e := range m.events {
		if e.Year > year {
			break
		}
		if e.Events.Has(climate.PulseFired) {
			pulses++
		}
		if e.Events.Has(climate.Aftershock) {
			aftershocks++
		}
	}
	return pulses, aftershocks
}

func (m *ReplayModel) draw() {
	m.canvas.Clear()
	key := m.SelectedKey()
	if key == "" || len(m.snaps) < 2 {
		return
	}
	// Fixed bounds over the post-event run so the axes do not move during playback.
	_, all := Series(m.snaps[1:], key, true)
	b := BoundsOf(m.xs[1:], all)
	if m.head < 1 {
		return
	}
	m.canvas.Plot(m.xs[1:m.head+1], all[:m.head], b)
}

// trend is a sparkline of key from the event up to the playhead.
func (m ReplayModel) trend(key string) string {
	if m.head < 1 {
		return m.styles.Sparkline(nil, trendWidth)
	}
	_, ys := Series(m.snaps[1:m.head+1], key, false)
	return m.styles.Sparkline(ys, trendWidth)
}

// View renders the TUI interface.
func (m ReplayModel) View() string {
	if len(m.snaps) == 0 {
		return "no snapshots\n"
	}
	m.draw()
	st := m.styles
	snap := m.snaps[m.head]

	status := st.Running.Render("PLAYING")
	if !m.running {
		status = st.Paused.Render("PAUSED")
	}
	if m.head == len(m.snaps)-1 {
		status = st.Paused.Render("END")
	}

	var left strings.Builder
	left.WriteString(st.Title.Render(strings.ToUpper(m.title)) + "\n")
	left.WriteString(fmt.Sprintf("%s  x%d  year %s\n", status, m.speed, FormatMetric(snap.Year())))
	left.WriteString(st.Series.Render(m.canvas.String()))
	left.WriteString(st.KeyHint.Render(m.SelectedKey()+" against log years") + "\n")
	left.WriteString(st.ProgressBar(float64(m.head)/float64(max(1, len(m.snaps)-1)), canvasWidth) + "\n")

	var right strings.Builder
	for i, k := range m.keys {
		line := st.Label.Render(k) + st.Value.Render(FormatMetric(snap.Value(k)))
		if i == m.selected {
			line = st.Active.Render("> "+k) + strings.Repeat(" ", max(1, 26-len(k))) + st.Value.Render(FormatMetric(snap.Value(k)))
		}
		right.WriteString(line + " " + m.trend(k) + "\n")
	}
	pulses, aftershocks := m.countEvents()
	right.WriteString("\n" + st.Label.Render("pulse fired") + st.Value.Render(fmt.Sprintf("%d", pulses)) + "\n")
	right.WriteString(st.Label.Render("aftershocks") + st.Value.Render(fmt.Sprintf("%d", aftershocks)) + "\n")
	right.WriteString(st.KeyHint.Render("\nSP:Pause R:Restart Q:Quit\nTab:Variable T:Theme ?:Help\n[ ]:Step +-:Speed"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.Panel.Render(left.String()), st.Panel.Render(right.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space     - Pause/Resume playback   ║
║  R         - Restart from baseline   ║
║  Q         - Quit                    ║
║  Tab       - Next variable           ║
║  Shift+Tab - Previous variable       ║
║  [ ]       - Step back/forward       ║
║  + -       - Faster/slower           ║
║  T         - Cycle themes            ║
║  ?         - Toggle this help        ║
╚══════════════════════════════════════╝
` + "\n\n" + main
	}
	return main
}
