package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/sim"
)

var testKeys = []string{"year", "temp_anomaly_c", "biodiversity_index"}

func testSnaps(t *testing.T) []record.Snapshot {
	t.Helper()
	rows := [][]float64{
		{0, 0, 1},
		{0, -60, 0.4},
		{0.5, -40, 0.1},
		{1, -20, 0.05},
		{10, -5, 0.2},
		{100, 0, 0.5},
		{1000, 1, 0.8},
	}
	out := make([]record.Snapshot, len(rows))
	for i, r := range rows {
		s, err := record.NewSnapshot(testKeys, r)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = s
	}
	return out
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestResample(t *testing.T) {
	got := Resample([]float64{0, 1, 3}, []float64{0, 10, 30}, 4)
	want := []float64{0, 10, 20, 30}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}

	flat := Resample([]float64{2, 2}, []float64{1, 5}, 3)
	if flat[0] != 5 || flat[2] != 5 {
		t.Errorf("flat x should repeat the last value, got %v", flat)
	}
	if Resample(nil, nil, 3) != nil {
		t.Error("expected nil for empty input")
	}
}

func TestSeriesLogYears(t *testing.T) {
	xs, ys := Series(testSnaps(t)[1:], "temp_anomaly_c", true)
	if xs[0] != 0 || math.Abs(xs[len(xs)-1]-math.Log10(1001)) > 1e-12 {
		t.Errorf("unexpected log axis %v", xs)
	}
	if ys[0] != -60 {
		t.Errorf("unexpected first value %v", ys[0])
	}
}

func TestChart(t *testing.T) {
	out, err := Chart(testSnaps(t), "temp_anomaly_c", ChartOptions{Width: 40, Height: 6, LogYears: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "temp_anomaly_c, year 0 to 1000 (log years)") {
		t.Errorf("missing caption:\n%s", out)
	}
	if !strings.Contains(out, "-60") {
		t.Errorf("expected the post-event minimum on the axis:\n%s", out)
	}

	if _, err := Chart(testSnaps(t), "nope", DefaultChartOptions()); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := Chart(testSnaps(t)[:2], "temp_anomaly_c", DefaultChartOptions()); err != ErrTooFewPoints {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestCanvasPlot(t *testing.T) {
	c := NewCanvas(10, 4)
	c.Plot([]float64{0, 1}, []float64{0, 1}, Bounds{0, 1, 0, 1})
	lines := strings.Split(strings.TrimRight(c.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(lines))
	}
	if []rune(lines[3])[0] == 0x2800 {
		t.Error("bottom-left cell should be set")
	}
	if []rune(lines[0])[9] == 0x2800 {
		t.Error("top-right cell should be set")
	}
}

func TestBoundsOfFlat(t *testing.T) {
	b := BoundsOf([]float64{1, 1}, []float64{3, 3})
	if b.MaxX <= b.MinX || b.MaxY <= b.MinY {
		t.Errorf("flat data should be widened, got %+v", b)
	}
}

func TestReplayPlayback(t *testing.T) {
	snaps := testSnaps(t)
	events := []sim.EventRecord{
		{Step: 3, Year: 1, Events: climate.Aftershock},
		{Step: 5, Year: 100, Events: climate.PulseFired},
	}
	var m tea.Model = NewReplay("chicxulub", testKeys, snaps).WithEvents(events)

	for i := 0; i < 3; i++ {
		m, _ = m.Update(TickMsg{})
	}
	r := m.(ReplayModel)
	if r.Head() != 3 {
		t.Fatalf("expected head 3, got %d", r.Head())
	}
	if p, a := r.countEvents(); p != 0 || a != 1 {
		t.Errorf("expected 0 pulses and 1 aftershock, got %d %d", p, a)
	}

	view := r.View()
	for _, want := range []string{"CHICXULUB", "temp_anomaly_c", "biodiversity_index", "PLAYING", "▁"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	for i := 0; i < 10; i++ {
		m, _ = m.Update(TickMsg{})
	}
	r = m.(ReplayModel)
	if r.Head() != len(snaps)-1 || r.Running() {
		t.Errorf("playback should stop at the end, head %d running %v", r.Head(), r.Running())
	}
	if p, _ := r.countEvents(); p != 1 {
		t.Errorf("expected the pulse by the end, got %d", p)
	}
}

func TestReplayKeys(t *testing.T) {
	var m tea.Model = NewReplay("toba", testKeys, testSnaps(t))

	m, _ = m.Update(key(" "))
	if m.(ReplayModel).Running() {
		t.Error("space should pause")
	}

	m, _ = m.Update(key("]"))
	m, _ = m.Update(key("]"))
	m, _ = m.Update(key("["))
	if h := m.(ReplayModel).Head(); h != 1 {
		t.Errorf("expected head 1 after scrubbing, got %d", h)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if k := m.(ReplayModel).SelectedKey(); k != "biodiversity_index" {
		t.Errorf("tab should select the next variable, got %s", k)
	}

	m, _ = m.Update(key("+"))
	m, _ = m.Update(key("+"))
	m, _ = m.Update(key("-"))
	if s := m.(ReplayModel).Speed(); s != 2 {
		t.Errorf("expected speed 2, got %d", s)
	}

	m, _ = m.Update(key("r"))
	if r := m.(ReplayModel); r.Head() != 0 || !r.Running() {
		t.Errorf("restart should rewind and play, head %d", r.Head())
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSummary(t *testing.T) {
	out := Summary(ThemeAsh, "run", map[string]float64{"peak_co2_ppm": 512.25, "initial_tau": 1.5e-5})
	if !strings.Contains(out, "peak_co2_ppm") || !strings.Contains(out, "512.2") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "1.500e-05") {
		t.Errorf("tiny values should use scientific notation:\n%s", out)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != "ember" {
		t.Error("unknown theme should fall back to ember")
	}
	names := ThemeNames()
	if NextTheme(names[len(names)-1]).Name != names[0] {
		t.Error("NextTheme should wrap")
	}
}

func TestProgressRenderer(t *testing.T) {
	var buf strings.Builder
	r := NewProgressRenderer(&buf, 1000, 1000)
	r.Start()
	for i, s := range testSnaps(t) {
		r.OnStep(i, 0.5, s, 0)
	}
	r.Stop()

	if r.Steps() != 7 {
		t.Errorf("expected 7 observed steps, got %d", r.Steps())
	}
	if !strings.Contains(buf.String(), "year 0") {
		t.Errorf("expected a status line, got %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), showCursor) {
		t.Error("Stop should restore the cursor")
	}
}

func TestSparkline(t *testing.T) {
	st := NewStyles(ThemeEmber)

	out := st.Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	if !strings.Contains(out, "▁▂▃▄▅▆▇█") {
		t.Errorf("expected a rising sparkline, got %q", out)
	}

	out = st.Sparkline([]float64{5, 4, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 4)
	if n := strings.Count(out, "▁") + strings.Count(out, "█") + strings.Count(out, "▄") + strings.Count(out, "▂"); n != 4 {
		t.Errorf("expected 4 sampled cells, got %q", out)
	}
	if !strings.Contains(out, "█") {
		t.Errorf("expected the maximum at the start, got %q", out)
	}

	if out := st.Sparkline(nil, 3); out != "───" {
		t.Errorf("empty input should render a flat rule, got %q", out)
	}
}
