package viz

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
)

const (
	clearLine  = "\r\033[K"
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
)

// ProgressRenderer is a sim.Observer that redraws a one-line status at most
// frameRate times per second. It is safe to share across an ensemble.
type ProgressRenderer struct {
	mu        sync.Mutex
	w         io.Writer
	frameRate int
	endYear   float64
	lastFrame time.Time
	frame     int
	steps     int
	events    int
}

func NewProgressRenderer(w io.Writer, endYear float64, frameRate int) *ProgressRenderer {
	if frameRate <= 0 {
		frameRate = 10
	}
	return &ProgressRenderer{w: w, frameRate: frameRate, endYear: endYear}
}

func (r *ProgressRenderer) OnStep(step int, dt float64, snap record.Snapshot, ev climate.Events) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps++
	if ev != 0 {
		r.events++
	}
	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.frame++

	frac := 0.0
	if r.endYear > 0 {
		frac = min(1, snap.Year()/r.endYear)
	}
	bar := NewStyles(ThemeAsh).ProgressBar(frac, 20)
	fmt.Fprintf(r.w, "%s%s %s year %-9s dt %-7s T %+8.3f °C  bio %.4f  events %d",
		clearLine, AnimatedSpinner(r.frame), bar,
		FormatMetric(snap.Year()), FormatMetric(dt),
		snap.Value("temp_anomaly_c"), snap.Value("biodiversity_index"), r.events)
}

// Steps is the number of snapshots observed so far.
func (r *ProgressRenderer) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

func (r *ProgressRenderer) Start() { fmt.Fprint(r.w, hideCursor) }

// Stop clears the status line and restores the cursor.
func (r *ProgressRenderer) Stop() { fmt.Fprint(r.w, clearLine+showCursor) }

// AnimatedSpinner returns frame of animated spinner
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}
