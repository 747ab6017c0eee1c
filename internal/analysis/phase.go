package analysis

import (
	"fmt"

	"github.com/san-kum/aftermath/internal/sim"
)

// PhasePortrait2D holds two snapshot keys plotted against each other.
type PhasePortrait2D struct {
	XKey, YKey string
	Points     []struct{ X, Y float64 }
}

// PhasePortrait extracts xKey against yKey from every post-event snapshot.
func PhasePortrait(res *sim.Result, xKey, yKey string) (*PhasePortrait2D, error) {
	final := res.Final()
	for _, k := range []string{xKey, yKey} {
		if _, ok := final.Get(k); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}

	portrait := &PhasePortrait2D{
		XKey:   xKey,
		YKey:   yKey,
		Points: make([]struct{ X, Y float64 }, 0, len(res.Snapshots)),
	}
	for i, s := range res.Snapshots {
		if i == 0 {
			continue
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{
			X: s.Value(xKey),
			Y: s.Value(yKey),
		})
	}
	return portrait, nil
}

// PhasePortraitToASCII converts a phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
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
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := newCanvas(width, height)
	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	return canvasString(canvas)
}

// Crossing is a threshold crossing between two snapshots.
type Crossing struct {
	Year   float64 `json:"year"`
	Rising bool    `json:"rising"`
}

// Crossings finds the years at which key crosses threshold, interpolating
// linearly between snapshots. The event discontinuity is skipped.
func Crossings(res *sim.Result, key string, threshold float64) ([]Crossing, error) {
	if _, ok := res.Final().Get(key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	out := make([]Crossing, 0)
	for i := 2; i < len(res.Snapshots); i++ {
		a, b := res.Snapshots[i-1], res.Snapshots[i]
		va, vb := a.Value(key), b.Value(key)
		rising := va < threshold && vb >= threshold
		falling := va >= threshold && vb < threshold
		if !rising && !falling {
			continue
		}
		frac := (threshold - va) / (vb - va)
		out = append(out, Crossing{
			Year:   a.Year() + frac*(b.Year()-a.Year()),
			Rising: rising,
		})
	}
	return out, nil
}
