// Package report serializes recorded runs as CSV, JSON, HTML tables and SVG
// line charts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/aftermath/internal/record"
)

var (
	ErrNoSnapshots   = errors.New("report: no snapshots")
	ErrUnknownFormat = errors.New("report: unknown format")
)

// Format is an output serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatSVG  Format = "svg"
	FormatAll  Format = "all"
)

// ParseFormat accepts csv, json, html, svg or all.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatHTML, FormatSVG, FormatAll:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Formats expands FormatAll into the concrete formats.
func (f Format) Formats() []Format {
	if f == FormatAll {
		return []Format{FormatCSV, FormatHTML, FormatJSON, FormatSVG}
	}
	return []Format{f}
}

// Ext is the file extension for the format, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// FormatValue renders a snapshot value with the shortest exact representation.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes a header row of keys followed by one row per snapshot.
func WriteCSV(w io.Writer, keys []string, snaps []record.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(keys); err != nil {
		return err
	}
	row := make([]string, len(keys))
	for i, s := range snaps {
		for j, k := range keys {
			v, ok := s.Get(k)
			if !ok {
				return fmt.Errorf("snapshot %d: missing key %s", i, k)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("snapshot %d: non-finite %s", i, k)
			}
			row[j] = FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Document is the JSON export of one run.
type Document struct {
	Metadata  any                `json:"metadata,omitempty"`
	Keys      []string           `json:"keys"`
	Snapshots []record.Snapshot  `json:"snapshots"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	if doc.Snapshots == nil {
		doc.Snapshots = []record.Snapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Sample keeps every snapshot whose whole year is a multiple of every, plus
// the final snapshot. A non-positive every keeps all snapshots.
func Sample(snaps []record.Snapshot, every int) []record.Snapshot {
	if every <= 0 || len(snaps) == 0 {
		return append([]record.Snapshot(nil), snaps...)
	}
	last := len(snaps) - 1
	out := make([]record.Snapshot, 0, len(snaps)/every+1)
	for i, s := range snaps {
		if int64(s.Year())%int64(every) == 0 || i == last {
			out = append(out, s)
		}
	}
	return out
}
