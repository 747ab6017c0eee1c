package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/record"
	"github.com/san-kum/aftermath/internal/report"
	"github.com/san-kum/aftermath/internal/scenario"
	"github.com/san-kum/aftermath/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	snapshotsFile = "snapshots.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

// EventMetadata records the initial conditions the run was seeded with.
type EventMetadata struct {
	Target        string             `json:"target,omitempty"`
	EnergyJ       float64            `json:"energy_j"`
	EnergyGT      float64            `json:"energy_gt"`
	StructureKm   float64            `json:"structure_km"`
	ParticulateKg float64            `json:"particulate_kg"`
	InitialTau    float64            `json:"initial_tau"`
	SO2Tg         float64            `json:"so2_tg,omitempty"`
	Params        map[string]float64 `json:"params,omitempty"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Kind        scenario.Kind      `json:"kind"`
	Label       string             `json:"label,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	StartYear   float64            `json:"start_year"`
	EndYear     float64            `json:"end_year"`
	DtInitial   float64            `json:"dt_initial"`
	DtFinal     float64            `json:"dt_final"`
	Steps       int                `json:"steps"`
	Aftershocks int                `json:"aftershocks"`
	FinalYear   float64            `json:"final_year"`
	Event       EventMetadata      `json:"event"`
	Keys        []string           `json:"keys"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewRunID returns a unique run identifier prefixed with the event kind.
func NewRunID(kind scenario.Kind) string {
	return fmt.Sprintf("%s_%s", kind, uuid.NewString())
}

// NewMetadata fills run metadata from a config and its result.
func NewMetadata(label string, cfg sim.Config, params map[string]float64, res *sim.Result) RunMetadata {
	meta := RunMetadata{
		ID:        NewRunID(cfg.Kind),
		Kind:      cfg.Kind,
		Label:     label,
		Timestamp: time.Now().UTC(),
		Seed:      cfg.Seed,
		StartYear: cfg.StartYear,
		EndYear:   cfg.EndYear,
		DtInitial: cfg.DtInitial,
		DtFinal:   cfg.DtFinal,
		Event: EventMetadata{
			EnergyJ:       cfg.Conditions.EnergyJ,
			EnergyGT:      cfg.Conditions.EnergyGT,
			StructureKm:   cfg.Conditions.StructureKm,
			ParticulateKg: cfg.Conditions.ParticulateKg,
			InitialTau:    cfg.Conditions.InitialTau,
			SO2Tg:         cfg.Conditions.SO2Tg,
			Params:        params,
		},
	}
	if cfg.Kind == scenario.AsteroidImpact {
		meta.Event.Target = cfg.Conditions.Target.String()
	}
	if res != nil {
		meta.Steps = res.StepsTaken
		meta.Aftershocks = res.Count(climate.Aftershock)
		meta.FinalYear = res.Final().Year()
		meta.Keys = res.Keys
		meta.Metrics = res.Metrics
	}
	return meta
}

// Save writes metadata.json and snapshots.csv under a directory named by meta.ID.
func (s *Store) Save(meta RunMetadata, res *sim.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Kind)
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, snapshotsFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := report.WriteCSV(csvFile, res.Keys, res.Snapshots); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	return runs, nil
}

func (s *Store) runDir(runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSnapshots reads a run's snapshots back, keyed by the CSV header.
func (s *Store) LoadSnapshots(runID string) ([]string, []record.Snapshot, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(filepath.Join(dir, snapshotsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	return ReadSnapshots(file)
}

// ReadSnapshots parses the CSV layout written by report.WriteCSV.
func ReadSnapshots(r io.Reader) ([]string, []record.Snapshot, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return []string{}, []record.Snapshot{}, nil
	}

	keys := records[0]
	snaps := make([]record.Snapshot, 0, len(records)-1)
	for i, row := range records[1:] {
		values := make([]float64, len(row))
		for j, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %s: %w", i+1, keys[j], err)
			}
			values[j] = v
		}
		snap, err := record.NewSnapshot(keys, values)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		snaps = append(snaps, snap)
	}
	return keys, snaps, nil
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	return os.RemoveAll(dir)
}
