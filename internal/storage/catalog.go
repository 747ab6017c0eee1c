package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/aftermath/internal/scenario"
)

//go:embed schema.sql
var schemaSQL string

// Catalog indexes saved runs in a sqlite database so they can be queried
// without walking every run directory.
type Catalog struct {
	sqlDB *sql.DB
}

// CatalogEntry is one indexed run.
type CatalogEntry struct {
	ID                string        `json:"id"`
	Kind              scenario.Kind `json:"kind"`
	Label             string        `json:"label,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	Seed              int64         `json:"seed"`
	StartYear         float64       `json:"start_year"`
	EndYear           float64       `json:"end_year"`
	Steps             int           `json:"steps"`
	Aftershocks       int           `json:"aftershocks"`
	EnergyGT          float64       `json:"energy_gt"`
	StructureKm       float64       `json:"structure_km"`
	InitialTau        float64       `json:"initial_tau"`
	MinBiodiversity   *float64      `json:"min_biodiversity,omitempty"`
	FinalBiodiversity *float64      `json:"final_biodiversity,omitempty"`
	RecoveryYear      *float64      `json:"recovery_year,omitempty"`
}

// EntryFromMetadata projects run metadata onto a catalog row.
func EntryFromMetadata(meta RunMetadata) CatalogEntry {
	e := CatalogEntry{
		ID:          meta.ID,
		Kind:        meta.Kind,
		Label:       meta.Label,
		CreatedAt:   meta.Timestamp,
		Seed:        meta.Seed,
		StartYear:   meta.StartYear,
		EndYear:     meta.EndYear,
		Steps:       meta.Steps,
		Aftershocks: meta.Aftershocks,
		EnergyGT:    meta.Event.EnergyGT,
		StructureKm: meta.Event.StructureKm,
		InitialTau:  meta.Event.InitialTau,
	}
	if v, ok := meta.Metrics["min_biodiversity"]; ok {
		e.MinBiodiversity = &v
	}
	if v, ok := meta.Metrics["final_biodiversity"]; ok {
		e.FinalBiodiversity = &v
	}
	if v, ok := meta.Metrics["recovery_year"]; ok && v >= 0 {
		e.RecoveryYear = &v
	}
	return e
}

// OpenCatalog opens a sqlite catalog at the provided path and applies the schema.
func OpenCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	return &Catalog{sqlDB: sqlDB}, nil
}

// Close closes the sqlite catalog.
func (c *Catalog) Close() error {
	if c == nil || c.sqlDB == nil {
		return nil
	}
	return c.sqlDB.Close()
}

// Put inserts or replaces one catalog row.
func (c *Catalog) Put(ctx context.Context, e CatalogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("run id is required")
	}

	_, err := c.sqlDB.ExecContext(ctx, `
INSERT INTO runs (
	id, kind, label, created_at, seed, start_year, end_year, steps, aftershocks,
	energy_gt, structure_km, initial_tau, min_biodiversity, final_biodiversity, recovery_year
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind = excluded.kind,
	label = excluded.label,
	created_at = excluded.created_at,
	seed = excluded.seed,
	start_year = excluded.start_year,
	end_year = excluded.end_year,
	steps = excluded.steps,
	aftershocks = excluded.aftershocks,
	energy_gt = excluded.energy_gt,
	structure_km = excluded.structure_km,
	initial_tau = excluded.initial_tau,
	min_biodiversity = excluded.min_biodiversity,
	final_biodiversity = excluded.final_biodiversity,
	recovery_year = excluded.recovery_year
`,
		e.ID,
		e.Kind.String(),
		e.Label,
		e.CreatedAt.UTC().UnixMilli(),
		e.Seed,
		e.StartYear,
		e.EndYear,
		e.Steps,
		e.Aftershocks,
		e.EnergyGT,
		e.StructureKm,
		e.InitialTau,
		nullFloat(e.MinBiodiversity),
		nullFloat(e.FinalBiodiversity),
		nullFloat(e.RecoveryYear),
	)
	if err != nil {
		return fmt.Errorf("put run %s: %w", e.ID, err)
	}
	return nil
}

const selectEntry = `
SELECT id, kind, label, created_at, seed, start_year, end_year, steps, aftershocks,
	energy_gt, structure_km, initial_tau, min_biodiversity, final_biodiversity, recovery_year
FROM runs`

// Get returns one catalog row by run ID.
func (c *Catalog) Get(ctx context.Context, id string) (CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return CatalogEntry{}, err
	}
	if c == nil || c.sqlDB == nil {
		return CatalogEntry{}, fmt.Errorf("storage is not configured")
	}

	row := c.sqlDB.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CatalogEntry{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return e, nil
}

// List returns catalog rows newest first. scenario.Unknown matches every kind;
// a non-positive limit returns every row.
func (c *Catalog) List(ctx context.Context, kind scenario.Kind, limit int) ([]CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil || c.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}
	kindFilter := ""
	if kind.Valid() {
		kindFilter = kind.String()
	}

	rows, err := c.sqlDB.QueryContext(ctx,
		selectEntry+` WHERE (? = '' OR kind = ?) ORDER BY created_at DESC, id LIMIT ?`,
		kindFilter, kindFilter, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]CatalogEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Delete removes one catalog row.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	res, err := c.sqlDB.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (CatalogEntry, error) {
	var (
		e         CatalogEntry
		kind      string
		createdAt int64
		minBio    sql.NullFloat64
		finalBio  sql.NullFloat64
		recovery  sql.NullFloat64
	)
	if err := row.Scan(
		&e.ID, &kind, &e.Label, &createdAt, &e.Seed, &e.StartYear, &e.EndYear,
		&e.Steps, &e.Aftershocks, &e.EnergyGT, &e.StructureKm, &e.InitialTau,
		&minBio, &finalBio, &recovery,
	); err != nil {
		return CatalogEntry{}, err
	}
	parsed, err := scenario.ParseKind(kind)
	if err != nil {
		return CatalogEntry{}, err
	}
	e.Kind = parsed
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.MinBiodiversity = fromNull(minBio)
	e.FinalBiodiversity = fromNull(finalBio)
	e.RecoveryYear = fromNull(recovery)
	return e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
