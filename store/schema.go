// Package store persists detected events to a relational database and
// serves filtered reads back out. It wraps database/sql against
// modernc.org/sqlite — a single file, no network listener, matching the
// core's "single relational database file" contract.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// schemaStatements creates every table and index the core requires:
// celestial_bodies, calculation_metadata, positions (reserved, never
// written), and one table per event kind, each with the natural-key unique
// index invariant §3 mandates.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS celestial_bodies (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		UNIQUE(name)
	)`,
	`CREATE TABLE IF NOT EXISTS calculation_metadata (
		id INTEGER PRIMARY KEY,
		start_year INTEGER NOT NULL,
		end_year INTEGER NOT NULL,
		calculation_timestamp TEXT NOT NULL,
		status TEXT NOT NULL,
		events_count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(start_year, end_year)
	)`,
	// Reserved per §9/§12: created so the contract's table list is complete, never populated.
	`CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY,
		body_id INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		year INTEGER NOT NULL,
		is_heliocentric INTEGER NOT NULL,
		longitude REAL NOT NULL,
		FOREIGN KEY (body_id) REFERENCES celestial_bodies(id)
	)`,
	`CREATE TABLE IF NOT EXISTS aspects (
		id INTEGER PRIMARY KEY,
		body1_id INTEGER NOT NULL,
		body2_id INTEGER NOT NULL,
		aspect_type TEXT NOT NULL,
		is_major INTEGER NOT NULL,
		year INTEGER NOT NULL,
		applying_timestamp TEXT,
		exact_timestamp TEXT NOT NULL,
		separating_timestamp TEXT,
		applying_position1 REAL,
		applying_position2 REAL,
		exact_position1 REAL NOT NULL,
		exact_position2 REAL NOT NULL,
		separating_position1 REAL,
		separating_position2 REAL,
		FOREIGN KEY (body1_id) REFERENCES celestial_bodies(id),
		FOREIGN KEY (body2_id) REFERENCES celestial_bodies(id),
		UNIQUE(body1_id, body2_id, aspect_type, exact_timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS lunar_phases (
		id INTEGER PRIMARY KEY,
		timestamp TEXT NOT NULL,
		year INTEGER NOT NULL,
		phase_kind TEXT NOT NULL,
		moon_longitude REAL NOT NULL,
		sun_longitude REAL NOT NULL,
		zodiac_sign INTEGER NOT NULL,
		UNIQUE(timestamp, phase_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS planet_phases (
		id INTEGER PRIMARY KEY,
		body_id INTEGER NOT NULL,
		phase_kind TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		year INTEGER NOT NULL,
		elongation_degree REAL,
		zodiac_sign INTEGER NOT NULL,
		FOREIGN KEY (body_id) REFERENCES celestial_bodies(id),
		UNIQUE(body_id, timestamp, phase_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS eclipses (
		id INTEGER PRIMARY KEY,
		timestamp TEXT NOT NULL,
		year INTEGER NOT NULL,
		eclipse_kind TEXT NOT NULL,
		sun_longitude REAL NOT NULL,
		moon_longitude REAL NOT NULL,
		zodiac_sign INTEGER NOT NULL,
		UNIQUE(timestamp, eclipse_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS solar_events (
		id INTEGER PRIMARY KEY,
		timestamp TEXT NOT NULL,
		year INTEGER NOT NULL,
		solar_kind TEXT NOT NULL,
		sun_longitude REAL NOT NULL,
		zodiac_sign INTEGER NOT NULL,
		UNIQUE(timestamp, solar_kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_body_timestamp ON positions(body_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_year ON positions(year)`,
	`CREATE INDEX IF NOT EXISTS idx_aspects_bodies ON aspects(body1_id, body2_id)`,
	`CREATE INDEX IF NOT EXISTS idx_aspects_exact_timestamp ON aspects(exact_timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_aspects_year ON aspects(year)`,
	`CREATE INDEX IF NOT EXISTS idx_lunar_phases_timestamp ON lunar_phases(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_lunar_phases_year ON lunar_phases(year)`,
	`CREATE INDEX IF NOT EXISTS idx_planet_phases_timestamp ON planet_phases(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_planet_phases_year ON planet_phases(year)`,
	`CREATE INDEX IF NOT EXISTS idx_eclipses_timestamp ON eclipses(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_eclipses_year ON eclipses(year)`,
	`CREATE INDEX IF NOT EXISTS idx_solar_events_timestamp ON solar_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_solar_events_year ON solar_events(year)`,
}

// Store wraps a sqlite-backed connection with the event tables and catalog
// bootstrapped per §4.5.
type Store struct {
	db       *sql.DB
	observer observability.ObserverInterface
}

// Open opens (creating if absent) a sqlite database file at path, bootstraps
// the schema and catalog, and returns a ready Store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite only supports one writer at a time

	s := &Store{db: db, observer: observability.Observer()}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// bootstrap creates tables/indices if missing and upserts the fixed catalog,
// per §4.5 "Bootstrap". Only Open calls it; EnsureCatalog later re-runs the
// catalog upsert alone, without re-creating tables.
func (s *Store) bootstrap(ctx context.Context) error {
	_, span := s.observer.CreateSpan(ctx, "store.bootstrap")
	defer span.End()

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			span.RecordError(err)
			return fmt.Errorf("store: bootstrap schema: %w", err)
		}
	}
	if err := s.upsertCatalog(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("schema_statements", len(schemaStatements)))
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
