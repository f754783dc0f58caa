package store

import (
	"context"
	"fmt"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
)

// CelestialBody is one row of the fixed catalog.
type CelestialBody struct {
	ID   ephemeris.BodyID
	Name string
	Kind string
}

// DefaultCatalog is the fixed 11-body bootstrap list every detector
// references: Sun through Pluto plus the mean lunar node.
func DefaultCatalog() []CelestialBody {
	return []CelestialBody{
		{ephemeris.Sun, "Sun", "star"},
		{ephemeris.Moon, "Moon", "satellite"},
		{ephemeris.Mercury, "Mercury", "planet"},
		{ephemeris.Venus, "Venus", "planet"},
		{ephemeris.Mars, "Mars", "planet"},
		{ephemeris.Jupiter, "Jupiter", "planet"},
		{ephemeris.Saturn, "Saturn", "planet"},
		{ephemeris.Uranus, "Uranus", "planet"},
		{ephemeris.Neptune, "Neptune", "planet"},
		{ephemeris.Pluto, "Pluto", "dwarf_planet"},
		{ephemeris.MeanNode, "Mean Node", "lunar_node"},
	}
}

// upsertCatalog inserts every body in DefaultCatalog that isn't already
// present by name, leaving existing rows (and their ids) untouched.
func (s *Store) upsertCatalog(ctx context.Context) error {
	for _, b := range DefaultCatalog() {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO celestial_bodies (id, name, type) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			int(b.ID), b.Name, b.Kind)
		if err != nil {
			return fmt.Errorf("store: upsert catalog body %s: %w", b.Name, err)
		}
	}
	return nil
}

// EnsureCatalog re-upserts the fixed catalog so every body a detector can
// reference is present, per §4.6 step 2 ("Ensure the catalog contains every
// body any detector references") and the CatalogMissing recovery in §7. It
// is idempotent: Open already bootstraps the catalog once, so a normal run
// finds this a no-op, but it re-repairs the table if something external
// cleared it between opens.
func (s *Store) EnsureCatalog(ctx context.Context) error {
	return s.upsertCatalog(ctx)
}
