package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/astronomy/events"
)

// AspectFilter narrows GetAspects; zero-value fields are unfiltered.
type AspectFilter struct {
	Body1   *ephemeris.BodyID
	Body2   *ephemeris.BodyID
	Type    string
	IsMajor *bool
}

// GetAspects returns aspects with exact_timestamp in [start, end], filtered
// by the optional fields in filter, ordered exact_timestamp ascending.
// Body1/Body2 are canonicalized (swapped if out of order) to match the
// writer's b1 < b2 convention (§9 "Pair-ordering convention").
func (s *Store) GetAspects(ctx context.Context, start, end time.Time, filter AspectFilter) ([]events.Aspect, error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetAspects")
	defer span.End()

	query := `
		SELECT body1_id, body2_id, aspect_type, is_major, year,
			applying_timestamp, exact_timestamp, separating_timestamp,
			applying_position1, applying_position2,
			exact_position1, exact_position2,
			separating_position1, separating_position2
		FROM aspects
		WHERE exact_timestamp >= ? AND exact_timestamp <= ?
	`
	args := []any{start.UTC().Format(isoLayout), end.UTC().Format(isoLayout)}

	b1, b2 := filter.Body1, filter.Body2
	if b1 != nil && b2 != nil && *b1 > *b2 {
		b1, b2 = b2, b1
	}
	if b1 != nil {
		query += " AND body1_id = ?"
		args = append(args, int(*b1))
	}
	if b2 != nil {
		query += " AND body2_id = ?"
		args = append(args, int(*b2))
	}
	if filter.Type != "" {
		query += " AND aspect_type = ?"
		args = append(args, filter.Type)
	}
	if filter.IsMajor != nil {
		query += " AND is_major = ?"
		args = append(args, *filter.IsMajor)
	}
	query += " ORDER BY exact_timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query aspects: %w", err)
	}
	defer rows.Close()

	var out []events.Aspect
	for rows.Next() {
		var a events.Aspect
		var body1, body2 int
		var exactTS string
		var applyingTS, separatingTS sql.NullString
		var applyingP1, applyingP2, separatingP1, separatingP2 sql.NullFloat64

		if err := rows.Scan(&body1, &body2, &a.Type, &a.IsMajor, &a.Year,
			&applyingTS, &exactTS, &separatingTS,
			&applyingP1, &applyingP2,
			&a.Exact.Position1, &a.Exact.Position2,
			&separatingP1, &separatingP2,
		); err != nil {
			return nil, fmt.Errorf("store: scan aspect: %w", err)
		}
		a.Body1 = ephemeris.BodyID(body1)
		a.Body2 = ephemeris.BodyID(body2)
		a.Exact.Timestamp, err = time.Parse(isoLayout, exactTS)
		if err != nil {
			return nil, fmt.Errorf("store: parse exact_timestamp %q: %w", exactTS, err)
		}
		if applyingTS.Valid {
			ts, err := time.Parse(isoLayout, applyingTS.String)
			if err != nil {
				return nil, fmt.Errorf("store: parse applying_timestamp %q: %w", applyingTS.String, err)
			}
			a.Applying = &events.TimedPosition2{Timestamp: ts, Position1: applyingP1.Float64, Position2: applyingP2.Float64}
		}
		if separatingTS.Valid {
			ts, err := time.Parse(isoLayout, separatingTS.String)
			if err != nil {
				return nil, fmt.Errorf("store: parse separating_timestamp %q: %w", separatingTS.String, err)
			}
			a.Separating = &events.TimedPosition2{Timestamp: ts, Position1: separatingP1.Float64, Position2: separatingP2.Float64}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetLunarPhases returns lunar phases in [start, end], optionally filtered
// by kind, ordered timestamp ascending.
func (s *Store) GetLunarPhases(ctx context.Context, start, end time.Time, kind events.LunarPhaseKind) ([]events.LunarPhase, error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetLunarPhases")
	defer span.End()

	query := `
		SELECT timestamp, year, phase_kind, moon_longitude, sun_longitude, zodiac_sign
		FROM lunar_phases
		WHERE timestamp >= ? AND timestamp <= ?
	`
	args := []any{start.UTC().Format(isoLayout), end.UTC().Format(isoLayout)}
	if kind != "" {
		query += " AND phase_kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query lunar phases: %w", err)
	}
	defer rows.Close()

	var out []events.LunarPhase
	for rows.Next() {
		var p events.LunarPhase
		var ts, k string
		if err := rows.Scan(&ts, &p.Year, &k, &p.MoonLongitude, &p.SunLongitude, &p.ZodiacSign); err != nil {
			return nil, fmt.Errorf("store: scan lunar phase: %w", err)
		}
		p.Kind = events.LunarPhaseKind(k)
		p.Timestamp, err = time.Parse(isoLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: parse lunar phase timestamp %q: %w", ts, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPlanetPhases returns planet phases in [start, end], optionally
// filtered by body and kind, ordered timestamp ascending.
func (s *Store) GetPlanetPhases(ctx context.Context, start, end time.Time, body *ephemeris.BodyID, kind events.PlanetPhaseKind) ([]events.PlanetPhase, error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetPlanetPhases")
	defer span.End()

	query := `
		SELECT body_id, phase_kind, timestamp, year, elongation_degree, zodiac_sign
		FROM planet_phases
		WHERE timestamp >= ? AND timestamp <= ?
	`
	args := []any{start.UTC().Format(isoLayout), end.UTC().Format(isoLayout)}
	if body != nil {
		query += " AND body_id = ?"
		args = append(args, int(*body))
	}
	if kind != "" {
		query += " AND phase_kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query planet phases: %w", err)
	}
	defer rows.Close()

	var out []events.PlanetPhase
	for rows.Next() {
		var p events.PlanetPhase
		var bodyID int
		var k, ts string
		var elongation sql.NullFloat64
		if err := rows.Scan(&bodyID, &k, &ts, &p.Year, &elongation, &p.ZodiacSign); err != nil {
			return nil, fmt.Errorf("store: scan planet phase: %w", err)
		}
		p.Body = ephemeris.BodyID(bodyID)
		p.Kind = events.PlanetPhaseKind(k)
		p.Timestamp, err = time.Parse(isoLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: parse planet phase timestamp %q: %w", ts, err)
		}
		if elongation.Valid {
			v := elongation.Float64
			p.Elongation = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetEclipses returns eclipses in [start, end], optionally filtered by
// kind, ordered timestamp ascending.
func (s *Store) GetEclipses(ctx context.Context, start, end time.Time, kind events.EclipseKind) ([]events.Eclipse, error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetEclipses")
	defer span.End()

	query := `
		SELECT timestamp, year, eclipse_kind, sun_longitude, moon_longitude, zodiac_sign
		FROM eclipses
		WHERE timestamp >= ? AND timestamp <= ?
	`
	args := []any{start.UTC().Format(isoLayout), end.UTC().Format(isoLayout)}
	if kind != "" {
		query += " AND eclipse_kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query eclipses: %w", err)
	}
	defer rows.Close()

	var out []events.Eclipse
	for rows.Next() {
		var e events.Eclipse
		var ts, k string
		if err := rows.Scan(&ts, &e.Year, &k, &e.SunLongitude, &e.MoonLongitude, &e.ZodiacSign); err != nil {
			return nil, fmt.Errorf("store: scan eclipse: %w", err)
		}
		e.Kind = events.EclipseKind(k)
		e.Timestamp, err = time.Parse(isoLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: parse eclipse timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetSolarEvents returns solar turning points in [start, end], optionally
// filtered by kind, ordered timestamp ascending.
func (s *Store) GetSolarEvents(ctx context.Context, start, end time.Time, kind events.SolarEventKind) ([]events.SolarEvent, error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetSolarEvents")
	defer span.End()

	query := `
		SELECT timestamp, year, solar_kind, sun_longitude, zodiac_sign
		FROM solar_events
		WHERE timestamp >= ? AND timestamp <= ?
	`
	args := []any{start.UTC().Format(isoLayout), end.UTC().Format(isoLayout)}
	if kind != "" {
		query += " AND solar_kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query solar events: %w", err)
	}
	defer rows.Close()

	var out []events.SolarEvent
	for rows.Next() {
		var e events.SolarEvent
		var ts, k string
		if err := rows.Scan(&ts, &e.Year, &k, &e.SunLongitude, &e.ZodiacSign); err != nil {
			return nil, fmt.Errorf("store: scan solar event: %w", err)
		}
		e.Kind = events.SolarEventKind(k)
		e.Timestamp, err = time.Parse(isoLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: parse solar event timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
