package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/naren-m/astroevents/astronomy/events"
	"github.com/naren-m/astroevents/coreerr"
	"go.opentelemetry.io/otel/attribute"
)

// aspectBatchSize is a tuning knob, not a contract (§4.4 "Persistence").
const aspectBatchSize = 100

const isoLayout = "2006-01-02T15:04:05"

// isConstraintViolation reports whether err came from a violated SQLite
// constraint (unique index, check, foreign key), matching against the
// driver's standard error text since modernc.org/sqlite doesn't export a
// typed constraint-error the way database/sql drivers commonly do.
func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

// wrapInsertErr tags a constraint violation as coreerr.StoreConstraintViolation
// (§7: batch rolled back, run continues) so callers can distinguish it from an
// unreachable-store failure; anything else is wrapped plainly.
func wrapInsertErr(operation string, err error) error {
	if isConstraintViolation(err) {
		return coreerr.New(coreerr.StoreConstraintViolation, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// SaveAspects idempotently upserts aspects in batches of aspectBatchSize,
// each batch in its own scoped transaction so a mid-batch failure rolls
// back only that batch (§4.5 "Insertion").
func (s *Store) SaveAspects(ctx context.Context, aspects []events.Aspect) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.SaveAspects")
	defer span.End()

	for start := 0; start < len(aspects); start += aspectBatchSize {
		end := start + aspectBatchSize
		if end > len(aspects) {
			end = len(aspects)
		}
		if err := s.saveAspectBatch(ctx, aspects[start:end]); err != nil {
			span.RecordError(err)
			return err
		}
	}
	span.SetAttributes(attribute.Int("aspect_count", len(aspects)))
	return nil
}

func (s *Store) saveAspectBatch(ctx context.Context, batch []events.Aspect) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO aspects (
				body1_id, body2_id, aspect_type, is_major, year,
				applying_timestamp, exact_timestamp, separating_timestamp,
				applying_position1, applying_position2,
				exact_position1, exact_position2,
				separating_position1, separating_position2
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(body1_id, body2_id, aspect_type, exact_timestamp) DO UPDATE SET
				is_major = excluded.is_major,
				applying_timestamp = excluded.applying_timestamp,
				separating_timestamp = excluded.separating_timestamp,
				applying_position1 = excluded.applying_position1,
				applying_position2 = excluded.applying_position2,
				separating_position1 = excluded.separating_position1,
				separating_position2 = excluded.separating_position2
		`)
		if err != nil {
			return fmt.Errorf("store: prepare aspect insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range batch {
			var applyingTS, separatingTS sql.NullString
			var applyingP1, applyingP2, separatingP1, separatingP2 sql.NullFloat64
			if a.Applying != nil {
				applyingTS = sql.NullString{String: a.Applying.Timestamp.UTC().Format(isoLayout), Valid: true}
				applyingP1 = sql.NullFloat64{Float64: a.Applying.Position1, Valid: true}
				applyingP2 = sql.NullFloat64{Float64: a.Applying.Position2, Valid: true}
			}
			if a.Separating != nil {
				separatingTS = sql.NullString{String: a.Separating.Timestamp.UTC().Format(isoLayout), Valid: true}
				separatingP1 = sql.NullFloat64{Float64: a.Separating.Position1, Valid: true}
				separatingP2 = sql.NullFloat64{Float64: a.Separating.Position2, Valid: true}
			}

			_, err := stmt.ExecContext(ctx,
				int(a.Body1), int(a.Body2), a.Type, a.IsMajor, a.Year,
				applyingTS, a.Exact.Timestamp.UTC().Format(isoLayout), separatingTS,
				applyingP1, applyingP2,
				a.Exact.Position1, a.Exact.Position2,
				separatingP1, separatingP2,
			)
			if err != nil {
				return wrapInsertErr("store: insert aspect", err)
			}
		}
		return nil
	})
}

// SaveLunarPhases idempotently upserts a year's lunar phases in one transaction.
func (s *Store) SaveLunarPhases(ctx context.Context, phases []events.LunarPhase) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.SaveLunarPhases")
	defer span.End()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO lunar_phases (timestamp, year, phase_kind, moon_longitude, sun_longitude, zodiac_sign)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(timestamp, phase_kind) DO UPDATE SET
				year = excluded.year,
				moon_longitude = excluded.moon_longitude,
				sun_longitude = excluded.sun_longitude,
				zodiac_sign = excluded.zodiac_sign
		`)
		if err != nil {
			return fmt.Errorf("store: prepare lunar phase insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range phases {
			if _, err := stmt.ExecContext(ctx,
				p.Timestamp.UTC().Format(isoLayout), p.Year, string(p.Kind),
				p.MoonLongitude, p.SunLongitude, p.ZodiacSign,
			); err != nil {
				return wrapInsertErr("store: insert lunar phase", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("lunar_phase_count", len(phases)))
	return nil
}

// SavePlanetPhases idempotently upserts a year's planet phases in one transaction.
func (s *Store) SavePlanetPhases(ctx context.Context, phases []events.PlanetPhase) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.SavePlanetPhases")
	defer span.End()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO planet_phases (body_id, phase_kind, timestamp, year, elongation_degree, zodiac_sign)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(body_id, timestamp, phase_kind) DO UPDATE SET
				year = excluded.year,
				elongation_degree = excluded.elongation_degree,
				zodiac_sign = excluded.zodiac_sign
		`)
		if err != nil {
			return fmt.Errorf("store: prepare planet phase insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range phases {
			var elongation sql.NullFloat64
			if p.Elongation != nil {
				elongation = sql.NullFloat64{Float64: *p.Elongation, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				int(p.Body), string(p.Kind), p.Timestamp.UTC().Format(isoLayout), p.Year,
				elongation, p.ZodiacSign,
			); err != nil {
				return wrapInsertErr("store: insert planet phase", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("planet_phase_count", len(phases)))
	return nil
}

// SaveEclipses idempotently upserts a year's eclipses in one transaction.
func (s *Store) SaveEclipses(ctx context.Context, eclipses []events.Eclipse) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.SaveEclipses")
	defer span.End()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO eclipses (timestamp, year, eclipse_kind, sun_longitude, moon_longitude, zodiac_sign)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(timestamp, eclipse_kind) DO UPDATE SET
				year = excluded.year,
				sun_longitude = excluded.sun_longitude,
				moon_longitude = excluded.moon_longitude,
				zodiac_sign = excluded.zodiac_sign
		`)
		if err != nil {
			return fmt.Errorf("store: prepare eclipse insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range eclipses {
			if _, err := stmt.ExecContext(ctx,
				e.Timestamp.UTC().Format(isoLayout), e.Year, string(e.Kind),
				e.SunLongitude, e.MoonLongitude, e.ZodiacSign,
			); err != nil {
				return wrapInsertErr("store: insert eclipse", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("eclipse_count", len(eclipses)))
	return nil
}

// SaveSolarEvents idempotently upserts a year's solar events in one transaction.
func (s *Store) SaveSolarEvents(ctx context.Context, solarEvents []events.SolarEvent) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.SaveSolarEvents")
	defer span.End()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO solar_events (timestamp, year, solar_kind, sun_longitude, zodiac_sign)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(timestamp, solar_kind) DO UPDATE SET
				year = excluded.year,
				sun_longitude = excluded.sun_longitude,
				zodiac_sign = excluded.zodiac_sign
		`)
		if err != nil {
			return fmt.Errorf("store: prepare solar event insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range solarEvents {
			if _, err := stmt.ExecContext(ctx,
				e.Timestamp.UTC().Format(isoLayout), e.Year, string(e.Kind),
				e.SunLongitude, e.ZodiacSign,
			); err != nil {
				return wrapInsertErr("store: insert solar event", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("solar_event_count", len(solarEvents)))
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic, per §4.5 "acquire -> insert-many -> commit".
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}
