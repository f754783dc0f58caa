package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a calculation run (§3 "Run metadata").
type RunStatus string

const (
	StatusInProgress RunStatus = "in_progress"
	StatusComplete   RunStatus = "complete"
	StatusFailed     RunStatus = "failed"
)

// RunMetadata describes one (start_year, end_year) calculation run.
type RunMetadata struct {
	StartYear int
	EndYear   int
	Timestamp time.Time
	Status    RunStatus
	Events    int
}

// RecordRunStart upserts an in_progress row for (startYear, endYear),
// per §4.6 step 1.
func (s *Store) RecordRunStart(ctx context.Context, startYear, endYear int) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.RecordRunStart")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calculation_metadata (start_year, end_year, calculation_timestamp, status, events_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(start_year, end_year) DO UPDATE SET
			calculation_timestamp = excluded.calculation_timestamp,
			status = excluded.status,
			events_count = 0
	`, startYear, endYear, time.Now().UTC().Format(isoLayout), string(StatusInProgress))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: record run start: %w", err)
	}
	return nil
}

// RecordRunComplete marks (startYear, endYear) complete with the final
// event count, per §4.6 step 4.
func (s *Store) RecordRunComplete(ctx context.Context, startYear, endYear, eventCount int) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.RecordRunComplete")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		UPDATE calculation_metadata
		SET status = ?, events_count = ?, calculation_timestamp = ?
		WHERE start_year = ? AND end_year = ?
	`, string(StatusComplete), eventCount, time.Now().UTC().Format(isoLayout), startYear, endYear)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: record run complete: %w", err)
	}
	return nil
}

// RecordRunFailed marks (startYear, endYear) failed, per §4.6 step 5 and
// §7's "coordinator never swallows errors silently" propagation policy.
func (s *Store) RecordRunFailed(ctx context.Context, startYear, endYear int) error {
	ctx, span := s.observer.CreateSpan(ctx, "store.RecordRunFailed")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		UPDATE calculation_metadata
		SET status = ?, calculation_timestamp = ?
		WHERE start_year = ? AND end_year = ?
	`, string(StatusFailed), time.Now().UTC().Format(isoLayout), startYear, endYear)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: record run failed: %w", err)
	}
	return nil
}

// DefaultStartYear and DefaultEndYear are the core's default population
// range (§10 Configuration); GetCalculationStatus reports whether this
// exact range has ever completed.
const (
	DefaultStartYear = 1900
	DefaultEndYear   = 2100
)

// CalculationStatus is the diagnostic shape the original repository's
// get_calculation_status() returns, carried forward per §12: known run
// ranges, a per-table row count breakdown, and whether the default
// 1900-2100 range has ever completed.
type CalculationStatus struct {
	Ranges          []RunMetadata
	TableCounts     map[string]int64
	HasDefaultRange bool
}

var eventTables = []string{"aspects", "lunar_phases", "planet_phases", "eclipses", "solar_events"}

// GetCalculationStatus returns every known run range plus table-count and
// default-range diagnostics, per §4.7 and the §12 supplemented shape.
func (s *Store) GetCalculationStatus(ctx context.Context) (CalculationStatus, error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetCalculationStatus")
	defer span.End()

	ranges, err := s.listRuns(ctx)
	if err != nil {
		span.RecordError(err)
		return CalculationStatus{}, err
	}

	counts := make(map[string]int64, len(eventTables))
	for _, table := range eventTables {
		var n int64
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			span.RecordError(err)
			return CalculationStatus{}, fmt.Errorf("store: count %s: %w", table, err)
		}
		counts[table] = n
	}

	hasDefault := false
	for _, r := range ranges {
		if r.Status == StatusComplete && r.StartYear == DefaultStartYear && r.EndYear == DefaultEndYear {
			hasDefault = true
			break
		}
	}

	return CalculationStatus{Ranges: ranges, TableCounts: counts, HasDefaultRange: hasDefault}, nil
}

// listRuns returns every known run row, ordered start_year ascending.
func (s *Store) listRuns(ctx context.Context) ([]RunMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_year, end_year, calculation_timestamp, status, events_count
		FROM calculation_metadata
		ORDER BY start_year ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: query calculation status: %w", err)
	}
	defer rows.Close()

	var out []RunMetadata
	for rows.Next() {
		var m RunMetadata
		var ts string
		var status string
		if err := rows.Scan(&m.StartYear, &m.EndYear, &ts, &status, &m.Events); err != nil {
			return nil, fmt.Errorf("store: scan calculation status: %w", err)
		}
		m.Status = RunStatus(status)
		m.Timestamp, err = time.Parse(isoLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: parse run timestamp %q: %w", ts, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetAvailableDateRange returns the min/max year covered by complete runs,
// falling back to a scan of event tables if no run is recorded complete
// (§4.7).
func (s *Store) GetAvailableDateRange(ctx context.Context) (minYear, maxYear int, err error) {
	ctx, span := s.observer.CreateSpan(ctx, "store.GetAvailableDateRange")
	defer span.End()

	var min, max sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT MIN(start_year), MAX(end_year) FROM calculation_metadata WHERE status = ?
	`, string(StatusComplete)).Scan(&min, &max)
	if err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("store: query available date range: %w", err)
	}
	if min.Valid && max.Valid {
		return int(min.Int64), int(max.Int64), nil
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT MIN(year), MAX(year) FROM (
			SELECT year FROM aspects
			UNION ALL SELECT year FROM lunar_phases
			UNION ALL SELECT year FROM planet_phases
			UNION ALL SELECT year FROM eclipses
			UNION ALL SELECT year FROM solar_events
		)
	`).Scan(&min, &max)
	if err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("store: scan event tables for date range: %w", err)
	}
	if !min.Valid || !max.Valid {
		return 0, 0, nil
	}
	return int(min.Int64), int(max.Int64), nil
}
