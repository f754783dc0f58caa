// Package coordinator drives the five event detectors across a year
// range, recording run metadata and publishing progress as it goes
// (§4.6 Run Coordinator).
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/astronomy/events"
	"github.com/naren-m/astroevents/config"
	"github.com/naren-m/astroevents/coreerr"
	"github.com/naren-m/astroevents/log"
	"github.com/naren-m/astroevents/observability"
	"github.com/naren-m/astroevents/store"
	"go.opentelemetry.io/otel/attribute"
)

// ProgressFunc receives (percent in [0,100], a human-readable message)
// after each detector run. It must be cheap and non-blocking (§6
// "Progress callback"); the coordinator invokes it synchronously.
type ProgressFunc func(percent float64, message string)

// detectorStep names one of the five detectors in the fixed run order
// (§4.4 "Detector ordering").
type detectorStep struct {
	name string
	run  func(c *Coordinator, ctx context.Context, year int) (int, error)
}

var steps = []detectorStep{
	{"aspects", (*Coordinator).runAspects},
	{"lunar phases", (*Coordinator).runLunarPhases},
	{"planet phases", (*Coordinator).runPlanetPhases},
	{"eclipses", (*Coordinator).runEclipses},
	{"solar events", (*Coordinator).runSolarEvents},
}

// Coordinator wires a store and an ephemeris provider together and runs
// detectors over a year range.
type Coordinator struct {
	store    *store.Store
	provider events.Provider
	cfg      config.Config
	observer observability.ObserverInterface
}

// New returns a Coordinator over the given store and ephemeris provider.
func New(s *store.Store, provider events.Provider, cfg config.Config) *Coordinator {
	return &Coordinator{store: s, provider: provider, cfg: cfg, observer: observability.Observer()}
}

// Run executes every detector for every year in [startYear, endYear],
// publishing progress after each detector, per §4.6's five-step protocol.
// It rejects an empty range before doing any work (§7 InvalidRange).
func (c *Coordinator) Run(ctx context.Context, startYear, endYear int, progress ProgressFunc) error {
	ctx, span := c.observer.CreateSpan(ctx, "coordinator.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("start_year", startYear), attribute.Int("end_year", endYear))

	if startYear > endYear {
		err := coreerr.New(coreerr.InvalidRange, "coordinator.Run",
			fmt.Errorf("start_year %d is after end_year %d", startYear, endYear))
		span.RecordError(err)
		return err
	}

	if progress == nil {
		progress = func(float64, string) {}
	}

	if err := c.store.RecordRunStart(ctx, startYear, endYear); err != nil {
		wrapped := coreerr.New(coreerr.StoreUnavailable, "coordinator.Run", err)
		span.RecordError(wrapped)
		return wrapped
	}

	if err := c.store.EnsureCatalog(ctx); err != nil {
		wrapped := coreerr.New(coreerr.CatalogMissing, "coordinator.Run", err)
		span.RecordError(wrapped)
		c.fail(ctx, startYear, endYear, wrapped)
		return wrapped
	}

	numYears := endYear - startYear + 1
	totalSteps := numYears * len(steps)
	currentStep := 0
	totalEvents := 0

	for year := startYear; year <= endYear; year++ {
		select {
		case <-ctx.Done():
			c.fail(ctx, startYear, endYear, ctx.Err())
			return ctx.Err()
		default:
		}

		for _, step := range steps {
			count, err := step.run(c, ctx, year)
			if err != nil {
				switch {
				case errors.Is(err, ephemeris.ErrEphemerisUnavailable):
					wrapped := coreerr.New(coreerr.EphemerisUnavailable,
						fmt.Sprintf("%s year %d", step.name, year), err)
					span.RecordError(wrapped)
					log.Logger().WarnContext(ctx, "detector's year skipped: ephemeris unavailable",
						"year", year, "detector", step.name, "error", wrapped)
					count, err = 0, nil
				case coreerr.Is(err, coreerr.StoreConstraintViolation):
					span.RecordError(err)
					log.Logger().WarnContext(ctx, "detector batch rolled back on constraint violation, run continues",
						"year", year, "detector", step.name, "error", err)
					count, err = 0, nil
				}
			}
			if err != nil {
				wrapped := fmt.Errorf("coordinator: year %d detector %s: %w", year, step.name, err)
				span.RecordError(wrapped)
				c.fail(ctx, startYear, endYear, wrapped)
				return wrapped
			}
			totalEvents += count
			currentStep++

			percent := 100 * float64(currentStep) / float64(totalSteps)
			progress(percent, fmt.Sprintf("year %d: %s (%d events)", year, step.name, count))

			select {
			case <-ctx.Done():
				c.fail(ctx, startYear, endYear, ctx.Err())
				return ctx.Err()
			default:
			}
		}

		log.Logger().InfoContext(ctx, "year completed",
			"year", year, "running_total", totalEvents)
	}

	if err := c.store.RecordRunComplete(ctx, startYear, endYear, totalEvents); err != nil {
		wrapped := coreerr.New(coreerr.StoreUnavailable, "coordinator.Run", err)
		span.RecordError(wrapped)
		return wrapped
	}
	span.SetAttributes(attribute.Int("total_events", totalEvents))
	return nil
}

func (c *Coordinator) fail(ctx context.Context, startYear, endYear int, cause error) {
	log.Logger().ErrorContext(ctx, "run failed", "start_year", startYear, "end_year", endYear, "error", cause)
	if err := c.store.RecordRunFailed(ctx, startYear, endYear); err != nil {
		log.Logger().ErrorContext(ctx, "failed to record run failure", "error", err)
	}
}

// wrapStoreErr tags a store failure as StoreUnavailable unless it's already
// a more specific coreerr.Error (store/events_repo.go tags batch-level
// constraint violations itself), which is returned unchanged so the step
// loop above can tell the two apart.
func wrapStoreErr(operation string, err error) error {
	var tagged *coreerr.Error
	if errors.As(err, &tagged) {
		return err
	}
	return coreerr.New(coreerr.StoreUnavailable, operation, err)
}

func (c *Coordinator) runAspects(ctx context.Context, year int) (int, error) {
	cfg := events.AspectConfig{IncludeMinor: c.cfg.IncludeMinorAspects}
	found, err := events.DetectAspects(ctx, c.provider, year, cfg)
	if err != nil {
		return 0, err
	}
	if err := c.store.SaveAspects(ctx, found); err != nil {
		return 0, wrapStoreErr("store.SaveAspects", err)
	}
	return len(found), nil
}

func (c *Coordinator) runLunarPhases(ctx context.Context, year int) (int, error) {
	found, err := events.DetectLunarPhases(ctx, c.provider, year)
	if err != nil {
		return 0, err
	}
	if err := c.store.SaveLunarPhases(ctx, found); err != nil {
		return 0, wrapStoreErr("store.SaveLunarPhases", err)
	}
	return len(found), nil
}

func (c *Coordinator) runPlanetPhases(ctx context.Context, year int) (int, error) {
	found, err := events.DetectPlanetPhases(ctx, c.provider, year)
	if err != nil {
		return 0, err
	}
	if err := c.store.SavePlanetPhases(ctx, found); err != nil {
		return 0, wrapStoreErr("store.SavePlanetPhases", err)
	}
	return len(found), nil
}

func (c *Coordinator) runEclipses(ctx context.Context, year int) (int, error) {
	found, err := events.DetectEclipses(ctx, c.provider, year)
	if err != nil {
		return 0, err
	}
	if err := c.store.SaveEclipses(ctx, found); err != nil {
		return 0, wrapStoreErr("store.SaveEclipses", err)
	}
	return len(found), nil
}

func (c *Coordinator) runSolarEvents(ctx context.Context, year int) (int, error) {
	found, err := events.DetectSolarEvents(ctx, c.provider, year)
	if err != nil {
		return 0, err
	}
	if err := c.store.SaveSolarEvents(ctx, found); err != nil {
		return 0, wrapStoreErr("store.SaveSolarEvents", err)
	}
	return len(found), nil
}
