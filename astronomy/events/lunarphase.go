package events

import (
	"context"
	"math"
	"time"

	"github.com/naren-m/astroevents/astronomy/angle"
	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

const lunarCycleDays = 29.53

var lunarPhaseTargets = []struct {
	deg  float64
	kind LunarPhaseKind
}{
	{0, NewMoon},
	{90, FirstQuarter},
	{180, FullMoon},
	{270, LastQuarter},
}

// DetectLunarPhases finds the four lunar phases for every lunation touching
// the given year, scanning a padded window (one month either side of the
// year) in quarter-cycle steps so phases straddling the year boundary are
// not missed, and dropping anything that resolves outside the target year.
func DetectLunarPhases(ctx context.Context, p Provider, year int) ([]LunarPhase, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "events.DetectLunarPhases")
	defer span.End()

	windowStart := ephemeris.TimeToJulianDay(time.Date(year-1, 12, 1, 0, 0, 0, 0, time.UTC))
	windowEnd := ephemeris.TimeToJulianDay(time.Date(year+1, 1, 31, 23, 59, 59, 0, time.UTC))

	var out []LunarPhase
	const stepDays = lunarCycleDays / 4

	for _, target := range lunarPhaseTargets {
		lastFound := ephemeris.JulianDay(math.Inf(-1))
		for jd := windowStart; jd < windowEnd; jd += ephemeris.JulianDay(stepDays) {
			phaseJD, lowPrecision, err := findExactLunarPhase(ctx, p, jd, target.deg)
			if err != nil {
				fallback := lunarPhasesMetonFallback(year)
				span.SetAttributes(attribute.Bool("fallback", true))
				return fallback, nil
			}

			phaseTime := ephemeris.JulianDayToTime(phaseJD)
			if phaseTime.Year() != year {
				continue
			}

			moonPos, err := p.Position(ctx, phaseJD, ephemeris.Moon, ephemeris.Geocentric)
			if err != nil {
				continue
			}
			sunPos, err := p.Position(ctx, phaseJD, ephemeris.Sun, ephemeris.Geocentric)
			if err != nil {
				continue
			}

			// A bisection started past the target can settle on the ±180°
			// wrap of the elongation difference rather than a root.
			if angle.ShortestArc(moonPos.Longitude-sunPos.Longitude, target.deg) > 1.0 {
				continue
			}
			// Successive scan starts within one lunation refine to the same phase.
			if phaseJD-lastFound < ephemeris.JulianDay(lunarCycleDays/2) {
				continue
			}
			lastFound = phaseJD

			out = append(out, LunarPhase{
				Timestamp:     phaseTime,
				Year:          year,
				Kind:          target.kind,
				MoonLongitude: moonPos.Longitude,
				SunLongitude:  sunPos.Longitude,
				ZodiacSign:    angle.SignIndex(moonPos.Longitude),
				LowPrecision:  lowPrecision || moonPos.LowPrecision || sunPos.LowPrecision,
			})
		}
	}

	span.SetAttributes(attribute.Int("lunar_phase_count", len(out)))
	return out, nil
}

// findExactLunarPhase bisects the moon-sun elongation toward targetDeg
// starting from start, over a window no wider than one lunation.
func findExactLunarPhase(ctx context.Context, p Provider, start ephemeris.JulianDay, targetDeg float64) (ephemeris.JulianDay, bool, error) {
	elongationDiff := func(jd ephemeris.JulianDay) (float64, bool, error) {
		moon, err := p.Position(ctx, jd, ephemeris.Moon, ephemeris.Geocentric)
		if err != nil {
			return 0, false, err
		}
		sun, err := p.Position(ctx, jd, ephemeris.Sun, ephemeris.Geocentric)
		if err != nil {
			return 0, false, err
		}
		diff := angle.Normalize(moon.Longitude-sun.Longitude) - targetDeg
		for diff > 180 {
			diff -= 360
		}
		for diff < -180 {
			diff += 360
		}
		return diff, moon.LowPrecision || sun.LowPrecision, nil
	}

	lo, hi := start, start+ephemeris.JulianDay(lunarCycleDays)
	loDiff, lowPrecision, err := elongationDiff(lo)
	if err != nil {
		return 0, false, err
	}
	if math.Abs(loDiff) < 1.0 {
		return lo, lowPrecision, nil
	}

	for i := 0; i < 12; i++ {
		mid := (lo + hi) / 2
		midDiff, lp, err := elongationDiff(mid)
		if err != nil {
			return 0, false, err
		}
		lowPrecision = lowPrecision || lp
		if (loDiff <= 0 && midDiff >= 0) || (loDiff >= 0 && midDiff <= 0) {
			hi = mid
		} else {
			lo, loDiff = mid, midDiff
		}
		if math.Abs(midDiff) < 0.01 {
			return mid, lowPrecision, nil
		}
	}
	return (lo + hi) / 2, lowPrecision, nil
}

// lunarPhasesMetonFallback approximates phases via a fixed synodic-month
// cadence from a known reference new moon, used when the ephemeris chain is
// entirely unusable for a tick (every event it emits is tagged low_precision).
func lunarPhasesMetonFallback(year int) []LunarPhase {
	const synodicMonth = 29.53058867
	referenceNewMoon := time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

	windowStart := time.Date(year-1, 12, 15, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(year+1, 1, 15, 0, 0, 0, 0, time.UTC)

	daysSinceRef := windowStart.Sub(referenceNewMoon).Hours() / 24
	cyclesSinceRef := math.Floor(daysSinceRef / synodicMonth)
	lastNewMoon := referenceNewMoon.Add(time.Duration(cyclesSinceRef*synodicMonth*24) * time.Hour)

	var out []LunarPhase
	offsets := []struct {
		days float64
		kind LunarPhaseKind
	}{
		{0, NewMoon},
		{synodicMonth / 4, FirstQuarter},
		{synodicMonth / 2, FullMoon},
		{synodicMonth * 3 / 4, LastQuarter},
	}

	for cycle := lastNewMoon; cycle.Before(windowEnd); cycle = cycle.Add(time.Duration(synodicMonth*24) * time.Hour) {
		for _, off := range offsets {
			ts := cycle.Add(time.Duration(off.days*24) * time.Hour)
			if ts.Year() != year {
				continue
			}
			out = append(out, LunarPhase{
				Timestamp:    ts,
				Year:         year,
				Kind:         off.kind,
				LowPrecision: true,
			})
		}
	}
	return out
}
