package events

import (
	"context"
	"time"

	"github.com/naren-m/astroevents/astronomy/angle"
	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Eclipse classification bits, matching the Swiss Ephemeris SE_ECL_* flags
// (github.com/tejzpr/go-swisseph's constants.go) that NextSolarEclipse and
// NextLunarEclipse pass through unmodified.
const (
	eclCentral      = 1
	eclNoncentral   = 2
	eclTotal        = 4
	eclAnnular      = 8
	eclPartial      = 16
	eclAnnularTotal = 32
	eclPenumbral    = 64
)

const eclipseAdvanceDays = 10.0

// DetectEclipses delegates to the ephemeris's eclipse search, padding the
// target year by about two weeks on each side so eclipses straddling the
// boundary are found, then dropping anything outside the target year.
func DetectEclipses(ctx context.Context, p Provider, year int) ([]Eclipse, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "events.DetectEclipses")
	defer span.End()

	windowStart := ephemeris.TimeToJulianDay(time.Date(year-1, 12, 15, 0, 0, 0, 0, time.UTC))
	windowEnd := ephemeris.TimeToJulianDay(time.Date(year+1, 1, 15, 0, 0, 0, 0, time.UTC))

	var out []Eclipse

	solar, err := scanEclipses(ctx, windowStart, windowEnd, func(jd ephemeris.JulianDay) (ephemeris.EclipseResult, error) {
		return p.NextSolarEclipse(ctx, jd)
	})
	if err != nil {
		return nil, err
	}
	for _, r := range solar {
		e, err := buildSolarEclipse(ctx, p, r, year)
		if err != nil {
			continue
		}
		if e != nil {
			out = append(out, *e)
		}
	}

	lunar, err := scanEclipses(ctx, windowStart, windowEnd, func(jd ephemeris.JulianDay) (ephemeris.EclipseResult, error) {
		return p.NextLunarEclipse(ctx, jd)
	})
	if err != nil {
		return nil, err
	}
	for _, r := range lunar {
		e, err := buildLunarEclipse(ctx, p, r, year)
		if err != nil {
			continue
		}
		if e != nil {
			out = append(out, *e)
		}
	}

	span.SetAttributes(attribute.Int("eclipse_count", len(out)))
	return out, nil
}

// scanEclipses repeatedly calls next until its returned instant passes
// windowEnd, advancing eclipseAdvanceDays past each hit to avoid
// re-finding the same event.
func scanEclipses(ctx context.Context, start, end ephemeris.JulianDay, next func(ephemeris.JulianDay) (ephemeris.EclipseResult, error)) ([]ephemeris.EclipseResult, error) {
	var out []ephemeris.EclipseResult
	jd := start
	for jd < end {
		result, err := next(jd)
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			break
		}
		if result.JulianDay >= end {
			break
		}
		out = append(out, result)
		jd = result.JulianDay + eclipseAdvanceDays
	}
	return out, nil
}

func buildSolarEclipse(ctx context.Context, p Provider, r ephemeris.EclipseResult, year int) (*Eclipse, error) {
	ts := ephemeris.JulianDayToTime(r.JulianDay)
	if ts.Year() != year {
		return nil, nil
	}

	sun, err := p.Position(ctx, r.JulianDay, ephemeris.Sun, ephemeris.Geocentric)
	if err != nil {
		return nil, err
	}
	moon, err := p.Position(ctx, r.JulianDay, ephemeris.Moon, ephemeris.Geocentric)
	if err != nil {
		return nil, err
	}

	return &Eclipse{
		Timestamp:     ts,
		Year:          year,
		Kind:          classifySolarEclipse(r.ClassificationBits),
		SunLongitude:  sun.Longitude,
		MoonLongitude: moon.Longitude,
		ZodiacSign:    angle.SignIndex(sun.Longitude),
	}, nil
}

func buildLunarEclipse(ctx context.Context, p Provider, r ephemeris.EclipseResult, year int) (*Eclipse, error) {
	ts := ephemeris.JulianDayToTime(r.JulianDay)
	if ts.Year() != year {
		return nil, nil
	}

	sun, err := p.Position(ctx, r.JulianDay, ephemeris.Sun, ephemeris.Geocentric)
	if err != nil {
		return nil, err
	}
	moon, err := p.Position(ctx, r.JulianDay, ephemeris.Moon, ephemeris.Geocentric)
	if err != nil {
		return nil, err
	}

	return &Eclipse{
		Timestamp:     ts,
		Year:          year,
		Kind:          classifyLunarEclipse(r.ClassificationBits),
		SunLongitude:  sun.Longitude,
		MoonLongitude: moon.Longitude,
		ZodiacSign:    angle.SignIndex(moon.Longitude),
	}, nil
}

// classifySolarEclipse maps the backend bitmask to a storage kind. Unknown
// combinations default to the partial variant.
func classifySolarEclipse(bits uint32) EclipseKind {
	switch {
	case bits&eclTotal != 0:
		return SolarTotal
	case bits&eclAnnular != 0:
		return SolarAnnular
	case bits&eclAnnularTotal != 0:
		return SolarAnnular
	default:
		return SolarPartial
	}
}

// classifyLunarEclipse maps the backend bitmask to a storage kind. Unknown
// combinations default to the partial variant.
func classifyLunarEclipse(bits uint32) EclipseKind {
	switch {
	case bits&eclTotal != 0:
		return LunarTotal
	case bits&eclPenumbral != 0:
		return LunarPenumbral
	default:
		return LunarPartial
	}
}
