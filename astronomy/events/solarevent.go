package events

import (
	"context"
	"time"

	"github.com/naren-m/astroevents/astronomy/angle"
	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

var solarEventTargets = []struct {
	deg  float64
	kind SolarEventKind
}{
	{0, SpringEquinox},
	{90, SummerSolstice},
	{180, FallEquinox},
	{270, WinterSolstice},
}

// DetectSolarEvents finds the year's four equinox/solstice instants by
// chaining the ephemeris's sun-longitude-crossing search starting from the
// prior winter solstice candidate, falling back to fixed calendar dates
// (tagged low_precision) if the search is unavailable.
func DetectSolarEvents(ctx context.Context, p Provider, year int) ([]SolarEvent, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "events.DetectSolarEvents")
	defer span.End()

	jd := ephemeris.TimeToJulianDay(time.Date(year-1, 12, 20, 0, 0, 0, 0, time.UTC))

	var out []SolarEvent
	for _, target := range solarEventTargets {
		crossingJD, err := p.NextSunLongitudeCrossing(ctx, jd, target.deg)
		if err != nil {
			span.SetAttributes(attribute.Bool("fallback", true))
			return solarEventsFallback(year), nil
		}

		sun, err := p.Position(ctx, crossingJD, ephemeris.Sun, ephemeris.Geocentric)
		if err != nil {
			span.SetAttributes(attribute.Bool("fallback", true))
			return solarEventsFallback(year), nil
		}

		ts := ephemeris.JulianDayToTime(crossingJD)
		out = append(out, SolarEvent{
			Timestamp:    ts,
			Year:         ts.Year(),
			Kind:         target.kind,
			SunLongitude: sun.Longitude,
			ZodiacSign:   angle.SignIndex(sun.Longitude),
			LowPrecision: sun.LowPrecision,
		})
		jd = crossingJD
	}

	span.SetAttributes(attribute.Int("solar_event_count", len(out)))
	return out, nil
}

// solarEventsFallback approximates the four turning points with fixed
// calendar dates, used when no provider in the chain supports a direct
// longitude-crossing search.
func solarEventsFallback(year int) []SolarEvent {
	fixed := []struct {
		month, day int
		deg        float64
		kind       SolarEventKind
	}{
		{3, 20, 0, SpringEquinox},
		{6, 21, 90, SummerSolstice},
		{9, 22, 180, FallEquinox},
		{12, 21, 270, WinterSolstice},
	}

	out := make([]SolarEvent, 0, len(fixed))
	for _, f := range fixed {
		ts := time.Date(year, time.Month(f.month), f.day, 12, 0, 0, 0, time.UTC)
		out = append(out, SolarEvent{
			Timestamp:    ts,
			Year:         year,
			Kind:         f.kind,
			SunLongitude: f.deg,
			ZodiacSign:   angle.SignIndex(f.deg),
			LowPrecision: true,
		})
	}
	return out
}
