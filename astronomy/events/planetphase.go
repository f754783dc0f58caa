package events

import (
	"context"
	"errors"
	"time"

	"github.com/naren-m/astroevents/astronomy/angle"
	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/astronomy/rootfind"
	"github.com/naren-m/astroevents/coreerr"
	"github.com/naren-m/astroevents/log"
	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// innerPlanets are the only bodies this detector runs over: Mercury and
// Venus are the sole planets whose phases (station, conjunction, greatest
// elongation) are visible from Earth within a human timescale.
var innerPlanets = []ephemeris.BodyID{ephemeris.Mercury, ephemeris.Venus}

const stationDebounceDays = 10.0

// DetectPlanetPhases scans Mercury and Venus daily through the year,
// detecting stations (speed sign change), conjunctions (elongation near
// zero), and greatest elongations (elongation local maximum).
func DetectPlanetPhases(ctx context.Context, p Provider, year int) ([]PlanetPhase, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "events.DetectPlanetPhases")
	defer span.End()

	var out []PlanetPhase
	for _, body := range innerPlanets {
		events, err := detectPlanetPhasesForBody(ctx, p, body, year)
		if err != nil {
			return nil, err
		}
		out = append(out, events...)
	}

	span.SetAttributes(attribute.Int("planet_phase_count", len(out)))
	return out, nil
}

type dailySample struct {
	jd         ephemeris.JulianDay
	position   ephemeris.Position
	sunLon     float64
	elongation float64 // |position - sun| mapped to [0, 180]
}

func detectPlanetPhasesForBody(ctx context.Context, p Provider, body ephemeris.BodyID, year int) ([]PlanetPhase, error) {
	start := ephemeris.TimeToJulianDay(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	end := ephemeris.TimeToJulianDay(time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC))

	var out []PlanetPhase
	var prev, prevPrev *dailySample
	lastEventDay := start - 1000

	sample := func(jd ephemeris.JulianDay) (*dailySample, error) {
		pos, err := p.Position(ctx, jd, body, ephemeris.Geocentric)
		if err != nil {
			return nil, err
		}
		sun, err := p.Position(ctx, jd, ephemeris.Sun, ephemeris.Geocentric)
		if err != nil {
			return nil, err
		}
		elong := angle.ShortestArc(pos.Longitude, sun.Longitude)
		return &dailySample{jd: jd, position: pos, sunLon: sun.Longitude, elongation: elong}, nil
	}

	for jd := start; jd < end; jd += 1.0 {
		cur, err := sample(jd)
		if err != nil {
			return nil, err
		}

		if prev != nil {
			debounced := float64(jd-ephemeris.JulianDay(lastEventDay)) < stationDebounceDays

			if !debounced && prev.position.Speed >= 0 && cur.position.Speed < 0 {
				exactJD, err := rootfind.Bisect(ctx, speedFunc(ctx, p, body), float64(prev.jd), float64(jd), 1e-4, 20)
				if x, ok := resolveStationBisect(ctx, "stationary_retrograde", body, exactJD, err); ok {
					out = append(out, stationEvent(ephemeris.JulianDay(x), body, StationaryRetrograde, p, ctx))
					lastEventDay = x
				}
			} else if !debounced && prev.position.Speed < 0 && cur.position.Speed >= 0 {
				exactJD, err := rootfind.Bisect(ctx, speedFunc(ctx, p, body), float64(prev.jd), float64(jd), 1e-4, 20)
				if x, ok := resolveStationBisect(ctx, "stationary_direct", body, exactJD, err); ok {
					out = append(out, stationEvent(ephemeris.JulianDay(x), body, StationaryDirect, p, ctx))
					lastEventDay = x
				}
			}

			nearConjunction := cur.elongation < 1.0
			prevNearConjunction := prev.elongation < 1.0
			if !debounced && nearConjunction && !prevNearConjunction {
				inferior, err := isInferiorConjunction(ctx, p, jd, body)
				if err == nil {
					kind := SuperiorConjunction
					if inferior {
						kind = InferiorConjunction
					}
					ts := ephemeris.JulianDayToTime(jd)
					out = append(out, PlanetPhase{
						Body: body, Kind: kind, Timestamp: ts, Year: ts.Year(),
						Position: cur.position.Longitude, ZodiacSign: angle.SignIndex(cur.position.Longitude),
					})
					lastEventDay = float64(jd)
				}
			}

			if prevPrev != nil {
				isLocalMax := prev.elongation > prevPrev.elongation && prev.elongation > cur.elongation
				debouncedAtPrev := float64(prev.jd-ephemeris.JulianDay(lastEventDay)) < stationDebounceDays
				if isLocalMax && !debouncedAtPrev {
					exactJD, err := rootfind.GoldenSectionMax(ctx, elongationFunc(ctx, p, body), float64(prevPrev.jd), float64(jd), 0.01, 10)
					if err == nil {
						evt, err := greatestElongationEvent(ctx, p, body, ephemeris.JulianDay(exactJD))
						if err == nil {
							out = append(out, evt)
							lastEventDay = exactJD
						}
					}
				}
			}
		}

		prevPrev, prev = prev, cur
	}

	return out, nil
}

// resolveStationBisect interprets a station bisection's result: a clean
// root is used as-is, a diverged bisection still uses its best-estimate
// midpoint but logs a warning (§7 RootFindDiverged), and any other error
// (an ephemeris evaluation failure) drops the event entirely.
func resolveStationBisect(ctx context.Context, kind string, body ephemeris.BodyID, x float64, err error) (float64, bool) {
	switch {
	case err == nil:
		return x, true
	case errors.Is(err, rootfind.ErrDiverged):
		wrapped := coreerr.New(coreerr.RootFindDiverged, "events.detectPlanetPhasesForBody", err)
		log.Logger().WarnContext(ctx, "station bisection diverged, using best estimate",
			"body", int(body), "kind", kind, "error", wrapped)
		return x, true
	default:
		return 0, false
	}
}

func speedFunc(ctx context.Context, p Provider, body ephemeris.BodyID) rootfind.Func {
	return func(_ context.Context, x float64) (float64, error) {
		pos, err := p.Position(ctx, ephemeris.JulianDay(x), body, ephemeris.Geocentric)
		if err != nil {
			return 0, err
		}
		return pos.Speed, nil
	}
}

func elongationFunc(ctx context.Context, p Provider, body ephemeris.BodyID) rootfind.Func {
	return func(_ context.Context, x float64) (float64, error) {
		pos, err := p.Position(ctx, ephemeris.JulianDay(x), body, ephemeris.Geocentric)
		if err != nil {
			return 0, err
		}
		sun, err := p.Position(ctx, ephemeris.JulianDay(x), ephemeris.Sun, ephemeris.Geocentric)
		if err != nil {
			return 0, err
		}
		return angle.ShortestArc(pos.Longitude, sun.Longitude), nil
	}
}

func stationEvent(jd ephemeris.JulianDay, body ephemeris.BodyID, kind PlanetPhaseKind, p Provider, ctx context.Context) PlanetPhase {
	pos, _ := p.Position(ctx, jd, body, ephemeris.Geocentric)
	ts := ephemeris.JulianDayToTime(jd)
	return PlanetPhase{
		Body: body, Kind: kind, Timestamp: ts, Year: ts.Year(),
		Position: pos.Longitude, ZodiacSign: angle.SignIndex(pos.Longitude),
	}
}

func greatestElongationEvent(ctx context.Context, p Provider, body ephemeris.BodyID, jd ephemeris.JulianDay) (PlanetPhase, error) {
	pos, err := p.Position(ctx, jd, body, ephemeris.Geocentric)
	if err != nil {
		return PlanetPhase{}, err
	}
	sun, err := p.Position(ctx, jd, ephemeris.Sun, ephemeris.Geocentric)
	if err != nil {
		return PlanetPhase{}, err
	}

	elongation := angle.ShortestArc(pos.Longitude, sun.Longitude)
	kind := GreatestWesternElongation
	if isEasternElongation(pos.Longitude, sun.Longitude) {
		kind = GreatestEasternElongation
	}

	ts := ephemeris.JulianDayToTime(jd)
	return PlanetPhase{
		Body: body, Kind: kind, Timestamp: ts, Year: ts.Year(),
		Elongation: &elongation, Position: pos.Longitude, ZodiacSign: angle.SignIndex(pos.Longitude),
	}, nil
}

// isEasternElongation reports whether a planet is in the evening sky: its
// longitude leads the Sun's by at most half a circle.
func isEasternElongation(planetLon, sunLon float64) bool {
	diff := angle.Normalize(planetLon - sunLon)
	return diff >= 0 && diff <= 180
}

// isInferiorConjunction distinguishes superior from inferior conjunction by
// comparing the planet's geocentric and heliocentric longitudes: a large
// divergence means the planet sits between Earth and Sun.
func isInferiorConjunction(ctx context.Context, p Provider, jd ephemeris.JulianDay, body ephemeris.BodyID) (bool, error) {
	geo, err := p.Position(ctx, jd, body, ephemeris.Geocentric)
	if err != nil {
		return false, err
	}
	helio, err := p.Position(ctx, jd, body, ephemeris.Heliocentric)
	if err != nil {
		return false, err
	}
	diff := angle.ShortestArc(geo.Longitude, helio.Longitude)
	return diff > 90, nil
}
