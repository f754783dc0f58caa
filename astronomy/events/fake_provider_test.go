package events

import (
	"context"
	"math"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
)

// fakeProvider computes deterministic closed-form positions for tests,
// independent of any real ephemeris backend. Speeds are fixed constants:
// the Sun's and Moon's equal their longitude rates, while Mercury's and the
// other bodies' are set independently of the longitude formulas below.
type fakeProvider struct {
	// retrogradeWindow, if non-zero width, makes Mercury's speed negative
	// while jd falls inside [retrogradeStart, retrogradeStart+retrogradeWindow].
	retrogradeStart  ephemeris.JulianDay
	retrogradeWindow float64
}

func (f *fakeProvider) Position(ctx context.Context, jd ephemeris.JulianDay, body ephemeris.BodyID, mode ephemeris.Mode) (ephemeris.Position, error) {
	t := float64(jd)

	switch body {
	case ephemeris.Sun:
		lon := math.Mod(t*0.9856, 360)
		return ephemeris.Position{Longitude: normalizePositive(lon), Speed: 0.9856}, nil
	case ephemeris.Moon:
		lon := math.Mod(t*13.176, 360)
		return ephemeris.Position{Longitude: normalizePositive(lon), Speed: 13.176}, nil
	case ephemeris.Mercury:
		speed := 1.5
		if f.retrogradeWindow > 0 {
			delta := t - float64(f.retrogradeStart)
			if delta >= 0 && delta <= f.retrogradeWindow {
				speed = -1.0
			}
		}
		lon := math.Mod(t*1.0+10, 360)
		if mode == ephemeris.Heliocentric {
			lon = math.Mod(t*4.09, 360)
		}
		return ephemeris.Position{Longitude: normalizePositive(lon), Speed: speed}, nil
	default:
		lon := math.Mod(t*0.1*float64(body), 360)
		return ephemeris.Position{Longitude: normalizePositive(lon), Speed: 0.1}, nil
	}
}

func normalizePositive(lon float64) float64 {
	if lon < 0 {
		lon += 360
	}
	return lon
}

func (f *fakeProvider) NextSolarEclipse(ctx context.Context, jd ephemeris.JulianDay) (ephemeris.EclipseResult, error) {
	return ephemeris.EclipseResult{JulianDay: jd + 180, ClassificationBits: eclTotal}, nil
}

func (f *fakeProvider) NextLunarEclipse(ctx context.Context, jd ephemeris.JulianDay) (ephemeris.EclipseResult, error) {
	return ephemeris.EclipseResult{JulianDay: jd + 90, ClassificationBits: eclPenumbral}, nil
}

func (f *fakeProvider) NextSunLongitudeCrossing(ctx context.Context, jd ephemeris.JulianDay, targetAngle float64) (ephemeris.JulianDay, error) {
	current := math.Mod(float64(jd)*0.9856, 360)
	if current < 0 {
		current += 360
	}
	delta := targetAngle - current
	for delta < 0 {
		delta += 360
	}
	return jd + ephemeris.JulianDay(delta/0.9856), nil
}
