// Package events implements the five event detectors: aspects, lunar
// phases, inner-planet phases, eclipses, and solar turning points. Each
// detector shares the same shape — coarse scan across a year, sign-change
// or extremum bracket, fine refinement (via astronomy/rootfind in the
// inner-planet detector), canonical record, dedup key — and returns its findings as an in-memory tagged-union
// slice for the store to persist.
package events

import (
	"context"
	"time"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
)

// Provider is the slice of ephemeris.EphemerisProvider the detectors need.
// *ephemeris.Manager satisfies it, as does any single-tier provider, which
// keeps the detector tests independent of the three-tier fallback chain.
type Provider interface {
	Position(ctx context.Context, jd ephemeris.JulianDay, body ephemeris.BodyID, mode ephemeris.Mode) (ephemeris.Position, error)
	NextSolarEclipse(ctx context.Context, jd ephemeris.JulianDay) (ephemeris.EclipseResult, error)
	NextLunarEclipse(ctx context.Context, jd ephemeris.JulianDay) (ephemeris.EclipseResult, error)
	NextSunLongitudeCrossing(ctx context.Context, jd ephemeris.JulianDay, targetAngle float64) (ephemeris.JulianDay, error)
}

// LunarPhaseKind enumerates the four lunar phases.
type LunarPhaseKind string

const (
	NewMoon      LunarPhaseKind = "new_moon"
	FirstQuarter LunarPhaseKind = "first_quarter"
	FullMoon     LunarPhaseKind = "full_moon"
	LastQuarter  LunarPhaseKind = "last_quarter"
)

// PlanetPhaseKind enumerates the inner-planet phase events (Mercury, Venus only).
type PlanetPhaseKind string

const (
	SuperiorConjunction      PlanetPhaseKind = "superior_conjunction"
	InferiorConjunction      PlanetPhaseKind = "inferior_conjunction"
	GreatestEasternElongation PlanetPhaseKind = "greatest_eastern_elongation"
	GreatestWesternElongation PlanetPhaseKind = "greatest_western_elongation"
	StationaryDirect         PlanetPhaseKind = "stationary_direct"
	StationaryRetrograde     PlanetPhaseKind = "stationary_retrograde"
)

// EclipseKind enumerates the six eclipse classifications.
type EclipseKind string

const (
	SolarTotal     EclipseKind = "solar_total"
	SolarAnnular   EclipseKind = "solar_annular"
	SolarPartial   EclipseKind = "solar_partial"
	LunarTotal     EclipseKind = "lunar_total"
	LunarPartial   EclipseKind = "lunar_partial"
	LunarPenumbral EclipseKind = "lunar_penumbral"
)

// SolarEventKind enumerates the four solar turning points.
type SolarEventKind string

const (
	SpringEquinox  SolarEventKind = "spring_equinox"
	SummerSolstice SolarEventKind = "summer_solstice"
	FallEquinox    SolarEventKind = "fall_equinox"
	WinterSolstice SolarEventKind = "winter_solstice"
)

// Aspect is a detected angular relationship between two bodies, canonicalized
// so Body1 < Body2 per the pair-ordering fix (§9 of the event model).
type Aspect struct {
	Body1     ephemeris.BodyID
	Body2     ephemeris.BodyID
	Type      string
	IsMajor   bool
	Year      int
	Applying  *TimedPosition2
	Exact     TimedPosition2
	Separating *TimedPosition2
	LowPrecision bool
}

// TimedPosition2 pairs a timestamp with the two bodies' longitudes at that instant.
type TimedPosition2 struct {
	Timestamp time.Time
	Position1 float64
	Position2 float64
}

// LunarPhase is a detected new/first-quarter/full/last-quarter moment.
type LunarPhase struct {
	Timestamp     time.Time
	Year          int
	Kind          LunarPhaseKind
	MoonLongitude float64
	SunLongitude  float64
	ZodiacSign    int
	LowPrecision  bool
}

// PlanetPhase is a detected Mercury/Venus phase event.
type PlanetPhase struct {
	Body       ephemeris.BodyID
	Kind       PlanetPhaseKind
	Timestamp  time.Time
	Year       int
	Elongation *float64
	Position   float64
	ZodiacSign int
}

// Eclipse is a detected solar or lunar eclipse.
type Eclipse struct {
	Timestamp     time.Time
	Year          int
	Kind          EclipseKind
	SunLongitude  float64
	MoonLongitude float64
	ZodiacSign    int
}

// SolarEvent is a detected equinox or solstice.
type SolarEvent struct {
	Timestamp    time.Time
	Year         int
	Kind         SolarEventKind
	SunLongitude float64
	ZodiacSign   int
	LowPrecision bool
}

// Result bundles everything a single detector invocation produced.
type Result struct {
	Aspects      []Aspect
	LunarPhases  []LunarPhase
	PlanetPhases []PlanetPhase
	Eclipses     []Eclipse
	SolarEvents  []SolarEvent
}

// Count returns the total number of events across every kind in the result.
func (r Result) Count() int {
	return len(r.Aspects) + len(r.LunarPhases) + len(r.PlanetPhases) + len(r.Eclipses) + len(r.SolarEvents)
}
