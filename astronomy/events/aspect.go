package events

import (
	"context"
	"fmt"
	"time"

	"github.com/naren-m/astroevents/astronomy/angle"
	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// AspectConfig fixes the two knobs the source reads via reflection-style
// attribute lookup as compile-time settings, per the spec's resolution of
// that open question.
type AspectConfig struct {
	IncludeMinor bool
	MinStrength  float64
}

// DefaultAspectConfig matches the source's defaults (include_minor=True,
// min_strength=50).
func DefaultAspectConfig() AspectConfig {
	return AspectConfig{IncludeMinor: true, MinStrength: 50}
}

type aspectAccumulator struct {
	firstSeen            time.Time
	firstPos1, firstPos2 float64
	exactTime            time.Time
	exactOrb             float64
	exactPos1, exactPos2 float64
	lastSeen             time.Time
	lastPos1, lastPos2   float64
}

// DetectAspects scans the given year at 6-hour intervals over every
// unordered pair of the 11 tracked bodies, aggregating contacts within a
// (pair, aspect, month) bucket into one applying/exact/separating triple.
func DetectAspects(ctx context.Context, p Provider, year int, cfg AspectConfig) ([]Aspect, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "events.DetectAspects")
	defer span.End()

	start := ephemeris.TimeToJulianDay(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	end := ephemeris.TimeToJulianDay(time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC))

	aspectTypes := angle.AllAspects

	processed := make(map[string]*aspectAccumulator)
	checkedToday := make(map[string]bool)
	lowPrecision := false
	currentMonth := 0

	const stepDays = 0.25 // 6 hours

	for jd := start; jd < end; jd += ephemeris.JulianDay(stepDays) {
		t := ephemeris.JulianDayToTime(jd)
		if t.Day() == 1 && t.Hour() < 6 {
			checkedToday = make(map[string]bool)
		}
		if t.Month() != time.Month(currentMonth) {
			currentMonth = int(t.Month())
		}

		positions := make(map[ephemeris.BodyID]ephemeris.Position, len(ephemeris.AllBodies))
		for _, b := range ephemeris.AllBodies {
			pos, err := p.Position(ctx, jd, b, ephemeris.Geocentric)
			if err != nil {
				return nil, fmt.Errorf("events: aspect scan at jd %.4f: %w", float64(jd), err)
			}
			if pos.LowPrecision {
				lowPrecision = true
			}
			positions[b] = pos
		}

		for i := 0; i < len(ephemeris.AllBodies); i++ {
			for j := i + 1; j < len(ephemeris.AllBodies); j++ {
				b1, b2 := ephemeris.AllBodies[i], ephemeris.AllBodies[j]
				pos1, pos2 := positions[b1], positions[b2]

				for _, at := range aspectTypes {
					if !cfg.IncludeMinor && !angle.IsMajor(at) {
						continue
					}

					dayKey := fmt.Sprintf("%d-%02d-%02d:%d:%d:%d", t.Year(), t.Month(), t.Day(), b1, b2, at)
					if checkedToday[dayKey] {
						continue
					}
					checkedToday[dayKey] = true

					orb, within := angle.AspectOrb(pos1.Longitude, pos2.Longitude, at)
					if !within || angle.Strength(orb, at) < cfg.MinStrength {
						continue
					}

					bucketKey := fmt.Sprintf("%d:%d:%d:%d:%d", b1, b2, at, year, t.Month())
					acc, ok := processed[bucketKey]
					if !ok {
						acc = &aspectAccumulator{
							firstSeen: t, firstPos1: pos1.Longitude, firstPos2: pos2.Longitude,
							exactTime: t, exactOrb: orb, exactPos1: pos1.Longitude, exactPos2: pos2.Longitude,
							lastSeen: t, lastPos1: pos1.Longitude, lastPos2: pos2.Longitude,
						}
						processed[bucketKey] = acc
						continue
					}
					if orb < acc.exactOrb {
						acc.exactTime, acc.exactOrb = t, orb
						acc.exactPos1, acc.exactPos2 = pos1.Longitude, pos2.Longitude
					}
					acc.lastSeen, acc.lastPos1, acc.lastPos2 = t, pos1.Longitude, pos2.Longitude
				}
			}
		}
	}

	var out []Aspect
	for key, acc := range processed {
		var b1, b2 int
		var atInt, y, m int
		if _, err := fmt.Sscanf(key, "%d:%d:%d:%d:%d", &b1, &b2, &atInt, &y, &m); err != nil {
			continue
		}
		at := angle.Aspect(atInt)

		a := Aspect{
			Body1:   ephemeris.BodyID(b1),
			Body2:   ephemeris.BodyID(b2),
			Type:    at.String(),
			IsMajor: angle.IsMajor(at),
			Year:    year,
			Exact: TimedPosition2{
				Timestamp: acc.exactTime, Position1: acc.exactPos1, Position2: acc.exactPos2,
			},
			Applying: &TimedPosition2{
				Timestamp: acc.firstSeen, Position1: acc.firstPos1, Position2: acc.firstPos2,
			},
			Separating: &TimedPosition2{
				Timestamp: acc.lastSeen, Position1: acc.lastPos1, Position2: acc.lastPos2,
			},
			LowPrecision: lowPrecision,
		}
		out = append(out, a)
	}

	span.SetAttributes(attribute.Int("aspect_count", len(out)))
	return out, nil
}
