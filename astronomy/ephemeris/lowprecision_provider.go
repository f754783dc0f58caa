package ephemeris

import (
	"context"
	"math"
	"time"

	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// LowPrecisionProvider is the last-resort tier: closed-form mean-element
// formulas for the Sun and Moon, with no data file dependency at all. It
// carries forward the periodic-term lunar theory the teacher used for
// moonrise/moonset (astronomy/lunar.go's calculateLunarPositionJD) and adds
// the equivalent low-order solar terms, rather than relying on an external
// ephemeris being present. Every position it returns is tagged
// Position.LowPrecision. It has no eclipse search or planet coverage beyond
// Sun/Moon/MeanNode, since a mean-elements formula can't reproduce eclipse
// geometry or outer-planet perturbations to any useful accuracy.
type LowPrecisionProvider struct {
	observer observability.ObserverInterface
}

// NewLowPrecisionProvider creates the closed-form fallback provider.
func NewLowPrecisionProvider() *LowPrecisionProvider {
	return &LowPrecisionProvider{observer: observability.Observer()}
}

// Position implements EphemerisProvider for Sun, Moon, and MeanNode only.
func (l *LowPrecisionProvider) Position(ctx context.Context, jd JulianDay, body BodyID, mode Mode) (Position, error) {
	_, span := l.observer.CreateSpan(ctx, "lowprecision.Position")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("julian_day", float64(jd)),
		attribute.Int("body", int(body)),
	)

	switch body {
	case Sun:
		pos := lowPrecisionSunPosition(jd)
		if mode == Heliocentric {
			// The Sun's heliocentric position is, by definition, the origin.
			pos.Longitude, pos.Latitude, pos.Distance = 0, 0, 0
		}
		return pos, nil
	case Moon:
		return lowPrecisionMoonPosition(jd), nil
	case MeanNode:
		pos := meanLunarNodePosition(jd)
		pos.LowPrecision = true
		return pos, nil
	default:
		return Position{}, ErrUnsupportedOperation
	}
}

// lowPrecisionSunPosition computes the Sun's apparent geocentric ecliptic
// longitude using the standard low-precision solar theory: mean longitude
// plus equation-of-center correction from the Sun's mean anomaly.
func lowPrecisionSunPosition(jd JulianDay) Position {
	t := (float64(jd) - 2451545.0) / 36525.0

	// Sun's mean longitude (degrees).
	L0 := math.Mod(280.46646+36000.76983*t+0.0003032*t*t, 360.0)
	// Sun's mean anomaly (degrees).
	M := math.Mod(357.52911+35999.05029*t-0.0001537*t*t, 360.0)
	mRad := M * math.Pi / 180

	// Equation of center.
	c := (1.914602-0.004817*t-0.000014*t*t)*math.Sin(mRad) +
		(0.019993-0.000101*t)*math.Sin(2*mRad) +
		0.000289*math.Sin(3*mRad)

	lon := math.Mod(L0+c, 360.0)
	if lon < 0 {
		lon += 360
	}

	// Eccentricity and true anomaly give the Earth-Sun distance in AU.
	e := 0.016708634 - 0.000042037*t - 0.0000001267*t*t
	v := M + c
	dist := (1.000001018 * (1 - e*e)) / (1 + e*math.Cos(v*math.Pi/180))

	return Position{Longitude: lon, Latitude: 0, Distance: dist, Speed: 0.9856, LowPrecision: true}
}

// lowPrecisionMoonPosition reuses the dominant periodic terms of the
// ELP2000-derived lunar theory for ecliptic longitude, latitude, and
// distance (the same terms astronomy/lunar.go uses for moonrise/moonset).
func lowPrecisionMoonPosition(jd JulianDay) Position {
	t := (float64(jd) - 2451545.0) / 36525.0

	l := math.Mod(218.3164477+481267.88123421*t-0.0015786*t*t+t*t*t/538841.0-t*t*t*t/65194000.0, 360.0)
	d := math.Mod(297.8501921+445267.1114034*t-0.0018819*t*t+t*t*t/545868.0-t*t*t*t/113065000.0, 360.0)
	m := math.Mod(357.5291092+35999.0502909*t-0.0001536*t*t+t*t*t/24490000.0, 360.0)
	mPrime := math.Mod(134.9633964+477198.8675055*t+0.0087414*t*t+t*t*t/69699.0-t*t*t*t/14712000.0, 360.0)
	f := math.Mod(93.2720950+483202.0175233*t-0.0036539*t*t-t*t*t/3526000.0+t*t*t*t/863310000.0, 360.0)

	dRad := d * math.Pi / 180
	mRad := m * math.Pi / 180
	mPrimeRad := mPrime * math.Pi / 180
	fRad := f * math.Pi / 180

	lonCorrection := 6.288774*math.Sin(mPrimeRad) +
		1.274027*math.Sin(2*dRad-mPrimeRad) +
		0.658314*math.Sin(2*dRad) +
		0.213618*math.Sin(2*mPrimeRad) -
		0.185116*math.Sin(mRad) -
		0.114332*math.Sin(2*fRad)

	latCorrection := 5.128122*math.Sin(fRad) +
		0.280602*math.Sin(mPrimeRad+fRad) +
		0.277693*math.Sin(mPrimeRad-fRad) +
		0.173237*math.Sin(2*dRad-fRad)

	distCorrection := -20905.355*math.Cos(mPrimeRad) -
		3699.111*math.Cos(2*dRad-mPrimeRad) -
		2955.968*math.Cos(2*dRad)

	lon := math.Mod(l+lonCorrection, 360.0)
	if lon < 0 {
		lon += 360
	}
	distKM := 385000.56 + distCorrection

	return Position{
		Longitude:    lon,
		Latitude:     latCorrection,
		Distance:     distKM / 149597870.7, // km to AU
		Speed:        13.176396,            // mean lunar motion, degrees/day
		LowPrecision: true,
	}
}

// NextSolarEclipse is unsupported: no mean-elements eclipse geometry.
func (l *LowPrecisionProvider) NextSolarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	return EclipseResult{}, ErrUnsupportedOperation
}

// NextLunarEclipse is unsupported: no mean-elements eclipse geometry.
func (l *LowPrecisionProvider) NextLunarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	return EclipseResult{}, ErrUnsupportedOperation
}

// NextSunLongitudeCrossing scans forward from jd using the closed-form Sun
// formula, the same daily-step-plus-bisection approach the Swiss Ephemeris
// adapter uses, so ingress events (equinoxes, solstices, sign changes) still
// resolve even with no ephemeris data file present.
func (l *LowPrecisionProvider) NextSunLongitudeCrossing(ctx context.Context, jd JulianDay, targetAngle float64) (JulianDay, error) {
	f := func(t JulianDay) float64 {
		delta := lowPrecisionSunPosition(t).Longitude - targetAngle
		for delta > 180 {
			delta -= 360
		}
		for delta < -180 {
			delta += 360
		}
		return delta
	}

	const stepDays = 1.0
	const maxDays = 370.0
	prevT := jd
	prevV := f(prevT)

	for elapsed := 0.0; elapsed < maxDays; elapsed += stepDays {
		t := prevT + JulianDay(stepDays)
		v := f(t)
		if (prevV <= 0 && v >= 0) || (prevV >= 0 && v <= 0) {
			lo, hi := prevT, t
			loV := prevV
			for i := 0; i < 20 && float64(hi-lo) > 1e-4; i++ {
				mid := (lo + hi) / 2
				mv := f(mid)
				if (loV <= 0 && mv >= 0) || (loV >= 0 && mv <= 0) {
					hi = mid
				} else {
					lo = mid
					loV = mv
				}
			}
			return (lo + hi) / 2, nil
		}
		prevT, prevV = t, v
	}
	return 0, ErrUnsupportedOperation
}

// JulianDayFromCalendar implements EphemerisProvider using the shared conversion helpers.
func (l *LowPrecisionProvider) JulianDayFromCalendar(year, month int, day int, hour float64) JulianDay {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return TimeToJulianDay(t) + JulianDay(hour/24.0)
}

// CalendarFromJulianDay implements EphemerisProvider using the shared conversion helpers.
func (l *LowPrecisionProvider) CalendarFromJulianDay(jd JulianDay) (year, month, day int, hour float64) {
	t := JulianDayToTime(jd)
	hour = float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	return t.Year(), int(t.Month()), t.Day(), hour
}

// SetEphemerisPath is a no-op: this provider reads no data file.
func (l *LowPrecisionProvider) SetEphemerisPath(path string) {}

// IsAvailable always returns true: closed-form formulas need no external state.
func (l *LowPrecisionProvider) IsAvailable(ctx context.Context) bool { return true }

// GetDataRange returns an effectively unbounded range since the formulas are
// polynomial approximations valid (with degrading accuracy) over any epoch.
func (l *LowPrecisionProvider) GetDataRange() (JulianDay, JulianDay) {
	return JulianDay(-1931076.5), JulianDay(5373484.5) // about 10000 BCE .. 9999 CE
}

// GetHealthStatus implements EphemerisProvider.
func (l *LowPrecisionProvider) GetHealthStatus(ctx context.Context) (*HealthStatus, error) {
	start, end := l.GetDataRange()
	return &HealthStatus{
		Available:   true,
		LastCheck:   time.Now(),
		DataStartJD: float64(start),
		DataEndJD:   float64(end),
		Version:     l.GetVersion(),
		Source:      l.GetProviderName(),
	}, nil
}

// GetProviderName implements EphemerisProvider.
func (l *LowPrecisionProvider) GetProviderName() string { return "Low-Precision Closed-Form" }

// GetVersion implements EphemerisProvider.
func (l *LowPrecisionProvider) GetVersion() string { return "mean-elements-1" }

// Close implements EphemerisProvider.
func (l *LowPrecisionProvider) Close() error { return nil }
