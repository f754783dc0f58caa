package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/naren-m/astroevents/observability"
	swisseph "github.com/tejzpr/go-swisseph"
	"go.opentelemetry.io/otel/attribute"
)

// swissBody maps a BodyID to the Swiss Ephemeris planet constant.
func swissBody(b BodyID) (int32, error) {
	switch b {
	case Sun:
		return swisseph.Sun, nil
	case Moon:
		return swisseph.Moon, nil
	case Mercury:
		return swisseph.Mercury, nil
	case Venus:
		return swisseph.Venus, nil
	case Mars:
		return swisseph.Mars, nil
	case Jupiter:
		return swisseph.Jupiter, nil
	case Saturn:
		return swisseph.Saturn, nil
	case Uranus:
		return swisseph.Uranus, nil
	case Neptune:
		return swisseph.Neptune, nil
	case Pluto:
		return swisseph.Pluto, nil
	case MeanNode:
		return swisseph.MeanNode, nil
	default:
		return 0, fmt.Errorf("swiss: unknown body %d", b)
	}
}

// SwissProvider implements EphemerisProvider against the real Swiss
// Ephemeris C library via github.com/tejzpr/go-swisseph.
type SwissProvider struct {
	observer    observability.ObserverInterface
	dataStartJD JulianDay
	dataEndJD   JulianDay
}

// NewSwissProvider creates a Swiss Ephemeris provider. path, if non-empty,
// is the ephemeris data-file directory (§6 "Ephemeris data-file path
// configuration via a setter").
func NewSwissProvider(path string) *SwissProvider {
	p := &SwissProvider{
		observer:    observability.Observer(),
		dataStartJD: JulianDay(-3027215.5), // 13201 BCE
		dataEndJD:   JulianDay(7857061.5),  // 17191 CE
	}
	if path != "" {
		swisseph.SetEphePath(path)
	}
	return p
}

// Position implements EphemerisProvider.
func (s *SwissProvider) Position(ctx context.Context, jd JulianDay, body BodyID, mode Mode) (Position, error) {
	_, span := s.observer.CreateSpan(ctx, "swiss.Position")
	defer span.End()

	planet, err := swissBody(body)
	if err != nil {
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	flags := int32(swisseph.FlagSwieph | swisseph.FlagSpeed)
	if mode == Heliocentric {
		flags |= swisseph.FlagHelctr
	}

	span.SetAttributes(
		attribute.Float64("julian_day", float64(jd)),
		attribute.Int("body", int(body)),
		attribute.Int("mode", int(mode)),
	)

	result := swisseph.CalcUT(float64(jd), planet, flags)
	if result.Flag < 0 || result.Error != "" {
		err := fmt.Errorf("swe_calc_ut failed: %s", result.Error)
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}
	if len(result.Data) < 4 {
		err := fmt.Errorf("swe_calc_ut returned %d values, want >= 4", len(result.Data))
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	lon, lat, dist, speed := result.Data[0], result.Data[1], result.Data[2], result.Data[3]
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		err := fmt.Errorf("swe_calc_ut returned non-finite longitude")
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}

	return Position{Longitude: lon, Latitude: lat, Distance: dist, Speed: speed}, nil
}

// NextSolarEclipse implements EphemerisProvider using swe_sol_eclipse_when_glob.
func (s *SwissProvider) NextSolarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	_, span := s.observer.CreateSpan(ctx, "swiss.NextSolarEclipse")
	defer span.End()

	result := swisseph.SolEclipseWhenGlob(float64(jd), swisseph.FlagSwieph, swisseph.EclAlltypesSolar, false)
	if result.Flag < 0 {
		err := fmt.Errorf("swe_sol_eclipse_when_glob failed: %s", result.Error)
		span.RecordError(err)
		return EclipseResult{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	return EclipseResult{JulianDay: JulianDay(result.Maximum), ClassificationBits: uint32(result.Flag)}, nil
}

// NextLunarEclipse implements EphemerisProvider using swe_lun_eclipse_when.
func (s *SwissProvider) NextLunarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	_, span := s.observer.CreateSpan(ctx, "swiss.NextLunarEclipse")
	defer span.End()

	result := swisseph.LunEclipseWhen(float64(jd), swisseph.FlagSwieph, swisseph.EclAlltypesLunar, false)
	if result.Flag < 0 {
		err := fmt.Errorf("swe_lun_eclipse_when failed: %s", result.Error)
		span.RecordError(err)
		return EclipseResult{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	return EclipseResult{JulianDay: JulianDay(result.Maximum), ClassificationBits: uint32(result.Flag)}, nil
}

// NextSunLongitudeCrossing scans forward in 1-day steps from jd looking for
// a sign change in (sun_longitude - target), then bisects to refine. Swiss
// Ephemeris has no single call for this, so the adapter composes Position
// with the same bisection discipline the rootfind package uses elsewhere.
func (s *SwissProvider) NextSunLongitudeCrossing(ctx context.Context, jd JulianDay, targetAngle float64) (JulianDay, error) {
	_, span := s.observer.CreateSpan(ctx, "swiss.NextSunLongitudeCrossing")
	defer span.End()

	f := func(t JulianDay) (float64, error) {
		pos, err := s.Position(ctx, t, Sun, Geocentric)
		if err != nil {
			return 0, err
		}
		delta := pos.Longitude - targetAngle
		for delta > 180 {
			delta -= 360
		}
		for delta < -180 {
			delta += 360
		}
		return delta, nil
	}

	const stepDays = 1.0
	const maxDays = 370.0
	prevT := jd
	prevV, err := f(prevT)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	for elapsed := 0.0; elapsed < maxDays; elapsed += stepDays {
		t := prevT + JulianDay(stepDays)
		v, err := f(t)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
		}
		if (prevV <= 0 && v >= 0) || (prevV >= 0 && v <= 0) {
			lo, hi := prevT, t
			loV := prevV
			for i := 0; i < 20 && float64(hi-lo) > 1e-4; i++ {
				mid := (lo + hi) / 2
				mv, err := f(mid)
				if err != nil {
					return mid, nil
				}
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

// JulianDayFromCalendar implements EphemerisProvider using swe_julday.
func (s *SwissProvider) JulianDayFromCalendar(year, month int, day int, hour float64) JulianDay {
	return JulianDay(swisseph.Julday(int32(year), int32(month), int32(day), hour, swisseph.GregCal))
}

// CalendarFromJulianDay implements EphemerisProvider using swe_revjul.
func (s *SwissProvider) CalendarFromJulianDay(jd JulianDay) (year, month, day int, hour float64) {
	d := swisseph.Revjul(float64(jd), swisseph.GregCal)
	return d.Year, d.Month, d.Day, d.Hour
}

// SetEphemerisPath implements EphemerisProvider.
func (s *SwissProvider) SetEphemerisPath(path string) {
	swisseph.SetEphePath(path)
}

// IsAvailable implements EphemerisProvider.
func (s *SwissProvider) IsAvailable(ctx context.Context) bool {
	_, err := s.Position(ctx, TimeToJulianDay(time.Now()), Sun, Geocentric)
	return err == nil
}

// GetDataRange implements EphemerisProvider.
func (s *SwissProvider) GetDataRange() (JulianDay, JulianDay) {
	return s.dataStartJD, s.dataEndJD
}

// GetHealthStatus implements EphemerisProvider.
func (s *SwissProvider) GetHealthStatus(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	available := s.IsAvailable(ctx)
	return &HealthStatus{
		Available:    available,
		LastCheck:    time.Now(),
		DataStartJD:  float64(s.dataStartJD),
		DataEndJD:    float64(s.dataEndJD),
		ResponseTime: time.Since(start),
		Version:      s.GetVersion(),
		Source:       s.GetProviderName(),
	}, nil
}

// GetProviderName implements EphemerisProvider.
func (s *SwissProvider) GetProviderName() string { return "Swiss Ephemeris" }

// GetVersion implements EphemerisProvider.
func (s *SwissProvider) GetVersion() string { return swisseph.Version() }

// Close implements EphemerisProvider. Swiss Ephemeris keeps process-wide
// state (§9 "Global ephemeris-state workaround"); Close releases it.
func (s *SwissProvider) Close() error {
	swisseph.Close()
	return nil
}
