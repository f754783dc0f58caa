package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mshafiee/jpleph"
	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// meanObliquityJ2000 is the mean obliquity of the ecliptic at the J2000.0
// epoch, used to rotate jpleph's equatorial J2000 rectangular state vectors
// into ecliptic longitude/latitude.
const meanObliquityJ2000 = 23.4392911 * math.Pi / 180

func jplTargetAndCenter(body BodyID, mode Mode) (jpleph.Planet, jpleph.CenterBody, error) {
	center := jpleph.CenterEarth
	if mode == Heliocentric {
		center = jpleph.CenterSun
	}
	switch body {
	case Sun:
		return jpleph.Sun, center, nil
	case Moon:
		return jpleph.Moon, center, nil
	case Mercury:
		return jpleph.Mercury, center, nil
	case Venus:
		return jpleph.Venus, center, nil
	case Mars:
		return jpleph.Mars, center, nil
	case Jupiter:
		return jpleph.Jupiter, center, nil
	case Saturn:
		return jpleph.Saturn, center, nil
	case Uranus:
		return jpleph.Uranus, center, nil
	case Neptune:
		return jpleph.Neptune, center, nil
	case Pluto:
		return jpleph.Pluto, center, nil
	default:
		return 0, 0, fmt.Errorf("jpl: unsupported body %d", body)
	}
}

// JPLProvider implements EphemerisProvider by reading JPL DE binary
// ephemeris files via github.com/mshafiee/jpleph. It has no eclipse or
// sun-longitude-crossing search of its own (the DE files give state
// vectors, not event tables), so those calls return ErrUnsupportedOperation
// and the Manager falls through to the next tier. The mean lunar node has
// no state vector in a DE file either; it is returned via the same
// closed-form mean-node formula the low-precision tier uses, since even
// Swiss Ephemeris computes it analytically rather than from a data file.
type JPLProvider struct {
	observer observability.ObserverInterface
	ephem    *jpleph.Ephemeris
	path     string
}

// NewJPLProvider opens a JPL DE ephemeris file at path. If the file cannot
// be opened, the provider is still constructed but IsAvailable returns
// false, so Manager skips it rather than failing the whole chain.
func NewJPLProvider(path string) *JPLProvider {
	p := &JPLProvider{observer: observability.Observer(), path: path}
	if path != "" {
		if ephem, err := jpleph.NewEphemeris(path, false); err == nil {
			p.ephem = ephem
		}
	}
	return p
}

// Position implements EphemerisProvider.
func (j *JPLProvider) Position(ctx context.Context, jd JulianDay, body BodyID, mode Mode) (Position, error) {
	_, span := j.observer.CreateSpan(ctx, "jpl.Position")
	defer span.End()

	if body == MeanNode {
		return meanLunarNodePosition(jd), nil
	}

	if j.ephem == nil {
		err := fmt.Errorf("jpl: no ephemeris file loaded")
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	target, center, err := jplTargetAndCenter(body, mode)
	if err != nil {
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	span.SetAttributes(
		attribute.Float64("julian_day", float64(jd)),
		attribute.Int("body", int(body)),
		attribute.Int("mode", int(mode)),
	)

	pos, vel, err := j.ephem.CalculatePV(float64(jd), target, center, true)
	if err != nil {
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	lon, lat, dist, speed := equatorialToEcliptic(pos.X, pos.Y, pos.Z, vel.DX, vel.DY, vel.DZ)
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		err := fmt.Errorf("jpl: non-finite longitude")
		span.RecordError(err)
		return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, err)
	}

	return Position{Longitude: lon, Latitude: lat, Distance: dist, Speed: speed}, nil
}

// equatorialToEcliptic rotates a J2000 equatorial rectangular state vector
// by the mean obliquity and returns ecliptic (longitude, latitude, distance,
// longitude speed in degrees/day).
func equatorialToEcliptic(x, y, z, vx, vy, vz float64) (lon, lat, dist, speed float64) {
	eps := meanObliquityJ2000
	cosE, sinE := math.Cos(eps), math.Sin(eps)

	xe := x
	ye := y*cosE + z*sinE
	ze := -y*sinE + z*cosE

	vxe := vx
	vye := vy*cosE + vz*sinE

	dist = math.Sqrt(xe*xe + ye*ye + ze*ze)
	lon = math.Atan2(ye, xe) * 180 / math.Pi
	if lon < 0 {
		lon += 360
	}
	lat = math.Atan2(ze, math.Sqrt(xe*xe+ye*ye)) * 180 / math.Pi

	r2 := xe*xe + ye*ye
	if r2 > 0 {
		speed = (xe*vye - ye*vxe) / r2 * 180 / math.Pi
	}
	return lon, lat, dist, speed
}

// meanLunarNodePosition returns the Moon's mean ascending node longitude
// using the standard J2000 mean-elements polynomial (the same formula
// Swiss Ephemeris and the low-precision tier use — no DE file encodes the
// node directly).
func meanLunarNodePosition(jd JulianDay) Position {
	t := (float64(jd) - 2451545.0) / 36525.0
	omega := 125.04452 - 1934.136261*t + 0.0020708*t*t + t*t*t/450000.0
	omega = math.Mod(omega, 360)
	if omega < 0 {
		omega += 360
	}
	return Position{Longitude: omega, Latitude: 0, Distance: 0, Speed: -1934.136261 / 36525.0}
}

// NextSolarEclipse is unsupported: JPL DE state vectors don't encode eclipse events.
func (j *JPLProvider) NextSolarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	return EclipseResult{}, ErrUnsupportedOperation
}

// NextLunarEclipse is unsupported: JPL DE state vectors don't encode eclipse events.
func (j *JPLProvider) NextLunarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	return EclipseResult{}, ErrUnsupportedOperation
}

// NextSunLongitudeCrossing is unsupported: no direct search in jpleph.
func (j *JPLProvider) NextSunLongitudeCrossing(ctx context.Context, jd JulianDay, targetAngle float64) (JulianDay, error) {
	return 0, ErrUnsupportedOperation
}

// JulianDayFromCalendar implements EphemerisProvider using the shared conversion helpers.
func (j *JPLProvider) JulianDayFromCalendar(year, month int, day int, hour float64) JulianDay {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return TimeToJulianDay(t) + JulianDay(hour/24.0)
}

// CalendarFromJulianDay implements EphemerisProvider using the shared conversion helpers.
func (j *JPLProvider) CalendarFromJulianDay(jd JulianDay) (year, month, day int, hour float64) {
	t := JulianDayToTime(jd)
	hour = float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	return t.Year(), int(t.Month()), t.Day(), hour
}

// SetEphemerisPath reopens the provider against a new data file.
func (j *JPLProvider) SetEphemerisPath(path string) {
	if j.ephem != nil {
		j.ephem.Close()
		j.ephem = nil
	}
	j.path = path
	if path != "" {
		if ephem, err := jpleph.NewEphemeris(path, false); err == nil {
			j.ephem = ephem
		}
	}
}

// IsAvailable implements EphemerisProvider.
func (j *JPLProvider) IsAvailable(ctx context.Context) bool {
	return j.ephem != nil
}

// GetDataRange implements EphemerisProvider.
func (j *JPLProvider) GetDataRange() (JulianDay, JulianDay) {
	if j.ephem == nil {
		return 0, 0
	}
	return JulianDay(j.ephem.GetEphemerisDouble(jpleph.EphemerisStartJD)), JulianDay(j.ephem.GetEphemerisDouble(jpleph.EphemerisEndJD))
}

// GetHealthStatus implements EphemerisProvider.
func (j *JPLProvider) GetHealthStatus(ctx context.Context) (*HealthStatus, error) {
	start, end := j.GetDataRange()
	return &HealthStatus{
		Available:   j.IsAvailable(ctx),
		LastCheck:   time.Now(),
		DataStartJD: float64(start),
		DataEndJD:   float64(end),
		Version:     j.GetVersion(),
		Source:      j.GetProviderName(),
	}, nil
}

// GetProviderName implements EphemerisProvider.
func (j *JPLProvider) GetProviderName() string { return "JPL DE" }

// GetVersion implements EphemerisProvider.
func (j *JPLProvider) GetVersion() string { return j.path }

// Close implements EphemerisProvider.
func (j *JPLProvider) Close() error {
	if j.ephem != nil {
		return j.ephem.Close()
	}
	return nil
}
