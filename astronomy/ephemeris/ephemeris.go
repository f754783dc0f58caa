package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/naren-m/astroevents/observability"
	"go.opentelemetry.io/otel/attribute"
)

// JulianDay represents a Julian day number (UT).
type JulianDay float64

// BodyID identifies a celestial body understood by the ephemeris adapter.
type BodyID int

const (
	Sun BodyID = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	MeanNode
)

// BodyName returns the display name of a body, matching the celestial_bodies catalog.
func BodyName(b BodyID) string {
	switch b {
	case Sun:
		return "Sun"
	case Moon:
		return "Moon"
	case Mercury:
		return "Mercury"
	case Venus:
		return "Venus"
	case Mars:
		return "Mars"
	case Jupiter:
		return "Jupiter"
	case Saturn:
		return "Saturn"
	case Uranus:
		return "Uranus"
	case Neptune:
		return "Neptune"
	case Pluto:
		return "Pluto"
	case MeanNode:
		return "Mean Node"
	default:
		return "Unknown"
	}
}

// Mode selects the reference frame for a position query.
type Mode int

const (
	// Geocentric is the default apparent-position frame.
	Geocentric Mode = iota
	// Heliocentric is used by the inner-planet-phase detector to distinguish
	// superior from inferior conjunctions.
	Heliocentric
)

// Position represents a celestial body's position at a given instant.
type Position struct {
	Longitude float64 `json:"longitude"` // Ecliptic longitude in degrees, normalized to [0, 360)
	Latitude  float64 `json:"latitude"`  // Ecliptic latitude in degrees
	Distance  float64 `json:"distance"`  // Distance in AU
	Speed     float64 `json:"speed"`     // Longitudinal speed in degrees/day

	// LowPrecision marks a position computed from closed-form fallback
	// formulas rather than the primary or secondary ephemeris backend.
	LowPrecision bool `json:"low_precision,omitempty"`
}

// PlanetaryPositions holds positions for every body the detectors reference,
// for a single Julian day and mode.
type PlanetaryPositions struct {
	JulianDay JulianDay `json:"julian_day"`
	Mode      Mode      `json:"mode"`
	Sun       Position  `json:"sun"`
	Moon      Position  `json:"moon"`
	Mercury   Position  `json:"mercury"`
	Venus     Position  `json:"venus"`
	Mars      Position  `json:"mars"`
	Jupiter   Position  `json:"jupiter"`
	Saturn    Position  `json:"saturn"`
	Uranus    Position  `json:"uranus"`
	Neptune   Position  `json:"neptune"`
	Pluto     Position  `json:"pluto"`
	MeanNode  Position  `json:"mean_node"`
}

// Get returns the position of a single body from a fully-populated snapshot.
func (p *PlanetaryPositions) Get(b BodyID) Position {
	switch b {
	case Sun:
		return p.Sun
	case Moon:
		return p.Moon
	case Mercury:
		return p.Mercury
	case Venus:
		return p.Venus
	case Mars:
		return p.Mars
	case Jupiter:
		return p.Jupiter
	case Saturn:
		return p.Saturn
	case Uranus:
		return p.Uranus
	case Neptune:
		return p.Neptune
	case Pluto:
		return p.Pluto
	case MeanNode:
		return p.MeanNode
	default:
		return Position{}
	}
}

func (p *PlanetaryPositions) set(b BodyID, pos Position) {
	switch b {
	case Sun:
		p.Sun = pos
	case Moon:
		p.Moon = pos
	case Mercury:
		p.Mercury = pos
	case Venus:
		p.Venus = pos
	case Mars:
		p.Mars = pos
	case Jupiter:
		p.Jupiter = pos
	case Saturn:
		p.Saturn = pos
	case Uranus:
		p.Uranus = pos
	case Neptune:
		p.Neptune = pos
	case Pluto:
		p.Pluto = pos
	case MeanNode:
		p.MeanNode = pos
	}
}

// AllBodies enumerates the bodies the aspect detector scans over, in catalog order.
var AllBodies = []BodyID{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto, MeanNode}

// EclipseResult is the raw result of an eclipse search: the instant of
// greatest eclipse and the backend's classification bitmask. The eclipse
// detector is responsible for mapping the bitmask to a storage EclipseKind.
type EclipseResult struct {
	JulianDay          JulianDay
	ClassificationBits uint32
}

// HealthStatus represents the health status of an ephemeris provider.
type HealthStatus struct {
	Available    bool          `json:"available"`
	LastCheck    time.Time     `json:"last_check"`
	DataStartJD  float64       `json:"data_start_jd"`
	DataEndJD    float64       `json:"data_end_jd"`
	ResponseTime time.Duration `json:"response_time"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Version      string        `json:"version,omitempty"`
	Source       string        `json:"source,omitempty"`
}

// ErrEphemerisUnavailable is returned by a provider when a specific JD/body
// cannot be computed (non-finite result, backend error flag, out of range).
var ErrEphemerisUnavailable = errors.New("ephemeris: position unavailable")

// ErrUnsupportedOperation is returned by providers that cannot perform an
// operation at all (e.g. the low-precision fallback has no eclipse search).
var ErrUnsupportedOperation = errors.New("ephemeris: operation not supported by this provider")

// EphemerisProvider is the narrow contract §6 requires of an ephemeris
// backend: position lookup, eclipse search, solar-longitude-crossing search,
// and Julian Day conversion, plus the housekeeping a Manager needs to treat
// several providers as one tiered chain.
type EphemerisProvider interface {
	// Position returns (longitude, latitude, speed, distance) for a body at a JD.
	Position(ctx context.Context, jd JulianDay, body BodyID, mode Mode) (Position, error)

	// NextSolarEclipse returns the next solar eclipse at or after jd.
	NextSolarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error)

	// NextLunarEclipse returns the next lunar eclipse at or after jd.
	NextLunarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error)

	// NextSunLongitudeCrossing returns the JD at which the Sun's geocentric
	// longitude next crosses targetAngle at or after jd. Optional: providers
	// without a direct search may return ErrUnsupportedOperation.
	NextSunLongitudeCrossing(ctx context.Context, jd JulianDay, targetAngle float64) (JulianDay, error)

	// JulianDayFromCalendar implements the julian_day(year, month, day, hour) contract function.
	JulianDayFromCalendar(year, month int, day int, hour float64) JulianDay

	// CalendarFromJulianDay implements the reverse_julian_day contract function.
	CalendarFromJulianDay(jd JulianDay) (year, month, day int, hour float64)

	// SetEphemerisPath configures the data-file path, per §6.
	SetEphemerisPath(path string)

	IsAvailable(ctx context.Context) bool
	GetDataRange() (startJD, endJD JulianDay)
	GetHealthStatus(ctx context.Context) (*HealthStatus, error)
	GetProviderName() string
	GetVersion() string
	Close() error
}

// Manager chains a primary, secondary, and low-precision provider behind a
// single EphemerisProvider-shaped API, with an in-process position cache and
// background health checking. Requests fall through the chain on error;
// results from the low-precision tier are marked Position.LowPrecision.
type Manager struct {
	primary       EphemerisProvider
	secondary     EphemerisProvider
	lowPrecision  EphemerisProvider
	cache         Cache
	observer      observability.ObserverInterface
	healthChecker *HealthChecker
}

// NewManager creates a new ephemeris manager over the three-tier provider chain.
func NewManager(primary, secondary, lowPrecision EphemerisProvider, cache Cache) *Manager {
	m := &Manager{
		primary:      primary,
		secondary:    secondary,
		lowPrecision: lowPrecision,
		cache:        cache,
		observer:     observability.Observer(),
	}
	m.healthChecker = NewHealthChecker([]EphemerisProvider{primary, secondary, lowPrecision})
	return m
}

// tiers returns the provider chain in fallback order, skipping nils.
func (m *Manager) tiers() []EphemerisProvider {
	var out []EphemerisProvider
	for _, p := range []EphemerisProvider{m.primary, m.secondary, m.lowPrecision} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Position returns a body's position at jd, trying cache, then each provider
// tier in order. A result from the low-precision tier keeps LowPrecision set.
func (m *Manager) Position(ctx context.Context, jd JulianDay, body BodyID, mode Mode) (Position, error) {
	ctx, span := m.observer.CreateSpan(ctx, "ephemeris.Position")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("julian_day", float64(jd)),
		attribute.Int("body", int(body)),
		attribute.Int("mode", int(mode)),
	)

	cacheKey := fmt.Sprintf("pos:%d:%d:%.6f", body, mode, float64(jd))
	if cached, found := m.cache.Get(ctx, cacheKey); found {
		if pos, ok := cached.(Position); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return pos, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	var lastErr error
	for i, provider := range m.tiers() {
		result, err := m.tryProvider(ctx, provider, fmt.Sprintf("tier_%d", i), func(p EphemerisProvider) (interface{}, error) {
			return p.Position(ctx, jd, body, mode)
		})
		if err != nil {
			lastErr = err
			continue
		}
		pos := result.(Position)
		m.cache.Set(ctx, cacheKey, pos, time.Hour)
		span.SetAttributes(attribute.Bool("success", true), attribute.Bool("low_precision", pos.LowPrecision))
		return pos, nil
	}

	span.RecordError(lastErr)
	span.SetAttributes(attribute.Bool("success", false))
	return Position{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, lastErr)
}

// NextSolarEclipse tries each provider tier that supports eclipse search.
func (m *Manager) NextSolarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	return m.nextEclipse(ctx, jd, "solar", func(p EphemerisProvider, jd JulianDay) (EclipseResult, error) {
		return p.NextSolarEclipse(ctx, jd)
	})
}

// NextLunarEclipse tries each provider tier that supports eclipse search.
func (m *Manager) NextLunarEclipse(ctx context.Context, jd JulianDay) (EclipseResult, error) {
	return m.nextEclipse(ctx, jd, "lunar", func(p EphemerisProvider, jd JulianDay) (EclipseResult, error) {
		return p.NextLunarEclipse(ctx, jd)
	})
}

func (m *Manager) nextEclipse(ctx context.Context, jd JulianDay, kind string, call func(EphemerisProvider, JulianDay) (EclipseResult, error)) (EclipseResult, error) {
	ctx, span := m.observer.CreateSpan(ctx, "ephemeris.NextEclipse")
	defer span.End()
	span.SetAttributes(attribute.String("kind", kind), attribute.Float64("julian_day", float64(jd)))

	var lastErr error
	for _, provider := range m.tiers() {
		result, err := call(provider, jd)
		if err != nil {
			if errors.Is(err, ErrUnsupportedOperation) {
				continue
			}
			lastErr = err
			continue
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = ErrUnsupportedOperation
	}
	span.RecordError(lastErr)
	return EclipseResult{}, fmt.Errorf("%w: %v", ErrEphemerisUnavailable, lastErr)
}

// NextSunLongitudeCrossing tries each provider tier that supports the search.
func (m *Manager) NextSunLongitudeCrossing(ctx context.Context, jd JulianDay, targetAngle float64) (JulianDay, error) {
	var lastErr error
	for _, provider := range m.tiers() {
		result, err := provider.NextSunLongitudeCrossing(ctx, jd, targetAngle)
		if err != nil {
			if errors.Is(err, ErrUnsupportedOperation) {
				continue
			}
			lastErr = err
			continue
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = ErrUnsupportedOperation
	}
	return 0, lastErr
}

// tryProvider attempts an operation against a single provider with observability.
func (m *Manager) tryProvider(ctx context.Context, provider EphemerisProvider, label string, operation func(EphemerisProvider) (interface{}, error)) (interface{}, error) {
	if provider == nil {
		return nil, fmt.Errorf("%s provider is nil", label)
	}

	ctx, span := m.observer.CreateSpan(ctx, fmt.Sprintf("ephemeris.try_%s", label))
	defer span.End()
	span.SetAttributes(
		attribute.String("provider_name", provider.GetProviderName()),
		attribute.String("provider_version", provider.GetVersion()),
	)

	start := time.Now()
	result, err := operation(provider)
	span.SetAttributes(
		attribute.Int64("response_time_ms", time.Since(start).Milliseconds()),
		attribute.Bool("success", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// GetHealthStatus returns the health status of all providers, keyed by tier label.
func (m *Manager) GetHealthStatus(ctx context.Context) map[string]*HealthStatus {
	status := make(map[string]*HealthStatus)
	labels := []string{"primary", "secondary", "low_precision"}
	for i, provider := range []EphemerisProvider{m.primary, m.secondary, m.lowPrecision} {
		if provider == nil {
			continue
		}
		if health, err := provider.GetHealthStatus(ctx); err == nil {
			status[labels[i]] = health
		}
	}
	return status
}

// Close closes all providers, the cache, and stops the health checker.
func (m *Manager) Close() error {
	var errs []error
	for _, provider := range m.tiers() {
		if err := provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.healthChecker != nil {
		m.healthChecker.Stop()
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

// TimeToJulianDay converts a time.Time to a Julian day number.
func TimeToJulianDay(t time.Time) JulianDay {
	utc := t.UTC()
	year := utc.Year()
	month := int(utc.Month())
	day := utc.Day()

	if month <= 2 {
		year--
		month += 12
	}

	a := year / 100
	b := 2 - a + a/4

	jd := math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + float64(b) - 1524.5

	hour := float64(utc.Hour())
	minute := float64(utc.Minute())
	second := float64(utc.Second())
	jd += hour/24.0 + minute/1440.0 + second/86400.0

	return JulianDay(jd)
}

// JulianDayToTime converts a Julian day number to a time.Time (UTC).
func JulianDayToTime(jd JulianDay) time.Time {
	z := math.Floor(float64(jd) + 0.5)
	f := float64(jd) + 0.5 - z

	var a float64
	if z < 2299161 {
		a = z
	} else {
		alpha := math.Floor((z - 1867216.25) / 36524.25)
		a = z + 1 + alpha - math.Floor(alpha/4)
	}

	b := a + 1524
	c := math.Floor((b - 122.1) / 365.25)
	d := math.Floor(365.25 * c)
	e := math.Floor((b - d) / 30.6001)

	day := int(b - d - math.Floor(30.6001*e) + f)
	var month int
	if e < 14 {
		month = int(e - 1)
	} else {
		month = int(e - 13)
	}

	var year int
	if month > 2 {
		year = int(c - 4716)
	} else {
		year = int(c - 4715)
	}

	hours := f * 24
	hour := int(hours)
	minutes := (hours - float64(hour)) * 60
	minute := int(minutes)
	seconds := (minutes - float64(minute)) * 60
	second := int(seconds)
	nanosecond := int((seconds - float64(second)) * 1e9)

	return time.Date(year, time.Month(month), day, hour, minute, second, nanosecond, time.UTC)
}
