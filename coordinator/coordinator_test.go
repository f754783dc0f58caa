package coordinator

import (
	"context"
	"math"
	"testing"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/config"
	"github.com/naren-m/astroevents/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProvider fails every Position call for one target year, simulating an
// ephemeris backend that can't resolve that year's positions at all (beyond
// what the provider's own low-precision fallback already covers).
type flakyProvider struct {
	fakeProvider
	badYear int
}

func (f flakyProvider) Position(ctx context.Context, jd ephemeris.JulianDay, body ephemeris.BodyID, mode ephemeris.Mode) (ephemeris.Position, error) {
	if ephemeris.JulianDayToTime(jd).Year() == f.badYear {
		return ephemeris.Position{}, ephemeris.ErrEphemerisUnavailable
	}
	return f.fakeProvider.Position(ctx, jd, body, mode)
}

// fakeProvider is a deterministic closed-form events.Provider for
// coordinator tests, independent of the events package's own test fixture.
type fakeProvider struct{}

func (fakeProvider) Position(ctx context.Context, jd ephemeris.JulianDay, body ephemeris.BodyID, mode ephemeris.Mode) (ephemeris.Position, error) {
	t := float64(jd)
	switch body {
	case ephemeris.Sun:
		return ephemeris.Position{Longitude: wrap(t * 0.9856), Speed: 0.9856}, nil
	case ephemeris.Moon:
		return ephemeris.Position{Longitude: wrap(t * 13.176), Speed: 13.176}, nil
	case ephemeris.Mercury:
		lon := wrap(t*1.0 + 10)
		if mode == ephemeris.Heliocentric {
			lon = wrap(t * 4.09)
		}
		return ephemeris.Position{Longitude: lon, Speed: 1.5}, nil
	default:
		return ephemeris.Position{Longitude: wrap(t * 0.1 * float64(body)), Speed: 0.1}, nil
	}
}

func wrap(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

func (fakeProvider) NextSolarEclipse(ctx context.Context, jd ephemeris.JulianDay) (ephemeris.EclipseResult, error) {
	return ephemeris.EclipseResult{JulianDay: jd + 180, ClassificationBits: 4}, nil
}

func (fakeProvider) NextLunarEclipse(ctx context.Context, jd ephemeris.JulianDay) (ephemeris.EclipseResult, error) {
	return ephemeris.EclipseResult{JulianDay: jd + 90, ClassificationBits: 64}, nil
}

func (fakeProvider) NextSunLongitudeCrossing(ctx context.Context, jd ephemeris.JulianDay, targetAngle float64) (ephemeris.JulianDay, error) {
	current := wrap(float64(jd) * 0.9856)
	delta := targetAngle - current
	for delta < 0 {
		delta += 360
	}
	return jd + ephemeris.JulianDay(delta/0.9856), nil
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, fakeProvider{}, config.DefaultConfig())
}

func TestRun_RejectsInvalidRange(t *testing.T) {
	c := newTestCoordinator(t)
	err := c.Run(context.Background(), 2001, 2000, nil)
	require.Error(t, err)
}

func TestRun_SingleYearPopulatesAllDetectors(t *testing.T) {
	c := newTestCoordinator(t)

	var percents []float64
	err := c.Run(context.Background(), 2000, 2000, func(percent float64, message string) {
		percents = append(percents, percent)
	})
	require.NoError(t, err)
	require.NotEmpty(t, percents)

	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1], "progress must be non-decreasing")
	}
	assert.InDelta(t, 100.0, percents[len(percents)-1], 0.01)

	status, err := c.store.GetCalculationStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Ranges, 1)
	assert.Equal(t, store.StatusComplete, status.Ranges[0].Status)
	assert.Greater(t, status.Ranges[0].Events, 0)
}

func TestRun_ReplayIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, 2000, 2000, nil))
	status1, err := c.store.GetCalculationStatus(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Run(ctx, 2000, 2000, nil))
	status2, err := c.store.GetCalculationStatus(ctx)
	require.NoError(t, err)

	assert.Equal(t, status1.TableCounts, status2.TableCounts, "replaying a range must not duplicate rows")
}

func TestRun_EphemerisUnavailableSkipsYearAndContinues(t *testing.T) {
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c := New(s, flakyProvider{badYear: 2001}, config.DefaultConfig())

	err = c.Run(context.Background(), 2000, 2002, nil)
	require.NoError(t, err, "an unavailable ephemeris year must not fail the whole run")

	status, err := c.store.GetCalculationStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Ranges, 1)
	assert.Equal(t, store.StatusComplete, status.Ranges[0].Status)
}

func TestRun_CancellationStopsBetweenDetectors(t *testing.T) {
	c := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := c.Run(ctx, 2000, 2010, func(percent float64, message string) {
		calls++
		if calls == 1 {
			cancel()
		}
	})
	require.Error(t, err)

	status, err2 := c.store.GetCalculationStatus(context.Background())
	require.NoError(t, err2)
	require.Len(t, status.Ranges, 1)
	assert.Equal(t, store.StatusFailed, status.Ranges[0].Status)
}
