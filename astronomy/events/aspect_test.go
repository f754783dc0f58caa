package events

import (
	"context"
	"testing"

	"github.com/naren-m/astroevents/astronomy/angle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAspects_CanonicalOrderingAndOrb(t *testing.T) {
	p := &fakeProvider{}
	aspects, err := DetectAspects(context.Background(), p, 2000, DefaultAspectConfig())
	require.NoError(t, err)
	require.NotEmpty(t, aspects)

	for _, a := range aspects {
		assert.Less(t, int(a.Body1), int(a.Body2), "body1 must canonicalize below body2")
		assert.Equal(t, 2000, a.Year)
		assert.False(t, a.Exact.Timestamp.IsZero())

		orb, within := angle.AspectOrb(a.Exact.Position1, a.Exact.Position2, aspectFromString(a.Type))
		assert.True(t, within, "exact orb %.3f outside the limit for %s", orb, a.Type)

		if a.Applying != nil && a.Separating != nil {
			assert.False(t, a.Applying.Timestamp.After(a.Exact.Timestamp))
			assert.False(t, a.Exact.Timestamp.After(a.Separating.Timestamp))
		}
	}
}

func TestDetectAspects_ExcludesMinorWhenConfigured(t *testing.T) {
	p := &fakeProvider{}
	cfg := AspectConfig{IncludeMinor: false, MinStrength: 0}
	aspects, err := DetectAspects(context.Background(), p, 2000, cfg)
	require.NoError(t, err)

	for _, a := range aspects {
		at := aspectFromString(a.Type)
		assert.True(t, angle.IsMajor(at), "minor aspect %q present despite IncludeMinor=false", a.Type)
	}
}

func aspectFromString(s string) angle.Aspect {
	for _, a := range angle.AllAspects {
		if a.String() == s {
			return a
		}
	}
	return angle.Conjunction
}
