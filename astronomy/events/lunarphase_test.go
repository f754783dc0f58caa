package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLunarPhases_YearAndKindCoverage(t *testing.T) {
	p := &fakeProvider{}
	phases, err := DetectLunarPhases(context.Background(), p, 2000)
	require.NoError(t, err)
	require.NotEmpty(t, phases)

	seenKinds := map[LunarPhaseKind]bool{}
	for _, ph := range phases {
		assert.Equal(t, 2000, ph.Year)
		assert.Equal(t, 2000, ph.Timestamp.Year())
		seenKinds[ph.Kind] = true
	}

	assert.True(t, seenKinds[NewMoon])
	assert.True(t, seenKinds[FirstQuarter])
	assert.True(t, seenKinds[FullMoon])
	assert.True(t, seenKinds[LastQuarter])
}

func TestLunarPhasesMetonFallback_FiltersToYear(t *testing.T) {
	phases := lunarPhasesMetonFallback(2000)
	require.NotEmpty(t, phases)
	for _, ph := range phases {
		assert.Equal(t, 2000, ph.Timestamp.Year())
		assert.True(t, ph.LowPrecision)
	}
}
