package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEclipses_ClassificationAndYearFilter(t *testing.T) {
	p := &fakeProvider{}
	eclipses, err := DetectEclipses(context.Background(), p, 2000)
	require.NoError(t, err)
	require.NotEmpty(t, eclipses)

	for _, e := range eclipses {
		assert.Equal(t, 2000, e.Year)
		assert.Equal(t, 2000, e.Timestamp.Year())
		assert.Contains(t, []EclipseKind{
			SolarTotal, SolarAnnular, SolarPartial,
			LunarTotal, LunarPartial, LunarPenumbral,
		}, e.Kind)
	}
}

func TestClassifySolarEclipse(t *testing.T) {
	assert.Equal(t, SolarTotal, classifySolarEclipse(eclTotal|eclCentral))
	assert.Equal(t, SolarAnnular, classifySolarEclipse(eclAnnular))
	assert.Equal(t, SolarPartial, classifySolarEclipse(eclPartial))
}

func TestClassifyLunarEclipse(t *testing.T) {
	assert.Equal(t, LunarTotal, classifyLunarEclipse(eclTotal))
	assert.Equal(t, LunarPenumbral, classifyLunarEclipse(eclPenumbral))
	assert.Equal(t, LunarPartial, classifyLunarEclipse(eclPartial))
}
