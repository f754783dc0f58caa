package coreerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New(StoreUnavailable, "store.Open", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store.Open")
	assert.Contains(t, err.Error(), "store_unavailable")
}

func TestError_WithoutCause(t *testing.T) {
	err := New(InvalidRange, "coordinator.Run", nil)
	assert.Equal(t, "coordinator.Run: invalid_range", err.Error())
}

func TestIs_MatchesKindThroughWrapping(t *testing.T) {
	err := New(RootFindDiverged, "rootfind.Bisect", errors.New("no convergence"))
	wrapped := fmt.Errorf("detector failed: %w", err)

	assert.True(t, Is(wrapped, RootFindDiverged))
	assert.False(t, Is(wrapped, CatalogMissing))
}

func TestIs_FalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), InvalidRange))
}

func TestAs_ExtractsTypedKind(t *testing.T) {
	var target *Error
	err := error(New(EphemerisUnavailable, "ephemeris.Position", nil))

	require.True(t, errors.As(err, &target))
	assert.Equal(t, EphemerisUnavailable, target.Kind)
}
