package rootfind

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBisect(t *testing.T) {
	ctx := context.Background()
	f := func(ctx context.Context, x float64) (float64, error) {
		return x - 5.0, nil
	}

	root, err := Bisect(ctx, f, 0, 10, 1e-9, 100)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, root, 1e-6)
}

func TestBisect_NoSignChangeReturnsErrDiverged(t *testing.T) {
	ctx := context.Background()
	f := func(ctx context.Context, x float64) (float64, error) {
		return x + 100.0, nil // always positive on [0, 10]: no root in bracket
	}

	mid, err := Bisect(ctx, f, 0, 10, 1e-9, 100)
	require.ErrorIs(t, err, ErrDiverged)
	assert.InDelta(t, 10.0, mid, 1e-6, "still returns a best-estimate bracket midpoint, not a zero value")
}

func TestBisect_BudgetExhaustedReturnsErrDiverged(t *testing.T) {
	ctx := context.Background()
	f := func(ctx context.Context, x float64) (float64, error) {
		return x - 5.0, nil
	}

	_, err := Bisect(ctx, f, 0, 10, 1e-12, 2)
	require.ErrorIs(t, err, ErrDiverged)
}

func TestScanForSignChange(t *testing.T) {
	ctx := context.Background()

	t.Run("finds crossing within window", func(t *testing.T) {
		f := func(ctx context.Context, x float64) (float64, error) {
			return x - 12.5, nil
		}
		root, found, err := ScanForSignChange(ctx, f, 0, 1.0, 1e-6, 30, 50)
		require.NoError(t, err)
		assert.True(t, found)
		assert.InDelta(t, 12.5, root, 1e-4)
	})

	t.Run("no crossing returns false", func(t *testing.T) {
		f := func(ctx context.Context, x float64) (float64, error) {
			return x + 100.0, nil // always positive over the scan window
		}
		_, found, err := ScanForSignChange(ctx, f, 0, 1.0, 1e-6, 10, 50)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestGoldenSectionMax(t *testing.T) {
	ctx := context.Background()
	f := func(ctx context.Context, x float64) (float64, error) {
		return -math.Pow(x-3.0, 2), nil // maximum at x=3
	}

	x, err := GoldenSectionMax(ctx, f, 0, 10, 1e-6, 100)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, x, 1e-3)
}
