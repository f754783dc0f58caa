// Package rootfind provides the bisection and extremum-search routines the
// event detectors use to refine a coarse daily-step scan down to the exact
// instant of a sign change or a local maximum. The same scan-then-bisect
// shape is used inline in the Swiss Ephemeris and low-precision providers'
// NextSunLongitudeCrossing; this package generalizes it for the
// inner-planet-phase detector (station and greatest-elongation refinement).
package rootfind

import (
	"context"
	"errors"
)

// Func evaluates a scalar signal at a sample point. Detectors build these
// from ephemeris positions (e.g. a planet's longitudinal speed, or its
// elongation from the Sun).
type Func func(ctx context.Context, x float64) (float64, error)

// ErrDiverged reports that Bisect's starting bracket held no sign change, or
// that it exhausted maxIter without narrowing the bracket below tol. The
// returned x is still the best midpoint found (§7 "RootFindDiverged": event
// emitted with midpoint best-estimate, logged at warning level) — callers
// should use it, not discard it, on this error.
var ErrDiverged = errors.New("rootfind: bisection did not converge")

// Bisect finds x in [lo, hi] where f(x) == 0, given f(lo) and f(hi) have
// opposite signs (or one is exactly zero). It runs at most maxIter
// iterations or until the bracket narrows below tol. If the bracket never
// contained a sign change, or the budget is exhausted first, it returns its
// best midpoint alongside ErrDiverged.
func Bisect(ctx context.Context, f Func, lo, hi float64, tol float64, maxIter int) (float64, error) {
	loV, err := f(ctx, lo)
	if err != nil {
		return 0, err
	}
	hiV, err := f(ctx, hi)
	if err != nil {
		return 0, err
	}
	diverged := sameSign(loV, hiV)

	for i := 0; i < maxIter && hi-lo > tol; i++ {
		mid := (lo + hi) / 2
		midV, err := f(ctx, mid)
		if err != nil {
			return mid, err
		}
		if sameSign(loV, midV) {
			lo, loV = mid, midV
		} else {
			hi, hiV = mid, midV
		}
	}
	_ = hiV

	x := (lo + hi) / 2
	if diverged || hi-lo > tol {
		return x, ErrDiverged
	}
	return x, nil
}

func sameSign(a, b float64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return (a > 0) == (b > 0)
}

// ScanForSignChange steps from start in increments of step, up to maxSteps
// times, looking for the first bracket where f changes sign, then bisects
// within it. Returns (x, true, nil) on success, (0, false, nil) if no
// crossing is found within the scan window.
func ScanForSignChange(ctx context.Context, f Func, start, step, tol float64, maxSteps, bisectIter int) (float64, bool, error) {
	prevX := start
	prevV, err := f(ctx, prevX)
	if err != nil {
		return 0, false, err
	}

	for i := 0; i < maxSteps; i++ {
		x := prevX + step
		v, err := f(ctx, x)
		if err != nil {
			return 0, false, err
		}
		if (prevV <= 0 && v >= 0) || (prevV >= 0 && v <= 0) {
			lo, hi := prevX, x
			if lo > hi {
				lo, hi = hi, lo
			}
			root, err := Bisect(ctx, f, lo, hi, tol, bisectIter)
			if err != nil {
				return 0, false, err
			}
			return root, true, nil
		}
		prevX, prevV = x, v
	}
	return 0, false, nil
}

// GoldenSectionMax finds the x in [lo, hi] maximizing f, assuming f is
// unimodal on the interval (used to refine an inner planet's greatest
// elongation once a coarse scan has bracketed a local elongation maximum).
func GoldenSectionMax(ctx context.Context, f Func, lo, hi float64, tol float64, maxIter int) (float64, error) {
	const invPhi = 0.6180339887498949 // (sqrt(5)-1)/2

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, err := f(ctx, c)
	if err != nil {
		return 0, err
	}
	fd, err := f(ctx, d)
	if err != nil {
		return 0, err
	}

	for i := 0; i < maxIter && b-a > tol; i++ {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc, err = f(ctx, c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd, err = f(ctx, d)
		}
		if err != nil {
			return 0, err
		}
	}
	return (a + b) / 2, nil
}
