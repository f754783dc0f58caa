// Package angle provides the ecliptic-longitude arithmetic shared by the
// aspect, phase, and eclipse detectors: normalization, shortest-arc
// separation, zodiac sign indexing, and aspect-orb matching.
package angle

import "math"

// DegToRad converts degrees to radians.
const DegToRad = math.Pi / 180.0

// RadToDeg converts radians to degrees.
const RadToDeg = 180.0 / math.Pi

// MajorAspectOrb is the maximum orb, in degrees, for conjunction, opposition,
// trine, square, and sextile.
const MajorAspectOrb = 6.0

// MinorAspectOrb is the maximum orb, in degrees, for the minor aspects
// (semisextile, quincunx, sesquiquadrate, semisquare, quintile, biquintile).
const MinorAspectOrb = 2.0

// Aspect identifies a named angular relationship between two bodies.
type Aspect int

const (
	Conjunction Aspect = iota
	Opposition
	Trine
	Square
	Sextile
	Semisextile
	Quincunx
	Sesquiquadrate
	Semisquare
	Quintile
	Biquintile
)

// AspectAngles maps each aspect to its ideal separation in degrees.
var AspectAngles = map[Aspect]float64{
	Conjunction:    0.0,
	Opposition:     180.0,
	Trine:          120.0,
	Square:         90.0,
	Sextile:        60.0,
	Semisextile:    30.0,
	Quincunx:       150.0,
	Sesquiquadrate: 135.0,
	Semisquare:     45.0,
	Quintile:       72.0,
	Biquintile:     144.0,
}

// MajorAspects holds the aspects whose orb limit is MajorAspectOrb; every
// other entry in AspectAngles uses MinorAspectOrb.
var MajorAspects = map[Aspect]bool{
	Conjunction: true,
	Opposition:  true,
	Trine:       true,
	Square:      true,
	Sextile:     true,
}

// MaxOrb returns the orb limit that applies to a given aspect.
func MaxOrb(a Aspect) float64 {
	if MajorAspects[a] {
		return MajorAspectOrb
	}
	return MinorAspectOrb
}

// IsMajor reports whether a is one of the five major aspects.
func IsMajor(a Aspect) bool {
	return MajorAspects[a]
}

// AllAspects lists every aspect in AspectAngles, major ones first, in the
// order detectors enumerate them when scanning a body pair.
var AllAspects = []Aspect{
	Conjunction, Opposition, Trine, Square, Sextile,
	Semisextile, Quincunx, Sesquiquadrate, Semisquare, Quintile, Biquintile,
}

// String returns the lower-case storage name of an aspect.
func (a Aspect) String() string {
	switch a {
	case Conjunction:
		return "conjunction"
	case Opposition:
		return "opposition"
	case Trine:
		return "trine"
	case Square:
		return "square"
	case Sextile:
		return "sextile"
	case Semisextile:
		return "semisextile"
	case Quincunx:
		return "quincunx"
	case Sesquiquadrate:
		return "sesquiquadrate"
	case Semisquare:
		return "semisquare"
	case Quintile:
		return "quintile"
	case Biquintile:
		return "biquintile"
	default:
		return "unknown"
	}
}

// Normalize reduces an angle to the [0, 360) range.
func Normalize(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// ShortestArc returns the unsigned angular separation between two ecliptic
// longitudes, in [0, 180].
func ShortestArc(a, b float64) float64 {
	diff := Normalize(Normalize(a) - Normalize(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// AspectOrb returns the orb (deviation from the aspect's ideal angle) between
// two longitudes for the given aspect, and whether it falls within that
// aspect's allowed orb.
func AspectOrb(pos1, pos2 float64, a Aspect) (orb float64, withinOrb bool) {
	separation := ShortestArc(pos1, pos2)
	ideal := AspectAngles[a]
	orb = math.Abs(separation - ideal)
	return orb, orb <= MaxOrb(a)
}

// Strength converts an orb into a 0-100 exactness score: 100 at an exact
// aspect, 0 at the maximum allowed orb.
func Strength(orb float64, a Aspect) float64 {
	max := MaxOrb(a)
	if max == 0 {
		return 0
	}
	s := (1 - orb/max) * 100
	if s < 0 {
		return 0
	}
	return s
}

// SignIndex returns the zodiac sign index (0=Aries..11=Pisces) a longitude falls in.
func SignIndex(longitudeDeg float64) int {
	return int(Normalize(longitudeDeg) / 30.0)
}
