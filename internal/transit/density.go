package transit

import "math"

const (
	// DefaultGridDensity applies when neither a density nor a zoom is known
	DefaultGridDensity = 50
	MaxGridDensity     = 200
)

// DensityPolicy maps a map zoom level to a lattice side length.
// Zoom 0 means unknown.
type DensityPolicy func(zoom int) int

// DefaultDensity is the canonical zoom to density table. Finer zoom levels get
// denser lattices so samples stay roughly 50-300 m apart on screen.
func DefaultDensity(zoom int) int {
	switch {
	case zoom <= 0:
		return DefaultGridDensity
	case zoom >= 16:
		return 100
	case zoom >= 14:
		return 80
	case zoom >= 12:
		return 60
	case zoom >= 10:
		return 40
	case zoom >= 8:
		return 25
	default:
		return 15
	}
}

// ZoomFromLongitudeDelta derives a web-map zoom level from the visible longitude
// span in degrees. Non-positive or non-finite spans yield 0 (unknown).
func ZoomFromLongitudeDelta(delta float64) int {
	if delta <= 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return 0
	}
	return int(math.Round(math.Log2(360 / delta)))
}
