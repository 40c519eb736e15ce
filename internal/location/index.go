package location

import (
	"math"
	"slices"

	"github.com/randytsao24/reachmap/internal/models"
)

// bucketDegrees is the side of one index cell, roughly 1.1 km of latitude
const bucketDegrees = 0.01

type bucketKey struct {
	lat, lng int
}

// gridIndex buckets station positions into fixed-size lat/lng cells so radius
// queries only visit nearby cells. It stores catalog positions, never copies.
type gridIndex struct {
	buckets map[bucketKey][]int
}

func newGridIndex(stations []models.Station) *gridIndex {
	idx := &gridIndex{buckets: make(map[bucketKey][]int)}
	for i, s := range stations {
		key := keyFor(s.Latitude, s.Longitude)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

func keyFor(lat, lng float64) bucketKey {
	return bucketKey{
		lat: int(math.Floor(lat / bucketDegrees)),
		lng: int(math.Floor(lng / bucketDegrees)),
	}
}

// candidates returns catalog positions, in ascending order, of every station whose
// bucket intersects the bounding box of the circle (center, maxKm). ok is false when
// the box cannot be computed (poles, antimeridian, non-finite input) and the caller
// must fall back to a full scan.
func (g *gridIndex) candidates(center models.Coordinate, maxKm float64) (out []int, ok bool) {
	if math.IsNaN(center.Latitude) || math.IsNaN(center.Longitude) || math.IsInf(maxKm, 0) {
		return nil, false
	}

	angular := maxKm / earthRadiusKm
	if angular >= math.Pi/2 {
		return nil, false
	}
	latSpan := angular * 180 / math.Pi

	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	ratio := math.Sin(angular) / cosLat
	if cosLat <= 0 || ratio >= 1 {
		return nil, false
	}
	lngSpan := math.Asin(ratio) * 180 / math.Pi

	minLat, maxLat := center.Latitude-latSpan, center.Latitude+latSpan
	minLng, maxLng := center.Longitude-lngSpan, center.Longitude+lngSpan
	if minLat < -90 || maxLat > 90 || minLng < -180 || maxLng > 180 {
		return nil, false
	}

	lo := keyFor(minLat, minLng)
	hi := keyFor(maxLat, maxLng)
	if (hi.lat-lo.lat+1)*(hi.lng-lo.lng+1) > 4*len(g.buckets)+16 {
		// visiting every cell would cost more than scanning the catalog
		return nil, false
	}
	for la := lo.lat; la <= hi.lat; la++ {
		for ln := lo.lng; ln <= hi.lng; ln++ {
			out = append(out, g.buckets[bucketKey{lat: la, lng: ln}]...)
		}
	}
	slices.Sort(out)
	return out, true
}
