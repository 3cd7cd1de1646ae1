// Package geo provides the distance math the devstack matcher uses to
// score route compatibility.
package geo

import "math"

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance in meters between two
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

const (
	overlapSamples   = 20
	overlapThreshold = 500 // meters
)

// RouteOverlap estimates how much of route A runs alongside route B by
// sampling points along A's straight segment and checking their distance
// to the nearest sample of B. It returns the overlap percentage and the
// number of contiguous overlapping segments. Both routes are approximated
// by their straight start-to-end segments.
func RouteOverlap(aStartLat, aStartLon, aEndLat, aEndLon, bStartLat, bStartLon, bEndLat, bEndLon float64) (float64, int) {
	bPoints := sample(bStartLat, bStartLon, bEndLat, bEndLon)

	within := 0
	segments := 0
	inRun := false
	for _, p := range sample(aStartLat, aStartLon, aEndLat, aEndLon) {
		if nearestDistance(p, bPoints) <= overlapThreshold {
			within++
			if !inRun {
				segments++
				inRun = true
			}
		} else {
			inRun = false
		}
	}

	return float64(within) / overlapSamples * 100, segments
}

type point struct {
	lat, lon float64
}

func sample(startLat, startLon, endLat, endLon float64) []point {
	points := make([]point, overlapSamples)
	for i := range points {
		t := float64(i) / float64(overlapSamples-1)
		points[i] = point{
			lat: startLat + (endLat-startLat)*t,
			lon: startLon + (endLon-startLon)*t,
		}
	}
	return points
}

func nearestDistance(p point, candidates []point) float64 {
	best := math.Inf(1)
	for _, c := range candidates {
		if d := Haversine(p.lat, p.lon, c.lat, c.lon); d < best {
			best = d
		}
	}
	return best
}
