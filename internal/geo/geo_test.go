package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hopalong/core/internal/geo"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Kyiv central station to Boryspil airport, roughly 30km.
	d := geo.Haversine(50.4400, 30.4885, 50.3450, 30.8947)
	assert.InDelta(t, 30500, d, 2000)
}

func TestHaversine_ZeroForSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, geo.Haversine(50.45, 30.52, 50.45, 30.52))
}

func TestRouteOverlap_IdenticalRoutes(t *testing.T) {
	overlap, segments := geo.RouteOverlap(
		50.44, 30.48, 50.34, 30.89,
		50.44, 30.48, 50.34, 30.89,
	)
	assert.Equal(t, 100.0, overlap)
	assert.Equal(t, 1, segments)
}

func TestRouteOverlap_DisjointRoutes(t *testing.T) {
	// Kyiv vs Lviv, hundreds of kilometers apart.
	overlap, segments := geo.RouteOverlap(
		50.44, 30.48, 50.34, 30.89,
		49.84, 24.02, 49.79, 24.10,
	)
	assert.Equal(t, 0.0, overlap)
	assert.Equal(t, 0, segments)
}

func TestRouteOverlap_PartialOverlap(t *testing.T) {
	// Same start area, ends diverge far apart.
	overlap, _ := geo.RouteOverlap(
		50.4400, 30.4885, 50.3450, 30.8947,
		50.4400, 30.4885, 50.4630, 30.5250,
	)
	assert.Greater(t, overlap, 0.0)
	assert.Less(t, overlap, 100.0)
}
