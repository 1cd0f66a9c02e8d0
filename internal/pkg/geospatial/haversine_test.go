package geospatial

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestHaversine_EquatorDegree(t *testing.T) {
	// One degree of longitude on the equator is about 111.19 km.
	got := Haversine(0, 0, 0, 1)
	if math.Abs(got-111195) > 100 {
		t.Errorf("expected about 111195 m, got %v", got)
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	if got := Haversine(43.26, -2.93, 43.26, -2.93); got != 0 {
		t.Errorf("expected 0 for identical points, got %v", got)
	}
}

func TestBoundDiagonalKm(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 0}}
	got := BoundDiagonalKm(b)
	if math.Abs(got-111.195) > 0.1 {
		t.Errorf("expected about 111.195 km, got %v", got)
	}
}
