package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	p := Point{Lat: 12.97, Lng: 77.59}
	if d := HaversineKm(p, p); d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// One degree of latitude is ~111.2 km.
	d := HaversineKm(Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0})
	if math.Abs(d-111.19) > 0.1 {
		t.Fatalf("1 degree latitude = %v km, want ~111.19", d)
	}
}

func TestPointOf(t *testing.T) {
	lat, lng := 1.5, 2.5
	if _, ok := PointOf(&lat, nil); ok {
		t.Fatalf("expected ok=false with nil lng")
	}
	p, ok := PointOf(&lat, &lng)
	if !ok || p.Lat != 1.5 || p.Lng != 2.5 {
		t.Fatalf("PointOf = %+v, %v", p, ok)
	}
}
