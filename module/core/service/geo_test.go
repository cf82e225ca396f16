package service

import (
	"testing"

	"github.com/safetrack/safetrack/module/core/domain"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	a := domain.Coordinate{Lat: -6.2088, Lon: 106.8456}
	if d := DistanceMeters(a, a); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := domain.Coordinate{Lat: -6.2088, Lon: 106.8456}
	b := domain.Coordinate{Lat: 51.5074, Lon: -0.1278}
	if DistanceMeters(a, b) != DistanceMeters(b, a) {
		t.Errorf("expected symmetric distance, got %f and %f", DistanceMeters(a, b), DistanceMeters(b, a))
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// one hundredth of a degree of latitude is ~1113m
	a := domain.Coordinate{Lat: 0, Lon: 0}
	b := domain.Coordinate{Lat: 0.01, Lon: 0}
	d := DistanceMeters(a, b)
	if d < 1100 || d > 1130 {
		t.Errorf("expected ~1113m, got %f", d)
	}
}
