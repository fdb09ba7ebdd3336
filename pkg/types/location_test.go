package types

import (
	"math"
	"testing"
)

func TestLocationValidate(t *testing.T) {
	if err := (Location{Lat: 40.4, Lng: -3.7}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Location{Lat: 91, Lng: 0}).Validate(); err == nil {
		t.Fatal("expected latitude error")
	}
	if err := (Location{Lat: 0, Lng: -181}).Validate(); err == nil {
		t.Fatal("expected longitude error")
	}
	if err := (Location{Lat: math.NaN(), Lng: 0}).Validate(); err == nil {
		t.Fatal("expected NaN to be rejected")
	}
}

func TestLocationDistanceKm(t *testing.T) {
	madrid := Location{Lat: 40.4168, Lng: -3.7038}
	barcelona := Location{Lat: 41.3874, Lng: 2.1686}

	got := madrid.DistanceKm(barcelona)
	if got < 495 || got > 510 {
		t.Fatalf("expected roughly 505km, got %.1f", got)
	}
	if d := madrid.DistanceKm(madrid); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}
