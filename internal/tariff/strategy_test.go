package tariff_test

import (
	"testing"

	"orderflow/internal/domain/event"
	"orderflow/internal/tariff"
)

func TestUrbanFlatRate(t *testing.T) {
	s := tariff.Urban{}

	for _, p := range []event.OrderCreatedPayload{
		{DistanceKm: 5},
		{DistanceKm: 80, WeightKg: 120},
		{},
	} {
		if got := s.Compute(p); got != 15.00 {
			t.Errorf("Compute(%+v) = %.2f, want 15.00", p, got)
		}
	}
}

func TestIntermunicipalBands(t *testing.T) {
	s := tariff.Intermunicipal{}

	cases := []struct {
		distance float64
		want     float64
	}{
		{10, 30.00},
		{50, 30.00},
		{100, 52.50},  // 30 + 0.45*50
		{200, 97.50},  // 30 + 0.45*150
		{300, 127.50}, // 97.50 + 0.30*100
	}

	for _, tc := range cases {
		got := s.Compute(event.OrderCreatedPayload{DistanceKm: tc.distance})
		if got != tc.want {
			t.Errorf("Compute(distance=%.0f) = %.2f, want %.2f", tc.distance, got, tc.want)
		}
	}
}

func TestNationalFormula(t *testing.T) {
	s := tariff.National{}

	got := s.Compute(event.OrderCreatedPayload{WeightKg: 10, DistanceKm: 500})
	want := 109.00 // 40 + 0.90*10 + 0.12*500
	if got != want {
		t.Errorf("Compute = %.2f, want %.2f", got, want)
	}
}

func TestStandardBaseline(t *testing.T) {
	s := tariff.Standard{}

	got := s.Compute(event.OrderCreatedPayload{WeightKg: 8})
	want := 24.00 // 20 + 0.50*8
	if got != want {
		t.Errorf("Compute = %.2f, want %.2f", got, want)
	}
}
