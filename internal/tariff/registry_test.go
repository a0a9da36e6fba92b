package tariff_test

import (
	"errors"
	"testing"

	"orderflow/internal/tariff"
)

func TestResolveRegisteredTypes(t *testing.T) {
	r := tariff.NewRegistry()

	cases := map[string]string{
		"urbana":         "urbana",
		"URBANA":         "urbana",
		"Urbana":         "urbana",
		"intermunicipal": "intermunicipal",
		"INTERMUNICIPAL": "intermunicipal",
		"nacional":       "nacional",
		"Nacional":       "nacional",
		"  urbana  ":     "urbana",
	}

	for input, want := range cases {
		s, err := r.Resolve(input)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error %v", input, err)
			continue
		}
		if s.Name() != want {
			t.Errorf("Resolve(%q) = %s, want %s", input, s.Name(), want)
		}
	}
}

func TestResolveUnknownTypeFallsBack(t *testing.T) {
	r := tariff.NewRegistry()

	for _, input := range []string{"expressa", "drone", "internacional"} {
		s, err := r.Resolve(input)
		if err != nil {
			t.Fatalf("Resolve(%q): unexpected error %v", input, err)
		}
		if s.Name() != "padrao" {
			t.Errorf("Resolve(%q) = %s, want padrao", input, s.Name())
		}
	}
}

func TestResolveEmptyTypeFails(t *testing.T) {
	r := tariff.NewRegistry()

	for _, input := range []string{"", "   ", "\t"} {
		if _, err := r.Resolve(input); !errors.Is(err, tariff.ErrMissingDeliveryType) {
			t.Errorf("Resolve(%q): expected ErrMissingDeliveryType, got %v", input, err)
		}
	}
}

func TestResolveIsStableAcrossCalls(t *testing.T) {
	r := tariff.NewRegistry()

	a, _ := r.Resolve("urbana")
	b, _ := r.Resolve("URBANA")
	if a != b {
		t.Error("case variants should resolve to the same strategy")
	}
}
