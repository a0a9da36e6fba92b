package tariff

import (
	"math"

	"orderflow/internal/domain/event"
)

// Strategy computes a freight amount from an order payload. Strategies
// are pure: no I/O, no state retained across calls, safe to re-run on
// redelivery.
type Strategy interface {
	Name() string
	Compute(p event.OrderCreatedPayload) float64
}

// Urban deliveries are charged a flat rate regardless of distance or weight.
type Urban struct{}

func (Urban) Name() string { return "urbana" }

func (Urban) Compute(event.OrderCreatedPayload) float64 {
	return urbanFlatRate
}

// Intermunicipal deliveries are charged by distance band.
type Intermunicipal struct{}

func (Intermunicipal) Name() string { return "intermunicipal" }

func (Intermunicipal) Compute(p event.OrderCreatedPayload) float64 {
	d := p.DistanceKm
	switch {
	case d <= shortHaulKm:
		return round2(intermunicipalBase)
	case d <= midHaulKm:
		return round2(intermunicipalBase + midHaulRateKm*(d-shortHaulKm))
	default:
		midHaulCeiling := intermunicipalBase + midHaulRateKm*(midHaulKm-shortHaulKm)
		return round2(midHaulCeiling + longHaulRateKm*(d-midHaulKm))
	}
}

// National deliveries combine a base fee with weight and distance components.
type National struct{}

func (National) Name() string { return "nacional" }

func (National) Compute(p event.OrderCreatedPayload) float64 {
	return round2(nationalBase + nationalRateKg*p.WeightKg + nationalRateKm*p.DistanceKm)
}

// Standard is the fallback for delivery types without a dedicated tariff.
type Standard struct{}

func (Standard) Name() string { return "padrao" }

func (Standard) Compute(p event.OrderCreatedPayload) float64 {
	return round2(standardBase + standardRateKg*p.WeightKg)
}

const (
	urbanFlatRate = 15.00

	shortHaulKm        = 50.0
	midHaulKm          = 200.0
	intermunicipalBase = 30.00
	midHaulRateKm      = 0.45
	longHaulRateKm     = 0.30

	nationalBase   = 40.00
	nationalRateKg = 0.90
	nationalRateKm = 0.12

	standardBase   = 20.00
	standardRateKg = 0.50
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
