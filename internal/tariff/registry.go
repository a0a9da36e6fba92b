package tariff

import (
	"errors"
	"strings"
)

// ErrMissingDeliveryType means the event carried no delivery type at
// all. A non-empty unrecognized value is not an error: it is routed to
// the default strategy.
var ErrMissingDeliveryType = errors.New("delivery type is empty")

// Registry maps delivery types to tariff strategies. It is built once
// at process start and never mutated, so it needs no locking.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry builds the registry with the fixed set of known delivery
// types and the default fallback.
func NewRegistry() *Registry {
	return &Registry{
		strategies: map[string]Strategy{
			"urbana":         Urban{},
			"intermunicipal": Intermunicipal{},
			"nacional":       National{},
		},
		fallback: Standard{},
	}
}

// Resolve returns the strategy for the given delivery type. Matching is
// case-insensitive. Unknown non-empty types get the fallback strategy.
func (r *Registry) Resolve(deliveryType string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(deliveryType))
	if key == "" {
		return nil, ErrMissingDeliveryType
	}
	if s, ok := r.strategies[key]; ok {
		return s, nil
	}
	return r.fallback, nil
}
