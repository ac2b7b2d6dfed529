package models

import "strings"

// ShippingAddress is the destination of a delivery.
type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (a *ShippingAddress) Normalize() {
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Country = strings.TrimSpace(a.Country)
}

// Validate checks the required fields. Call Normalize first.
func (a ShippingAddress) Validate() error {
	if a.Address == "" {
		return NewValidationError("shipping.address", "is required")
	}
	if a.City == "" {
		return NewValidationError("shipping.city", "is required")
	}
	return nil
}

// Destination joins the non-empty parts with ", ".
func (a ShippingAddress) Destination() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Address, a.City, a.State, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// DistanceQuote is the resolved distance from the gallery to a destination.
type DistanceQuote struct {
	DistanceKm float64 `json:"distanceKm"`
	// Fallback is set when the upstream lookup was not used.
	Fallback bool `json:"-"`
}
