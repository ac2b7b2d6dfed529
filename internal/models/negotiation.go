package models

// NegotiationStatus tags the result of a fee negotiation.
type NegotiationStatus string

const (
	NegotiationAccepted NegotiationStatus = "accepted"
	NegotiationCounter  NegotiationStatus = "counter"
)

// NegotiationOutcome is the engine's answer to a customer offer.
// Exactly one of AcceptedFeeCents and CounterFeeCents is set, matching Status.
type NegotiationOutcome struct {
	Status           NegotiationStatus `json:"status"`
	DistanceKm       float64           `json:"distanceKm"`
	BaseFeeCents     int64             `json:"baseFeeCents"`
	MinFeeCents      int64             `json:"minFeeCents"`
	AcceptedFeeCents *int64            `json:"acceptedFeeCents,omitempty"`
	CounterFeeCents  *int64            `json:"counterFeeCents,omitempty"`
}

// FeeCents returns the fee carried by the outcome, whichever status it has.
func (o NegotiationOutcome) FeeCents() int64 {
	if o.AcceptedFeeCents != nil {
		return *o.AcceptedFeeCents
	}
	if o.CounterFeeCents != nil {
		return *o.CounterFeeCents
	}
	return 0
}

// PriceTier maps an inclusive upper distance bound to a flat fee.
type PriceTier struct {
	MaxKm     float64 `json:"maxKm,omitempty"`
	Unbounded bool    `json:"unbounded,omitempty"`
	FeeCents  int64   `json:"feeCents"`
}
