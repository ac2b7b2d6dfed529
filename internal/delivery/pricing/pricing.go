package pricing

import (
	"cmp"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"galleryBack/internal/models"
)

// MinFeeFloorCents is the lowest minimum fee ever quoted ($3.00).
const MinFeeFloorCents int64 = 300

// Offers at or above this cannot be held as int64 cents.
const maxOfferCents = float64(math.MaxInt64)

var (
	minFeeRatio    = decimal.RequireFromString("0.8")
	centsPerDollar = decimal.NewFromInt(100)
)

type tier struct {
	maxKm  float64
	feeUSD decimal.Decimal
}

// Ascending by maxKm; the first bound that holds wins.
var tiers = []tier{
	{maxKm: 10, feeUSD: decimal.NewFromInt(5)},
	{maxKm: 30, feeUSD: decimal.NewFromInt(15)},
	{maxKm: 80, feeUSD: decimal.NewFromInt(35)},
	{maxKm: 150, feeUSD: decimal.NewFromInt(60)},
	{maxKm: math.Inf(1), feeUSD: decimal.NewFromInt(90)},
}

func init() {
	if !slices.IsSortedFunc(tiers, func(a, b tier) int { return cmp.Compare(a.maxKm, b.maxKm) }) {
		panic("pricing: tiers must be sorted by distance")
	}
}

func toCents(usd decimal.Decimal) int64 {
	return usd.Mul(centsPerDollar).Round(0).IntPart()
}

// Quote returns the base delivery fee in cents for the given distance.
func Quote(distanceKm float64) int64 {
	for _, t := range tiers {
		if distanceKm <= t.maxKm {
			return toCents(t.feeUSD)
		}
	}
	return toCents(tiers[len(tiers)-1].feeUSD)
}

// MinFee returns 80% of the base fee, never below MinFeeFloorCents.
func MinFee(baseFeeCents int64) int64 {
	m := decimal.NewFromInt(baseFeeCents).Mul(minFeeRatio).Round(0).IntPart()
	if m < MinFeeFloorCents {
		return MinFeeFloorCents
	}
	return m
}

// ValidateOffer rejects offers that are not finite positive numbers.
func ValidateOffer(offeredFeeCents float64) error {
	if math.IsNaN(offeredFeeCents) || math.IsInf(offeredFeeCents, 0) {
		return models.NewValidationError("offeredFeeCents", "must be a finite number")
	}
	if offeredFeeCents <= 0 {
		return models.NewValidationError("offeredFeeCents", "must be greater than zero")
	}
	if offeredFeeCents >= maxOfferCents {
		return models.NewValidationError("offeredFeeCents", "is too large")
	}
	return nil
}

// Negotiate answers a customer's fee offer with an acceptance or a counter-offer.
func Negotiate(distanceKm, offeredFeeCents float64) (models.NegotiationOutcome, error) {
	if err := ValidateOffer(offeredFeeCents); err != nil {
		return models.NegotiationOutcome{}, err
	}

	base := Quote(distanceKm)
	minFee := MinFee(base)
	out := models.NegotiationOutcome{
		DistanceKm:   distanceKm,
		BaseFeeCents: base,
		MinFeeCents:  minFee,
	}

	switch {
	case offeredFeeCents >= float64(base):
		accepted := int64(math.Round(offeredFeeCents))
		out.Status = models.NegotiationAccepted
		out.AcceptedFeeCents = &accepted
	case offeredFeeCents >= float64(minFee):
		out.Status = models.NegotiationCounter
		out.CounterFeeCents = &base
	default:
		out.Status = models.NegotiationCounter
		out.CounterFeeCents = &minFee
	}
	return out, nil
}

// Tiers returns the fee table in evaluation order.
func Tiers() []models.PriceTier {
	res := make([]models.PriceTier, 0, len(tiers))
	for _, t := range tiers {
		pt := models.PriceTier{FeeCents: toCents(t.feeUSD)}
		if math.IsInf(t.maxKm, 1) {
			pt.Unbounded = true
		} else {
			pt.MaxKm = t.maxKm
		}
		res = append(res, pt)
	}
	return res
}
