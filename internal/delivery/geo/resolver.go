package geo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"galleryBack/internal/models"
)

// DefaultFallbackKm is substituted whenever the upstream lookup cannot be used.
const DefaultFallbackKm = 8.0

// Logger is the logging surface the resolver needs.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DistanceSource looks up the distance in meters between two free-form addresses.
type DistanceSource interface {
	DistanceMeters(ctx context.Context, origin, destination string) (float64, error)
}

// Resolver turns a shipping address into a distance from the gallery.
type Resolver struct {
	source     DistanceSource
	origin     string
	fallbackKm float64
	logger     Logger
}

// NewResolver builds a Resolver. A nil source means no credential is configured
// and every lookup yields the fallback distance.
func NewResolver(source DistanceSource, origin string, fallbackKm float64, logger Logger) *Resolver {
	if fallbackKm < 0 || math.IsNaN(fallbackKm) || math.IsInf(fallbackKm, 0) {
		fallbackKm = DefaultFallbackKm
	}
	return &Resolver{source: source, origin: origin, fallbackKm: fallbackKm, logger: logger}
}

// Origin returns the fixed origin address.
func (r *Resolver) Origin() string { return r.origin }

// Resolve validates addr and returns its distance from the origin. Upstream
// failures are logged and replaced by the fallback distance.
func (r *Resolver) Resolve(ctx context.Context, addr models.ShippingAddress) (models.DistanceQuote, error) {
	addr.Normalize()
	if err := addr.Validate(); err != nil {
		return models.DistanceQuote{}, err
	}
	destination := addr.Destination()

	if r.source == nil {
		return r.fallback(destination, models.ErrNoDistanceSource), nil
	}

	meters, err := r.source.DistanceMeters(ctx, r.origin, destination)
	if err != nil {
		if !errors.Is(err, models.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
		}
		return r.fallback(destination, err), nil
	}
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters < 0 {
		return r.fallback(destination, fmt.Errorf("%w: unusable distance %v", models.ErrUpstreamUnavailable, meters)), nil
	}

	return models.DistanceQuote{DistanceKm: meters / 1000}, nil
}

func (r *Resolver) fallback(destination string, cause error) models.DistanceQuote {
	if r.logger != nil {
		if errors.Is(cause, models.ErrNoDistanceSource) {
			r.logger.Infof("distance: no source configured, using %.1f km for %q", r.fallbackKm, destination)
		} else {
			r.logger.Errorf("distance: lookup failed for %q, using %.1f km: %v", destination, r.fallbackKm, cause)
		}
	}
	return models.DistanceQuote{DistanceKm: r.fallbackKm, Fallback: true}
}
