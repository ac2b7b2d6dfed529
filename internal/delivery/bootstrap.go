package delivery

import (
	"context"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"galleryBack/internal/delivery/geo"
	deliveryhttp "galleryBack/internal/delivery/http"
	"galleryBack/internal/models"
)

type moduleState struct {
	source   geo.DistanceSource
	resolver *geo.Resolver
	server   *deliveryhttp.Server
}

func ensureModule(deps *DeliveryDeps) (*moduleState, error) {
	deps.mu.Lock()
	defer deps.mu.Unlock()

	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}

	source := newDistanceSource(deps)
	resolver := geo.NewResolver(source, deps.Config.OriginAddress, deps.Config.FallbackKm, deps.Logger)
	server := deliveryhttp.NewServer(deps.Logger, resolver)

	if source == nil {
		deps.Logger.Infof("delivery: DISTANCE_API_KEY not set, quoting every address at %.1f km", deps.Config.FallbackKm)
	} else {
		deps.Logger.Infof("delivery: using %s distance provider from %q", deps.Config.Provider, deps.Config.OriginAddress)
	}

	deps.module = &moduleState{
		source:   source,
		resolver: resolver,
		server:   server,
	}
	return deps.module, nil
}

// newDistanceSource returns nil when no credential is configured.
func newDistanceSource(deps *DeliveryDeps) geo.DistanceSource {
	cfg := deps.Config
	if cfg.DistanceAPIKey == "" {
		return nil
	}
	switch cfg.Provider {
	case ProviderDGIS:
		return geo.NewDGISClient(deps.HTTPClient, cfg.DistanceAPIKey, cfg.DGISRegionID)
	default:
		return geo.NewDistanceMatrixClient(deps.HTTPClient, cfg.DistanceAPIKey, cfg.MatrixURL)
	}
}

// RegisterDeliveryRoutes wires the delivery endpoints into mux behind chain.
func RegisterDeliveryRoutes(mux *pat.PatternServeMux, chain alice.Chain, deps *DeliveryDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	module.server.RegisterRoutes(mux, chain)
	return nil
}

// ResolveDistance exposes the resolver to in-process callers such as the checkout flow.
func ResolveDistance(ctx context.Context, deps *DeliveryDeps, addr models.ShippingAddress) (models.DistanceQuote, error) {
	module, err := ensureModule(deps)
	if err != nil {
		return models.DistanceQuote{}, err
	}
	return module.resolver.Resolve(ctx, addr)
}
