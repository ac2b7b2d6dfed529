package delivery

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"galleryBack/internal/delivery/geo"
)

const (
	defaultOriginAddress = "1 Gallery Row, New York, NY 10013, USA"
	defaultFallbackKm    = geo.DefaultFallbackKm
	defaultHTTPTimeout   = 8 * time.Second

	ProviderMatrix = "matrix"
	ProviderDGIS   = "2gis"
)

// DeliveryConfig holds runtime configuration for the delivery pricing module.
type DeliveryConfig struct {
	OriginAddress  string
	DistanceAPIKey string
	Provider       string
	MatrixURL      string
	DGISRegionID   string
	FallbackKm     float64
	HTTPTimeout    time.Duration
}

// LoadDeliveryConfig reads configuration from environment variables and applies defaults.
// A missing DISTANCE_API_KEY is allowed: every lookup then uses the fallback distance.
func LoadDeliveryConfig() (DeliveryConfig, error) {
	cfg := DeliveryConfig{
		OriginAddress: defaultOriginAddress,
		Provider:      ProviderMatrix,
		FallbackKm:    defaultFallbackKm,
		HTTPTimeout:   defaultHTTPTimeout,
	}

	if v := strings.TrimSpace(os.Getenv("GALLERY_ORIGIN_ADDRESS")); v != "" {
		cfg.OriginAddress = v
	}
	cfg.DistanceAPIKey = strings.TrimSpace(os.Getenv("DISTANCE_API_KEY"))
	cfg.MatrixURL = strings.TrimSpace(os.Getenv("DISTANCE_API_BASE_URL"))
	cfg.DGISRegionID = os.Getenv("DGIS_REGION_ID")

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("DISTANCE_PROVIDER"))); v != "" {
		cfg.Provider = v
	}

	if v, err := readFloatEnv("FALLBACK_DISTANCE_KM"); err != nil {
		return DeliveryConfig{}, fmt.Errorf("parse FALLBACK_DISTANCE_KM: %w", err)
	} else if v != nil {
		cfg.FallbackKm = *v
	}

	if v := os.Getenv("DISTANCE_HTTP_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return DeliveryConfig{}, fmt.Errorf("parse DISTANCE_HTTP_TIMEOUT_SECONDS: %w", err)
		}
		cfg.HTTPTimeout = time.Duration(secs) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return DeliveryConfig{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c DeliveryConfig) Validate() error {
	switch c.Provider {
	case ProviderMatrix, ProviderDGIS:
	default:
		return fmt.Errorf("DISTANCE_PROVIDER must be %q or %q, got %q", ProviderMatrix, ProviderDGIS, c.Provider)
	}
	if c.OriginAddress == "" {
		return fmt.Errorf("origin address is required")
	}
	if c.FallbackKm < 0 {
		return fmt.Errorf("FALLBACK_DISTANCE_KM must be >= 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("DISTANCE_HTTP_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func readFloatEnv(name string) (*float64, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
