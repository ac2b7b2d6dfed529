package deliveryhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"galleryBack/internal/delivery/pricing"
	"galleryBack/internal/models"
)

const maxBodyBytes = 64 << 10

// Logger is a minimal logger interface required by the server.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DistanceResolver maps a shipping address to a distance from the gallery.
type DistanceResolver interface {
	Resolve(ctx context.Context, addr models.ShippingAddress) (models.DistanceQuote, error)
}

// Server handles HTTP endpoints for delivery pricing.
type Server struct {
	logger   Logger
	resolver DistanceResolver
}

// NewServer constructs Server.
func NewServer(logger Logger, resolver DistanceResolver) *Server {
	return &Server{logger: logger, resolver: resolver}
}

// RegisterRoutes registers delivery routes on mux behind chain.
func (s *Server) RegisterRoutes(mux *pat.PatternServeMux, chain alice.Chain) {
	mux.Post("/delivery/quote", chain.ThenFunc(s.handleQuote))
	mux.Post("/delivery/negotiate", chain.ThenFunc(s.handleNegotiate))
	mux.Get("/delivery/tiers", chain.ThenFunc(s.handleTiers))
}

type quoteRequest struct {
	Shipping *models.ShippingAddress `json:"shipping"`
}

type quoteResponse struct {
	DistanceKm float64 `json:"distanceKm"`
	FeeCents   int64   `json:"feeCents"`
}

type negotiateRequest struct {
	Shipping        *models.ShippingAddress `json:"shipping"`
	OfferedFeeCents *float64                `json:"offeredFeeCents"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := shippingFrom(req.Shipping)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	quote, err := s.resolver.Resolve(r.Context(), addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		DistanceKm: quote.DistanceKm,
		FeeCents:   pricing.Quote(quote.DistanceKm),
	})
}

func (s *Server) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	var req negotiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := shippingFrom(req.Shipping)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.OfferedFeeCents == nil {
		s.fail(w, r, models.NewValidationError("offeredFeeCents", "is required"))
		return
	}
	if err := pricing.ValidateOffer(*req.OfferedFeeCents); err != nil {
		s.fail(w, r, err)
		return
	}

	quote, err := s.resolver.Resolve(r.Context(), addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	outcome, err := pricing.Negotiate(quote.DistanceKm, *req.OfferedFeeCents)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.logger != nil {
		s.logger.Infof("negotiate %s: offered=%.0f distance=%.2fkm base=%d min=%d -> %s %d",
			requestID(r), *req.OfferedFeeCents, outcome.DistanceKm, outcome.BaseFeeCents,
			outcome.MinFeeCents, outcome.Status, outcome.FeeCents())
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tiers":            pricing.Tiers(),
		"minFeeFloorCents": pricing.MinFeeFloorCents,
	})
}

func shippingFrom(p *models.ShippingAddress) (models.ShippingAddress, error) {
	if p == nil {
		return models.ShippingAddress{}, models.NewValidationError("shipping", "is required")
	}
	addr := *p
	addr.Normalize()
	if err := addr.Validate(); err != nil {
		return models.ShippingAddress{}, err
	}
	return addr, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		if typeErr.Field == "offeredFeeCents" {
			return models.NewValidationError("offeredFeeCents", "must be a number")
		}
		return models.NewValidationError(typeErr.Field, "has the wrong type")
	case errors.As(err, &maxErr):
		return models.NewValidationError("", "request body too large")
	case errors.Is(err, io.EOF):
		return models.NewValidationError("", "request body is empty")
	default:
		return models.NewValidationError("", "invalid json")
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if models.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.logger != nil {
		s.logger.Errorf("%s %s %s: %v", requestID(r), r.Method, r.URL.Path, err)
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return "-"
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
