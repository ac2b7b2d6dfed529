package deliveryhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galleryBack/internal/delivery/geo"
	"galleryBack/internal/models"
)

type fakeSource struct {
	meters float64
	err    error
	calls  int
}

func (f *fakeSource) DistanceMeters(ctx context.Context, origin, destination string) (float64, error) {
	f.calls++
	return f.meters, f.err
}

type brokenResolver struct{}

func (brokenResolver) Resolve(context.Context, models.ShippingAddress) (models.DistanceQuote, error) {
	return models.DistanceQuote{}, errors.New("socket: too many open files")
}

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

func newTestServer(resolver DistanceResolver) http.Handler {
	mux := pat.New()
	NewServer(testLogger{}, resolver).RegisterRoutes(mux, alice.New())
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var got map[string]interface{}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got), rr.Body.String())
	}
	return rr, got
}

const shipping = `"shipping":{"address":"12 Elm St","city":"Newark","state":"NJ"}`

func TestQuoteFallbackWithoutCredential(t *testing.T) {
	h := newTestServer(geo.NewResolver(nil, "1 Gallery Row", geo.DefaultFallbackKm, testLogger{}))

	rr, got := do(t, h, http.MethodPost, "/delivery/quote", `{`+shipping+`}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, 8.0, got["distanceKm"])
	assert.Equal(t, 500.0, got["feeCents"])
}

func TestQuoteUpstreamFailureFallsBack(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	h := newTestServer(geo.NewResolver(src, "1 Gallery Row", geo.DefaultFallbackKm, testLogger{}))

	rr, got := do(t, h, http.MethodPost, "/delivery/quote", `{`+shipping+`}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 8.0, got["distanceKm"])
	assert.Equal(t, 500.0, got["feeCents"])
	assert.Equal(t, 1, src.calls)
}

func TestQuoteUsesResolvedDistance(t *testing.T) {
	h := newTestServer(geo.NewResolver(&fakeSource{meters: 95000}, "1 Gallery Row", geo.DefaultFallbackKm, testLogger{}))

	rr, got := do(t, h, http.MethodPost, "/delivery/quote", `{`+shipping+`}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 95.0, got["distanceKm"])
	assert.Equal(t, 6000.0, got["feeCents"])
}

func TestNegotiateFortyFiveKilometres(t *testing.T) {
	h := newTestServer(geo.NewResolver(&fakeSource{meters: 45000}, "1 Gallery Row", geo.DefaultFallbackKm, testLogger{}))

	cases := []struct {
		offer      string
		wantStatus string
		feeKey     string
		wantFee    float64
	}{
		{"2000", "counter", "counterFeeCents", 2800},
		{"3000", "counter", "counterFeeCents", 3500},
		{"3500", "accepted", "acceptedFeeCents", 3500},
		{"4000", "accepted", "acceptedFeeCents", 4000},
	}

	for _, tc := range cases {
		t.Run(tc.offer, func(t *testing.T) {
			rr, got := do(t, h, http.MethodPost, "/delivery/negotiate", `{`+shipping+`,"offeredFeeCents":`+tc.offer+`}`)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tc.wantStatus, got["status"])
			assert.Equal(t, 45.0, got["distanceKm"])
			assert.Equal(t, 3500.0, got["baseFeeCents"])
			assert.Equal(t, 2800.0, got["minFeeCents"])
			assert.Equal(t, tc.wantFee, got[tc.feeKey])
			other := "acceptedFeeCents"
			if tc.feeKey == other {
				other = "counterFeeCents"
			}
			assert.NotContains(t, got, other)
		})
	}
}

func TestValidationErrors(t *testing.T) {
	src := &fakeSource{meters: 45000}
	h := newTestServer(geo.NewResolver(src, "1 Gallery Row", geo.DefaultFallbackKm, testLogger{}))

	cases := []struct {
		name string
		path string
		body string
	}{
		{"quote missing city", "/delivery/quote", `{"shipping":{"address":"12 Elm St"}}`},
		{"quote missing address", "/delivery/quote", `{"shipping":{"city":"Newark"}}`},
		{"quote blank city", "/delivery/quote", `{"shipping":{"address":"12 Elm St","city":"  "}}`},
		{"quote missing shipping", "/delivery/quote", `{}`},
		{"quote invalid json", "/delivery/quote", `{"shipping":`},
		{"quote empty body", "/delivery/quote", ``},
		{"negotiate missing city", "/delivery/negotiate", `{"shipping":{"address":"12 Elm St"},"offeredFeeCents":1000}`},
		{"negotiate zero offer", "/delivery/negotiate", `{` + shipping + `,"offeredFeeCents":0}`},
		{"negotiate negative offer", "/delivery/negotiate", `{` + shipping + `,"offeredFeeCents":-50}`},
		{"negotiate string offer", "/delivery/negotiate", `{` + shipping + `,"offeredFeeCents":"lots"}`},
		{"negotiate null offer", "/delivery/negotiate", `{` + shipping + `,"offeredFeeCents":null}`},
		{"negotiate missing offer", "/delivery/negotiate", `{` + shipping + `}`},
		{"negotiate offer beyond int64 cents", "/delivery/negotiate", `{` + shipping + `,"offeredFeeCents":1e19}`},
		{"negotiate huge offer", "/delivery/negotiate", `{` + shipping + `,"offeredFeeCents":1e300}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, got := do(t, h, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.NotEmpty(t, got["error"])
		})
	}
	assert.Zero(t, src.calls, "validation must run before the distance lookup")
}

func TestInternalFault(t *testing.T) {
	h := newTestServer(brokenResolver{})

	rr, got := do(t, h, http.MethodPost, "/delivery/quote", `{`+shipping+`}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", got["error"])

	rr, _ = do(t, h, http.MethodPost, "/delivery/negotiate", `{`+shipping+`,"offeredFeeCents":100}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestPostOnly(t *testing.T) {
	h := newTestServer(geo.NewResolver(nil, "1 Gallery Row", geo.DefaultFallbackKm, nil))

	req := httptest.NewRequest(http.MethodGet, "/delivery/quote", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestTiers(t *testing.T) {
	h := newTestServer(geo.NewResolver(nil, "1 Gallery Row", geo.DefaultFallbackKm, nil))

	rr, got := do(t, h, http.MethodGet, "/delivery/tiers", "")
	require.Equal(t, http.StatusOK, rr.Code)
	tiers, ok := got["tiers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tiers, 5)
	assert.Equal(t, 300.0, got["minFeeFloorCents"])
}
