package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galleryBack/internal/models"
)

type fakeSource struct {
	mu           sync.Mutex
	meters       float64
	err          error
	calls        int
	origins      []string
	destinations []string
}

func (f *fakeSource) DistanceMeters(ctx context.Context, origin, destination string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.origins = append(f.origins, origin)
	f.destinations = append(f.destinations, destination)
	return f.meters, f.err
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Infof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

const testOrigin = "1 Gallery Row, New York, NY"

func TestResolverConvertsMetersToKilometres(t *testing.T) {
	src := &fakeSource{meters: 45000}
	r := NewResolver(src, testOrigin, DefaultFallbackKm, &recordingLogger{})

	q, err := r.Resolve(context.Background(), models.ShippingAddress{Address: "12 Elm St", City: "Newark"})
	require.NoError(t, err)
	assert.Equal(t, 45.0, q.DistanceKm)
	assert.False(t, q.Fallback)
	require.Equal(t, 1, src.calls)
	assert.Equal(t, testOrigin, src.origins[0])
}

func TestResolverDestinationJoin(t *testing.T) {
	cases := []struct {
		addr models.ShippingAddress
		want string
	}{
		{models.ShippingAddress{Address: "12 Elm St", City: "Newark"}, "12 Elm St, Newark"},
		{models.ShippingAddress{Address: "12 Elm St", City: "Newark", State: "NJ"}, "12 Elm St, Newark, NJ"},
		{models.ShippingAddress{Address: "12 Elm St", City: "Newark", Country: "USA"}, "12 Elm St, Newark, USA"},
		{models.ShippingAddress{Address: " 12 Elm St ", City: "Newark ", State: " NJ", Country: "USA"}, "12 Elm St, Newark, NJ, USA"},
		{models.ShippingAddress{Address: "12 Elm St", City: "Newark", State: "   "}, "12 Elm St, Newark"},
	}

	for _, tc := range cases {
		src := &fakeSource{meters: 1000}
		r := NewResolver(src, testOrigin, DefaultFallbackKm, nil)
		_, err := r.Resolve(context.Background(), tc.addr)
		require.NoError(t, err)
		require.Len(t, src.destinations, 1)
		assert.Equal(t, tc.want, src.destinations[0])
	}
}

func TestResolverValidationHappensBeforeLookup(t *testing.T) {
	cases := []models.ShippingAddress{
		{City: "Newark"},
		{Address: "12 Elm St"},
		{Address: "   ", City: "Newark"},
		{Address: "12 Elm St", City: "\t"},
	}

	for _, addr := range cases {
		src := &fakeSource{meters: 1000}
		r := NewResolver(src, testOrigin, DefaultFallbackKm, nil)
		_, err := r.Resolve(context.Background(), addr)
		require.Error(t, err)
		assert.True(t, models.IsValidation(err))
		assert.Zero(t, src.calls)
	}
}

func TestResolverFallback(t *testing.T) {
	cases := []struct {
		name   string
		source DistanceSource
	}{
		{"no source", nil},
		{"upstream error", &fakeSource{err: errors.New("dial tcp: connection refused")}},
		{"wrapped upstream error", &fakeSource{err: fmt.Errorf("%w: timeout", models.ErrUpstreamUnavailable)}},
		{"nan", &fakeSource{meters: math.NaN()}},
		{"negative", &fakeSource{meters: -5}},
		{"infinite", &fakeSource{meters: math.Inf(1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger := &recordingLogger{}
			r := NewResolver(tc.source, testOrigin, DefaultFallbackKm, logger)
			q, err := r.Resolve(context.Background(), models.ShippingAddress{Address: "12 Elm St", City: "Newark"})
			require.NoError(t, err)
			assert.Equal(t, 8.0, q.DistanceKm)
			assert.True(t, q.Fallback)
			assert.Equal(t, 1, len(logger.infos)+len(logger.errors))
			if tc.source == nil {
				assert.Len(t, logger.infos, 1)
			} else {
				assert.Len(t, logger.errors, 1)
			}
		})
	}
}

func TestResolverSingleAttempt(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	r := NewResolver(src, testOrigin, DefaultFallbackKm, nil)
	_, err := r.Resolve(context.Background(), models.ShippingAddress{Address: "12 Elm St", City: "Newark"})
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestNewResolverRejectsBadFallback(t *testing.T) {
	r := NewResolver(nil, testOrigin, -1, nil)
	q, err := r.Resolve(context.Background(), models.ShippingAddress{Address: "12 Elm St", City: "Newark"})
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackKm, q.DistanceKm)

	r = NewResolver(nil, testOrigin, 12.5, nil)
	q, err = r.Resolve(context.Background(), models.ShippingAddress{Address: "12 Elm St", City: "Newark"})
	require.NoError(t, err)
	assert.Equal(t, 12.5, q.DistanceKm)
	assert.Equal(t, testOrigin, r.Origin())
}
