package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"galleryBack/internal/models"
)

const (
	catalogBaseURL = "https://catalog.api.2gis.com"
	routingBaseURL = "https://routing.api.2gis.com"
	defaultLocale  = "en_US"
)

// DGISClient resolves route distances through the 2GIS catalog and routing APIs.
type DGISClient struct {
	httpClient *http.Client
	apiKey     string
	regionID   string
	locale     string
}

// NewDGISClient constructs a new 2GIS client.
func NewDGISClient(httpClient *http.Client, apiKey, regionID string) *DGISClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &DGISClient{httpClient: httpClient, apiKey: apiKey, regionID: regionID, locale: defaultLocale}
}

// tryParseLonLat returns lon,lat if query looks like "lon,lat" (WGS84), otherwise (0,0,false).
func tryParseLonLat(query string) (float64, float64, bool) {
	q := strings.TrimSpace(query)
	sep := ","
	if strings.Contains(q, ";") {
		sep = ";"
	}
	parts := strings.Split(q, sep)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	return lon, lat, true
}

// Geocode returns coordinates (lon, lat) for the given address.
func (c *DGISClient) Geocode(ctx context.Context, query string) (float64, float64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, 0, errors.New("geocode: empty query")
	}
	if lon, lat, ok := tryParseLonLat(query); ok {
		return lon, lat, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("fields", "items.point")
	params.Set("type", "building,street")
	params.Set("search_is_query_text_complete", "true")
	params.Set("locale", c.locale)
	if c.regionID != "" {
		params.Set("region_id", c.regionID)
	}

	endpoint := fmt.Sprintf("%s/3.0/items/geocode?%s", catalogBaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return 0, 0, fmt.Errorf("geocode: http %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var payload struct {
		Result struct {
			Items []struct {
				Point struct {
					Lon float64 `json:"lon"`
					Lat float64 `json:"lat"`
				} `json:"point"`
			} `json:"items"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("geocode: decode: %w", err)
	}
	if len(payload.Result.Items) == 0 {
		return 0, 0, fmt.Errorf("geocode: no results for %q", query)
	}
	p := payload.Result.Items[0].Point
	if p.Lon == 0 && p.Lat == 0 {
		return 0, 0, errors.New("geocode: got zero coordinates")
	}
	return p.Lon, p.Lat, nil
}

// RouteMatrix returns distance (meters) and duration (seconds) between two points.
func (c *DGISClient) RouteMatrix(ctx context.Context, fromLon, fromLat, toLon, toLat float64) (int, int, error) {
	type point struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	payload := struct {
		Points    []point `json:"points"`
		Sources   []int   `json:"sources"`
		Targets   []int   `json:"targets"`
		Transport string  `json:"transport,omitempty"`
		Type      string  `json:"type,omitempty"`
	}{
		Points:    []point{{Lat: fromLat, Lon: fromLon}, {Lat: toLat, Lon: toLon}},
		Sources:   []int{0},
		Targets:   []int{1},
		Transport: "driving",
		Type:      "shortest",
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("version", "2.0")
	q.Set("response_format", "json")
	endpoint := fmt.Sprintf("%s/get_dist_matrix?%s", routingBaseURL, q.Encode())

	body, err := json.Marshal(&payload)
	if err != nil {
		return 0, 0, err
	}

	clone := *c.httpClient
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	client := &clone

	const maxRedirects = 3
	currentURL := endpoint

	for redirects := 0; redirects <= maxRedirects; redirects++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, currentURL, bytes.NewReader(body))
		if err != nil {
			return 0, 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return 0, 0, err
		}

		if resp.StatusCode == http.StatusNoContent {
			resp.Body.Close()
			return 0, 0, errors.New("2gis: route not found (204)")
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location, err := resp.Location()
			resp.Body.Close()
			if err != nil {
				return 0, 0, fmt.Errorf("2gis: redirect: %w", err)
			}
			currentURL = location.String()
			continue
		}

		if resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			return 0, 0, fmt.Errorf("2gis: %s: %s", resp.Status, strings.TrimSpace(string(data)))
		}

		var out struct {
			Routes []struct {
				Status   string `json:"status"`
				Distance int    `json:"distance"`
				Duration int    `json:"duration"`
			} `json:"routes"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return 0, 0, err
		}
		if len(out.Routes) == 0 {
			return 0, 0, errors.New("2gis: empty routes")
		}
		route := out.Routes[0]
		if strings.ToUpper(route.Status) != "OK" {
			return 0, 0, fmt.Errorf("2gis: status=%s", route.Status)
		}
		return route.Distance, route.Duration, nil
	}

	return 0, 0, errors.New("2gis: too many redirects")
}

// DistanceMeters geocodes both addresses and returns the driving distance between them.
// One lookup issues two geocode requests and one route matrix request, each attempted
// once with no retries; any failure fails the whole lookup.
func (c *DGISClient) DistanceMeters(ctx context.Context, origin, destination string) (float64, error) {
	fromLon, fromLat, err := c.Geocode(ctx, origin)
	if err != nil {
		return 0, fmt.Errorf("%w: origin: %v", models.ErrUpstreamUnavailable, err)
	}
	toLon, toLat, err := c.Geocode(ctx, destination)
	if err != nil {
		return 0, fmt.Errorf("%w: destination: %v", models.ErrUpstreamUnavailable, err)
	}
	dist, _, err := c.RouteMatrix(ctx, fromLon, fromLat, toLon, toLat)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	return float64(dist), nil
}
