package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"galleryBack/internal/models"
)

// DefaultMatrixURL is the distance-matrix endpoint used when none is configured.
const DefaultMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// DistanceMatrixClient queries a distance-matrix API for a single origin/destination pair.
type DistanceMatrixClient struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
}

// NewDistanceMatrixClient constructs a client. An empty endpoint selects DefaultMatrixURL.
func NewDistanceMatrixClient(httpClient *http.Client, apiKey, endpoint string) *DistanceMatrixClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	if endpoint == "" {
		endpoint = DefaultMatrixURL
	}
	return &DistanceMatrixClient{httpClient: httpClient, apiKey: apiKey, endpoint: endpoint}
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance *struct {
				Value *float64 `json:"value"`
				Text  string   `json:"text"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

// DistanceMeters returns the distance of the primary element in meters.
func (c *DistanceMatrixClient) DistanceMeters(ctx context.Context, origin, destination string) (float64, error) {
	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("units", "metric")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("matrix: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return 0, fmt.Errorf("%w: matrix http %s: %s", models.ErrUpstreamUnavailable, resp.Status, strings.TrimSpace(string(b)))
	}

	var out matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: matrix decode: %v", models.ErrUpstreamUnavailable, err)
	}
	if out.Status != "" && out.Status != "OK" {
		return 0, fmt.Errorf("%w: matrix status=%s %s", models.ErrUpstreamUnavailable, out.Status, out.ErrorMessage)
	}
	if len(out.Rows) == 0 || len(out.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("%w: matrix: empty rows", models.ErrUpstreamUnavailable)
	}
	el := out.Rows[0].Elements[0]
	if el.Status != "" && el.Status != "OK" {
		return 0, fmt.Errorf("%w: matrix element status=%s", models.ErrUpstreamUnavailable, el.Status)
	}
	if el.Distance == nil || el.Distance.Value == nil {
		return 0, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, errors.New("matrix: element has no distance"))
	}
	return *el.Distance.Value, nil
}
