package mapbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token   string
	http    *resty.Client
	baseURL string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		http:    resty.New().SetTimeout(timeout),
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves a free-text place search to its best match.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	return c.doRequest(ctx, u, map[string]string{
		"limit": "1",
		"types": "place,locality,poi",
	}, "forward")
}

// ReverseGeocode converts coordinates to place details.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	u := fmt.Sprintf("%s/%.6f,%.6f.json", c.baseURL, lon, lat)
	return c.doRequest(ctx, u, map[string]string{"limit": "1"}, "reverse")
}

func (c *Client) doRequest(ctx context.Context, fullURL string, params map[string]string, method string) (domain.GeocodingResult, error) {
	var body response
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("access_token", c.token).
		SetResult(&body).
		Get(fullURL)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("%s geocode request: %w", method, err)
	}
	if resp.IsError() {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		c.logger.Warn("mapbox API error", "method", method, "status", resp.StatusCode())
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode(), resp.String())
	}

	if len(body.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues(method, "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()

	f := body.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
		result.Found = true
	}
	return result, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
