package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0-1.0 provider confidence score
	// Found is set when the provider matched the query to a point. (0, 0) is
	// a valid point, so the coordinates alone cannot tell.
	Found bool
}

// Geocoder resolves place searches to points and points to place labels.
type Geocoder interface {
	// ForwardGeocode converts a free-text place query to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
