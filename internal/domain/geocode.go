package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Place is the label shown in a record's marker popup.
type Place struct {
	Label  string
	Source string // "reverse", "original", "failed"
}

// MinPlaceConfidence is the lowest provider confidence a place search result
// needs before it moves the marker.
const MinPlaceConfidence = 0.5

// PlaceMarker resolves a place search and binds the result to the marker.
// It is an explicit map interaction: the marker is only touched when the
// geocoder returns a point with at least MinPlaceConfidence.
func PlaceMarker(ctx context.Context, marker *MarkerPlacement, query string, geocoder Geocoder) (GeocodingResult, error) {
	if geocoder == nil {
		return GeocodingResult{}, errors.New("place search is not configured")
	}
	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		return GeocodingResult{}, &NetworkError{Op: "place search", Err: err}
	}
	if result.Found && result.Confidence < MinPlaceConfidence {
		return result, fmt.Errorf("no confident match for %q (%.2f): %w", query, result.Confidence, ErrNotFound)
	}
	if !marker.PlaceFromGeocode(result) {
		return result, fmt.Errorf("no place found for %q: %w", query, ErrNotFound)
	}
	return result, nil
}

// DescribePlace labels a coordinate. If geocoder is nil or reverse geocoding
// fails, the coordinate itself is used (graceful degradation).
func DescribePlace(ctx context.Context, point Coordinate, geocoder Geocoder, logger *slog.Logger) Place {
	fallback := Place{Label: point.String(), Source: "original"}
	if geocoder == nil {
		return fallback
	}

	result, err := geocoder.ReverseGeocode(ctx, point.Lat, point.Lng)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", point.Lat,
			"lng", point.Lng,
			"error", err,
		)
		fallback.Source = "failed"
		return fallback
	}
	if result.FormattedAddress == "" {
		return fallback
	}
	return Place{Label: result.FormattedAddress, Source: "reverse"}
}
