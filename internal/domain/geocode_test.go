package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	forwardResult GeocodingResult
	forwardErr    error
	reverseResult GeocodingResult
	reverseErr    error
	forwardCalls  int
	reverseCalls  int
	lastQuery     string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) (GeocodingResult, error) {
	m.forwardCalls++
	m.lastQuery = query
	return m.forwardResult, m.forwardErr
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.reverseCalls++
	return m.reverseResult, m.reverseErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestDescribePlace_NilGeocoder(t *testing.T) {
	place := DescribePlace(context.Background(), testPoint, nil, discardLogger())

	assert.Equal(t, "original", place.Source)
	assert.Equal(t, "49.2332, 1.8130", place.Label)
}

func TestDescribePlace_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{
		reverseResult: GeocodingResult{
			FormattedAddress: "Gisors, Eure, France",
			PlaceName:        "Gisors",
			Confidence:       0.98,
		},
	}

	place := DescribePlace(context.Background(), testPoint, geo, discardLogger())

	assert.Equal(t, "reverse", place.Source)
	assert.Equal(t, "Gisors, Eure, France", place.Label)
	assert.Equal(t, 0, geo.forwardCalls)
	assert.Equal(t, 1, geo.reverseCalls)
}

func TestDescribePlace_ReverseError_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{reverseErr: errors.New("rate limited")}

	place := DescribePlace(context.Background(), testPoint, geo, discardLogger())

	assert.Equal(t, "failed", place.Source)
	assert.Equal(t, testPoint.String(), place.Label) // coordinate kept as label
}

func TestDescribePlace_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}

	place := DescribePlace(context.Background(), testPoint, geo, discardLogger())

	assert.Equal(t, "original", place.Source)
	assert.Equal(t, 1, geo.reverseCalls)
}

func TestPlaceMarker_BindsResult(t *testing.T) {
	geo := &mockGeocoder{
		forwardResult: GeocodingResult{
			Lat:              49.2332,
			Lon:              1.813,
			FormattedAddress: "Gisors, Eure, France",
			PlaceName:        "Gisors",
			Confidence:       0.9,
			Found:            true,
		},
	}
	d := NewDraft()

	result, err := PlaceMarker(context.Background(), d.Marker(), "Gisors", geo)
	require.NoError(t, err)

	assert.Equal(t, "Gisors", geo.lastQuery)
	assert.Equal(t, "Gisors", result.PlaceName)
	point, ok := d.Marker().CurrentPoint()
	require.True(t, ok)
	assert.Equal(t, testPoint, point)
}

func TestPlaceMarker_NoMatchLeavesMarker(t *testing.T) {
	geo := &mockGeocoder{}
	d := NewDraft()
	d.Marker().OnMapInteraction(testPoint)

	_, err := PlaceMarker(context.Background(), d.Marker(), "Atlantis", geo)
	require.ErrorIs(t, err, ErrNotFound)

	point, _ := d.Marker().CurrentPoint()
	assert.Equal(t, testPoint, point)
}

func TestPlaceMarker_LowConfidenceLeavesMarker(t *testing.T) {
	geo := &mockGeocoder{
		forwardResult: GeocodingResult{
			Lat:              -33.9,
			Lon:              18.4,
			FormattedAddress: "Gisors Street, Cape Town",
			Confidence:       0.3,
			Found:            true,
		},
	}
	d := NewDraft()
	d.Marker().OnMapInteraction(testPoint)

	result, err := PlaceMarker(context.Background(), d.Marker(), "Gisors", geo)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0.3, result.Confidence)

	point, _ := d.Marker().CurrentPoint()
	assert.Equal(t, testPoint, point)
}

func TestPlaceMarker_ProviderError(t *testing.T) {
	geo := &mockGeocoder{forwardErr: errors.New("API timeout")}
	d := NewDraft()

	_, err := PlaceMarker(context.Background(), d.Marker(), "Gisors", geo)

	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "place search", nerr.Op)
	_, ok := d.Marker().CurrentPoint()
	assert.False(t, ok)
}

func TestPlaceMarker_NilGeocoder(t *testing.T) {
	_, err := PlaceMarker(context.Background(), NewDraft().Marker(), "Gisors", nil)
	assert.Error(t, err)
}
