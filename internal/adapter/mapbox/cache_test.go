package mapbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/open-observatory/internal/domain"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       domain.GeocodingResult
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, nil
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, nil
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: 49.23, Lon: 1.81, PlaceName: "Gisors", FormattedAddress: "Gisors, France"},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	r1, err := cached.ForwardGeocode(context.Background(), "Gisors")
	require.NoError(t, err)
	assert.Equal(t, "Gisors", r1.PlaceName)

	// Same search, different case and padding.
	r2, err := cached.ForwardGeocode(context.Background(), "  gisors ")
	require.NoError(t, err)
	assert.Equal(t, "Gisors", r2.PlaceName)

	assert.Equal(t, 1, inner.forwardCalls, "should only call inner once")
}

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Gisors, France"},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, err := cached.ReverseGeocode(context.Background(), 49.2332, 1.813)
	require.NoError(t, err)

	_, err = cached.ReverseGeocode(context.Background(), 49.2332, 1.813)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls, "should only call inner once")
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{PlaceName: "Place", FormattedAddress: "Place, France"},
	}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "Gisors")
	_, _ = cached.ForwardGeocode(context.Background(), "Beauvais")

	assert.Equal(t, 2, inner.forwardCalls)
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis")
	_, _ = cached.ForwardGeocode(context.Background(), "Atlantis")

	assert.Equal(t, 2, inner.forwardCalls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result.PlaceName)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	c.put("c", domain.GeocodingResult{PlaceName: "C"}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result.PlaceName)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.PlaceName)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})

	c.get("a")

	// "b" is now least recently used.
	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A1"})
	c.put("a", domain.GeocodingResult{PlaceName: "A2"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.PlaceName)
}
