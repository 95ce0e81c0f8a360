package domain

// MarkerPlacement binds a single geographic point to a draft. It is mutated
// only through map interactions.
type MarkerPlacement struct {
	point *Coordinate
}

// OnMapInteraction replaces the bound point. Values are not range-checked.
func (m *MarkerPlacement) OnMapInteraction(p Coordinate) {
	m.point = &p
}

// CurrentPoint returns the bound point, if any.
func (m *MarkerPlacement) CurrentPoint() (Coordinate, bool) {
	if m.point == nil {
		return Coordinate{}, false
	}
	return *m.point, true
}

// Clear unbinds the marker.
func (m *MarkerPlacement) Clear() {
	m.point = nil
}

// PlaceFromGeocode binds the point of a place-search result. Results that
// were not found leave the marker untouched and return false.
func (m *MarkerPlacement) PlaceFromGeocode(result GeocodingResult) bool {
	if !result.Found {
		return false
	}
	m.OnMapInteraction(Coordinate{Lat: result.Lat, Lng: result.Lon})
	return true
}
