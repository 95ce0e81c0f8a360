package domain

import (
	"fmt"
	"math"
)

// NearbyRadiusKm is the radius the platform uses for "observations near me".
const NearbyRadiusKm = 30.0

const earthRadiusKm = 6371.0

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(a, b Coordinate) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearby returns the records whose marker lies within radiusKm of point,
// preserving input order.
func Nearby(records []Record, point Coordinate, radiusKm float64) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if DistanceKm(point, r.Coordinate) <= radiusKm {
			out = append(out, r)
		}
	}
	return out
}
