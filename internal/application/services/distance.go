package services

import "math"

// Haversine returns the great-circle distance in kilometers between two
// coordinates (Earth radius 6371 km). Identical points yield 0.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const p = math.Pi / 180

	a := 0.5 - math.Cos((lat2-lat1)*p)/2 +
		math.Cos(lat1*p)*math.Cos(lat2*p)*(1-math.Cos((lon2-lon1)*p))/2

	// Guard against float drift pushing a outside asin's domain for
	// identical or antipodal points.
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}

	return 12742 * math.Asin(math.Sqrt(a))
}
