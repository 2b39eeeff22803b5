package scoring

import (
	"math"
)

const earthRadiusKM = 6371.0088

// HaversineKM returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sinLon*sinLon
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// GeoScore converts the distance between two reports into a similarity with a
// linear falloff out to maxDistanceKM. Nil when either report has no
// coordinates.
func GeoScore(a, b Subject, maxDistanceKM float64) *float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() || maxDistanceKM <= 0 {
		return nil
	}
	if !validCoordinate(*a.Latitude, *a.Longitude) || !validCoordinate(*b.Latitude, *b.Longitude) {
		return nil
	}

	distance := HaversineKM(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	score := clamp01(1 - distance/maxDistanceKM)
	return &score
}

// TemporalScore converts the gap between occurred-at timestamps into a
// similarity with a linear falloff over maxWindowHours. Nil when either
// report has no occurred-at timestamp.
func TemporalScore(a, b Subject, maxWindowHours float64) *float64 {
	if a.OccurredAt == nil || b.OccurredAt == nil || maxWindowHours <= 0 {
		return nil
	}

	deltaHours := math.Abs(a.OccurredAt.Sub(*b.OccurredAt).Hours())
	score := clamp01(1 - deltaHours/maxWindowHours)
	return &score
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
