package geo

import "math"

// earthRadiusMiles is the mean sphere radius used for great-circle math.
const earthRadiusMiles = 3959.0

// Miles returns the great-circle distance in miles between two points
// given in decimal degrees, using the haversine formula.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	sinLat := math.Sin(dlat / 2)
	sinLon := math.Sin(dlon / 2)
	a := sinLat*sinLat + math.Cos(rlat1)*math.Cos(rlat2)*sinLon*sinLon

	// Floating point error can push the asin argument just outside
	// [-1, 1] for near-identical or antipodal points.
	root := math.Sqrt(a)
	if root > 1 {
		root = 1
	}

	return 2 * math.Asin(root) * earthRadiusMiles
}
