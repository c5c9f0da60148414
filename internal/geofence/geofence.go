// Package geofence tests captured locations against company site boundaries.
//
// Only circular boundaries are evaluated. Polygon sites are recognised but
// reported as unsupported and never match.
package geofence

import "math"

// EarthRadiusM is the spherical Earth radius used by the haversine formula.
const EarthRadiusM = 6371e3

// DefaultLowAccuracyThresholdM is the accuracy radius above which a reading
// is flagged as low accuracy.
const DefaultLowAccuracyThresholdM = 50.0

// Shape is the kind of boundary a site declares.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapePolygon Shape = "polygon"
)

// Site is a geofence boundary belonging to a company. Circle fields are
// pointers so that a zero coordinate is distinguishable from a missing one.
type Site struct {
	ID           string       `json:"id"`
	CompanyID    string       `json:"companyId"`
	Name         string       `json:"name"`
	GeofenceType Shape        `json:"geofenceType"`
	CenterLat    *float64     `json:"centerLat,omitempty"`
	CenterLng    *float64     `json:"centerLng,omitempty"`
	RadiusM      *float64     `json:"radiusM,omitempty"`
	Polygon      [][2]float64 `json:"polygon,omitempty"`
}

// IsCircle reports whether the site carries a complete, usable circle.
func (s Site) IsCircle() bool {
	return s.GeofenceType == ShapeCircle &&
		s.CenterLat != nil && s.CenterLng != nil &&
		s.RadiusM != nil && *s.RadiusM > 0
}

// Point is an observed location.
type Point struct {
	Lat float64
	Lng float64
}

// Result is the outcome of an evaluation.
type Result struct {
	Inside bool
	// SiteID is the first matching site in input order, nil when outside.
	SiteID *string
	// Unsupported counts sites skipped because their shape is not evaluated.
	Unsupported int
}

// Evaluate returns the first site in iteration order whose circle contains
// point. First match wins, not the nearest. A nil point is always outside.
func Evaluate(point *Point, sites []Site) Result {
	var res Result
	if point == nil {
		return res
	}
	for _, site := range sites {
		if site.GeofenceType == ShapePolygon {
			res.Unsupported++
			continue
		}
		if !site.IsCircle() {
			continue
		}
		if Contains(site, *point) {
			siteID := site.ID
			res.Inside = true
			res.SiteID = &siteID
			return res
		}
	}
	return res
}

// Contains reports whether point lies within the site's circle, boundary
// included. Non-circle sites never contain anything.
func Contains(site Site, point Point) bool {
	if !site.IsCircle() {
		return false
	}
	return HaversineDistance(point.Lat, point.Lng, *site.CenterLat, *site.CenterLng) <= *site.RadiusM
}

// HaversineDistance returns the great-circle distance in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// IsLowAccuracy reports whether accuracyM exceeds threshold. A non-positive
// threshold falls back to DefaultLowAccuracyThresholdM.
func IsLowAccuracy(accuracyM, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultLowAccuracyThresholdM
	}
	return accuracyM > threshold
}
