package geo

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"classattend/internal/metrics"
)

// EarthRadiusMeters is the mean earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Coordinates is a possibly incomplete latitude/longitude pair.
type Coordinates struct {
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}

// Point returns the pair as an orb.Point (lon, lat). ok is false when either
// coordinate is missing.
func (c *Coordinates) Point() (orb.Point, bool) {
	if c == nil || c.Latitude == nil || c.Longitude == nil {
		return orb.Point{}, false
	}
	return orb.Point{*c.Longitude, *c.Latitude}, true
}

// Fix is a device-reported position.
type Fix struct {
	Coordinates
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Site is a class location with an optional radius override.
type Site struct {
	Coordinates
	RadiusMeters *float64 `json:"radius,omitempty"`
}

// Result is the outcome of a proximity check. DistanceMeters is nil when
// coordinates were missing on either side.
type Result struct {
	Valid          bool     `json:"valid"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	RadiusMeters   float64  `json:"radius_meters"`
}

// Validator checks proximity with haversine distances.
type Validator struct {
	DefaultRadiusMeters float64
	EarthRadiusMeters   float64
}

// NewValidator returns a validator; a zero earth radius uses EarthRadiusMeters.
func NewValidator(defaultRadius, earthRadius float64) Validator {
	if earthRadius <= 0 {
		earthRadius = EarthRadiusMeters
	}
	return Validator{DefaultRadiusMeters: defaultRadius, EarthRadiusMeters: earthRadius}
}

// Distance returns the great-circle distance between a and b in meters.
func (v Validator) Distance(a, b orb.Point) float64 {
	return haversine(a, b, v.EarthRadiusMeters)
}

// Validate checks that student lies within the site's radius (or the default
// radius when the site has none). Missing coordinates fail closed.
func (v Validator) Validate(student *Coordinates, site *Site) Result {
	res := Result{RadiusMeters: v.DefaultRadiusMeters}
	if site == nil {
		return res
	}
	if site.RadiusMeters != nil && *site.RadiusMeters > 0 {
		res.RadiusMeters = *site.RadiusMeters
	}

	sp, ok := student.Point()
	if !ok {
		return res
	}
	cp, ok := site.Point()
	if !ok {
		return res
	}

	d := v.Distance(sp, cp)
	res.DistanceMeters = &d
	res.Valid = d <= res.RadiusMeters
	metrics.ProximityDistance.Observe(d)
	return res
}

func haversine(a, b orb.Point, radius float64) float64 {
	lat1 := deg2rad(a.Lat())
	lat2 := deg2rad(b.Lat())
	dLat := lat2 - lat1
	dLon := deg2rad(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return radius * c
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
