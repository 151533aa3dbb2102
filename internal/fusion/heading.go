package fusion

import (
	"math"

	"github.com/dumacp/gpsnmea"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// LatLon is a position in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bearing returns the initial great-circle bearing from p0 to p1 in degrees,
// in [0, 360). Equal points give 0.
func Bearing(p0, p1 LatLon) float64 {
	a := s2.LatLngFromDegrees(p0.Lat, p0.Lon)
	b := s2.LatLngFromDegrees(p1.Lat, p1.Lon)
	dLon := float64(b.Lng - a.Lng)

	y := math.Sin(dLon) * math.Cos(float64(b.Lat))
	x := math.Cos(float64(a.Lat))*math.Sin(float64(b.Lat)) -
		math.Sin(float64(a.Lat))*math.Cos(float64(b.Lat))*math.Cos(dLon)

	deg := (s1.Angle(math.Atan2(y, x)) * s1.Radian).Degrees()
	deg = math.Mod(deg+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// Distance returns the distance between p0 and p1 in km.
func Distance(p0, p1 LatLon) float64 {
	if p0 == p1 {
		return 0
	}
	d := gpsnmea.Distance(p0.Lat, p0.Lon, p1.Lat, p1.Lon, "K")
	// acos rounding on near points
	if math.IsNaN(d) {
		return 0
	}
	return d
}
