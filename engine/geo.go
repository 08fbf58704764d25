package engine

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// metersPerDegreeLat mirrors the local-metric-frame constant used across
// the pack's geo-tracking repos: 1 degree of latitude is ~111,320 meters,
// and a degree of longitude shrinks by cos(latitude).
const metersPerDegreeLat = 111320.0

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.Distance(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// initialBearing returns the initial bearing in degrees [0, 360) travelling
// from (lat1,lon1) to (lat2,lon2).
func initialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	b := geo.Bearing(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	return normalizeAngle(b)
}

// normalizeAngle folds any angle into [0, 360).
func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// angularDiff returns the absolute, wrapped difference between two
// headings in degrees, in [0, 180].
func angularDiff(a, b float64) float64 {
	d := math.Abs(normalizeAngle(a) - normalizeAngle(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// localMetricFrame converts a lat/lon pair into a local planar (x, y) frame
// in meters, centered on the given origin. Valid only for small spans (a
// few kilometers), which is all that's needed around a single bridge.
func localMetricFrame(originLat, originLon, lat, lon float64) (x, y float64) {
	lonScale := metersPerDegreeLat * math.Cos(originLat*math.Pi/180)
	x = (lon - originLon) * lonScale
	y = (lat - originLat) * metersPerDegreeLat
	return x, y
}

// canalAxisUnitVector returns the unit vector perpendicular to the bridge's
// deck (i.e. pointing along the canal's direction of travel), derived from
// axisBearing - 90 degrees per spec §4.7.
func canalAxisUnitVector(axisBearingDeg float64) (ux, uy float64) {
	theta := (axisBearingDeg - 90) * math.Pi / 180
	// Bearing is measured clockwise from north; convert to a standard
	// math-convention unit vector (x=east, y=north).
	ux = math.Sin(theta)
	uy = math.Cos(theta)
	return ux, uy
}

// projectOntoAxis projects a point, already in the bridge-local metric
// frame, onto the canal-axis unit vector. The sign of the result flips
// when the point crosses the bridge's perpendicular line.
func projectOntoAxis(x, y, ux, uy float64) float64 {
	return x*ux + y*uy
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validLat(lat float64) bool {
	return isFinite(lat) && lat >= -90 && lat <= 90
}

func validLon(lon float64) bool {
	return isFinite(lon) && lon >= -180 && lon <= 180
}
