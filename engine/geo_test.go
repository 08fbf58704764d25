package engine

import (
	"math"
	"testing"
)

func TestHaversineMetersZero(t *testing.T) {
	d := haversineMeters(58.29, 12.29, 58.29, 12.29)
	if d != 0 {
		t.Errorf("expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineMetersKnownSpan(t *testing.T) {
	// Klaffbron -> Stridsbergsbron is roughly 1.5-2km apart in the default catalog.
	d := haversineMeters(58.2932, 12.2903, 58.3072, 12.2984)
	if d < 1000 || d > 2500 {
		t.Errorf("expected distance in plausible canal range, got %f", d)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		360:  0,
		-10:  350,
		370:  10,
		-370: 350,
	}
	for in, want := range cases {
		got := normalizeAngle(in)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("normalizeAngle(%f) = %f, want %f", in, got, want)
		}
	}
}

func TestAngularDiff(t *testing.T) {
	cases := []struct {
		a, b, want float64
	}{
		{0, 10, 10},
		{350, 10, 20},
		{10, 350, 20},
		{0, 180, 180},
		{90, 270, 180},
	}
	for _, c := range cases {
		got := angularDiff(c.a, c.b)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("angularDiff(%f,%f) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}

func TestProjectOntoAxisSignFlip(t *testing.T) {
	// axisBearing 125 deg; vector perpendicular to the bridge deck is at 35deg.
	ux, uy := canalAxisUnitVector(125)

	// A point south of origin and a point north of origin should project
	// with opposite signs if they straddle the perpendicular line.
	xSouth, ySouth := localMetricFrame(58.29, 12.29, 58.28, 12.29)
	xNorth, yNorth := localMetricFrame(58.29, 12.29, 58.30, 12.29)

	pSouth := projectOntoAxis(xSouth, ySouth, ux, uy)
	pNorth := projectOntoAxis(xNorth, yNorth, ux, uy)

	if (pSouth < 0) == (pNorth < 0) {
		t.Errorf("expected opposite-signed projections for points on either side of the bridge, got %f and %f", pSouth, pNorth)
	}
}

func TestValidLatLon(t *testing.T) {
	if !validLat(58.3) || !validLat(-90) || !validLat(90) {
		t.Error("expected valid latitudes to pass")
	}
	if validLat(90.1) || validLat(-90.1) || validLat(math.NaN()) || validLat(math.Inf(1)) {
		t.Error("expected invalid latitudes to fail")
	}
	if !validLon(12.3) || !validLon(-180) || !validLon(180) {
		t.Error("expected valid longitudes to pass")
	}
	if validLon(180.1) || validLon(-180.1) || validLon(math.NaN()) {
		t.Error("expected invalid longitudes to fail")
	}
}
