package engine

import "testing"

func vesselWithFix(lat, lon, sog float64) *Vessel {
	v := newVessel("123456789")
	v.Lat = &lat
	v.Lon = &lon
	v.SOG = sog
	return v
}

func TestCalculateETADirect(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	klaff, _ := reg.GetBridgeByName("Klaffbron")
	lat := metersNorth(klaff.Lat, -1000)
	v := vesselWithFix(lat, klaff.Lon, 5)
	v.TargetBridge = "Klaffbron"

	prox := AnalyzeVesselProximity(reg, lat, klaff.Lon, 5, 0)
	eta, ok := CalculateETA(reg, v, prox)
	if !ok {
		t.Fatal("expected a valid ETA")
	}
	if eta < etaMinMinutes || eta > etaMaxMinutes {
		t.Errorf("expected ETA within [%.1f,%.1f], got %f", etaMinMinutes, etaMaxMinutes, eta)
	}
}

func TestCalculateETARouteComposed(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	olide, _ := reg.GetBridgeByName("Olidebron")
	v := vesselWithFix(olide.Lat, olide.Lon, 5)
	v.TargetBridge = "Stridsbergsbron"

	prox := AnalyzeVesselProximity(reg, olide.Lat, olide.Lon, 5, 0)
	eta, ok := CalculateETA(reg, v, prox)
	if !ok {
		t.Fatal("expected a valid route-composed ETA")
	}
	directDist, _ := reg.GetDistanceBetweenBridges("olidebron", "stridsbergsbron")
	speedMPerMin := 5.0 * 1852.0 / 60.0
	directETA := clampETA(directDist / speedMPerMin)
	if eta < directETA-0.01 {
		t.Errorf("expected route-composed ETA to be at least the direct distance's ETA, got %f vs direct %f", eta, directETA)
	}
}

func TestCalculateETANoTarget(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	v := vesselWithFix(58.29, 12.29, 5)
	prox := AnalyzeVesselProximity(reg, 58.29, 12.29, 5, 0)
	_, ok := CalculateETA(reg, v, prox)
	if ok {
		t.Error("expected no ETA without a target bridge")
	}
}

func TestCalculateETASpeedFloor(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	klaff, _ := reg.GetBridgeByName("Klaffbron")
	lat := metersNorth(klaff.Lat, -1000)
	v := vesselWithFix(lat, klaff.Lon, 0) // stationary
	v.TargetBridge = "Klaffbron"
	prox := AnalyzeVesselProximity(reg, lat, klaff.Lon, 0, 0)
	eta, ok := CalculateETA(reg, v, prox)
	if !ok {
		t.Fatal("expected an ETA using the effective speed floor even at 0kn")
	}
	if eta <= 0 {
		t.Errorf("expected a positive ETA, got %f", eta)
	}
}

func TestCalculateETAWaitingClampNonIncreasing(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	klaff, _ := reg.GetBridgeByName("Klaffbron")
	lat := metersNorth(klaff.Lat, -150)
	v := vesselWithFix(lat, klaff.Lon, 0.1)
	v.TargetBridge = "Klaffbron"
	v.Status = StatusWaiting

	prox := AnalyzeVesselProximity(reg, lat, klaff.Lon, 0.1, 0)
	eta1, ok := CalculateETA(reg, v, prox)
	if !ok {
		t.Fatal("expected a valid waiting ETA")
	}

	// Speed drops further. Both 0.1 kn and 0.01 kn are below the 0.5 kn
	// speed floor, so the raw estimate is the same on both ticks; the
	// waiting ETA must still not climb above the first one.
	v.SOG = 0.01
	eta2, ok := CalculateETA(reg, v, prox)
	if !ok {
		t.Fatal("expected a valid second waiting ETA")
	}
	if eta2 > eta1+1e-9 {
		t.Errorf("expected waiting ETA to never increase across ticks, got %f then %f", eta1, eta2)
	}
	if eta2 > WaitingStatusMaxETAMinutes {
		t.Errorf("expected waiting ETA capped at %f, got %f", WaitingStatusMaxETAMinutes, eta2)
	}
}
