package engine

import "testing"

func TestAnalyzeVesselProximityNearest(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	klaff, _ := reg.GetBridgeByName("Klaffbron")

	p := AnalyzeVesselProximity(reg, klaff.Lat, klaff.Lon, 5, 125)
	if p.Nearest.Name != "Klaffbron" {
		t.Errorf("expected Klaffbron nearest when standing on it, got %q", p.Nearest.Name)
	}
	if p.Nearest.Distance > 1 {
		t.Errorf("expected ~0m nearest distance, got %f", p.Nearest.Distance)
	}
	if !p.UnderBridge {
		t.Error("expected under-bridge true when directly on the bridge")
	}
	if !p.WithinProtectionZone {
		t.Error("expected within protection zone")
	}
}

func TestAnalyzeVesselProximityIsApproachingSlowVessel(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	klaff, _ := reg.GetBridgeByName("Klaffbron")
	nearLat := metersNorth(klaff.Lat, -300)

	// Slow vessel (<0.5kn) gets benefit of the doubt regardless of COG.
	p := AnalyzeVesselProximity(reg, nearLat, klaff.Lon, 0.2, 270)
	if !p.IsApproaching {
		t.Error("expected a slow vessel within range to be treated as approaching")
	}
}

func TestAnalyzeVesselProximityIsApproachingByBearing(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	klaff, _ := reg.GetBridgeByName("Klaffbron")
	nearLat := metersNorth(klaff.Lat, -300)

	// COG pointing roughly north (toward the bridge) should approach.
	p := AnalyzeVesselProximity(reg, nearLat, klaff.Lon, 5, 0)
	if !p.IsApproaching {
		t.Error("expected a vessel heading toward the nearest bridge to be approaching")
	}

	// COG pointing away (south) should not.
	p2 := AnalyzeVesselProximity(reg, nearLat, klaff.Lon, 5, 180)
	if p2.IsApproaching {
		t.Error("expected a vessel heading away from the nearest bridge to not be approaching")
	}
}

func TestAnalyzeVesselProximityOutOfRange(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	// Far from any bridge.
	p := AnalyzeVesselProximity(reg, 58.0, 12.0, 5, 0)
	if p.WithinProtectionZone {
		t.Error("did not expect protection zone membership far from any bridge")
	}
	if p.IsApproaching {
		t.Error("did not expect approaching status far from any bridge")
	}
	if p.UnderBridge {
		t.Error("did not expect under-bridge far from any bridge")
	}
}
