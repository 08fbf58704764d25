package engine

import (
	"log/slog"
	"testing"
	"time"
)

func testRegistry() *VesselRegistry {
	return NewVesselRegistry(NewDefaultBridgeRegistry(), NewBus(), slog.Default())
}

// TestUpdateVesselNorthboundThroughKlaffbron exercises the seed scenario of
// spec.md §8 #1 (trimmed to a single bridge): a vessel approaching from the
// south is assigned Klaffbron as its target, then a close-approach passage
// advances its target to Stridsbergsbron with Klaffbron recorded as passed.
func TestUpdateVesselNorthboundThroughKlaffbron(t *testing.T) {
	r := testRegistry()
	klaff, _ := r.bridges.GetBridgeByName("Klaffbron")
	base := time.Now().UTC()

	waypoints := []struct {
		offsetM float64
		dt      time.Duration
	}{
		{-520, 0},
		{-320, 60 * time.Second},
		{-40, 120 * time.Second},
		{80, 150 * time.Second},
	}

	var snap VesselSnapshot
	for _, wp := range waypoints {
		snap = r.UpdateVessel(PositionReport{
			MMSI: "265123456",
			Lat:  metersNorth(klaff.Lat, wp.offsetM),
			Lon:  klaff.Lon,
			SOG:  5,
			COG:  0,
			TsUTC: base.Add(wp.dt),
		})
	}

	if snap.TargetBridge != "Stridsbergsbron" {
		t.Errorf("expected target advanced to Stridsbergsbron after passing Klaffbron, got %q", snap.TargetBridge)
	}
	found := false
	for _, p := range snap.PassedBridges {
		if p == "Klaffbron" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Klaffbron recorded in passedBridges, got %v", snap.PassedBridges)
	}
	if snap.LastPassedBridge != "Klaffbron" {
		t.Errorf("expected lastPassedBridge == Klaffbron, got %q", snap.LastPassedBridge)
	}
}

// TestUpdateVesselNorthboundLeavesCanalAfterStridsbergsbron extends spec.md
// §8 scenario #1 through both target bridges: after passing Stridsbergsbron
// while still heading north, the target must clear to null (leaving the
// canal) rather than swap back to Klaffbron.
func TestUpdateVesselNorthboundLeavesCanalAfterStridsbergsbron(t *testing.T) {
	r := testRegistry()
	strids, _ := r.bridges.GetBridgeByName("Stridsbergsbron")
	base := time.Now().UTC()

	waypoints := []struct {
		offsetM float64
		dt      time.Duration
	}{
		{-520, 0},
		{-320, 60 * time.Second},
		{-40, 120 * time.Second},
		{80, 150 * time.Second},
	}

	var snap VesselSnapshot
	for _, wp := range waypoints {
		snap = r.UpdateVessel(PositionReport{
			MMSI:  "265987654",
			Lat:   metersNorth(strids.Lat, wp.offsetM),
			Lon:   strids.Lon,
			SOG:   5,
			COG:   0,
			TsUTC: base.Add(wp.dt),
		})
	}

	if snap.TargetBridge != "" {
		t.Errorf("expected no target after passing Stridsbergsbron heading north (leaving canal), got %q", snap.TargetBridge)
	}
	if snap.LastPassedBridge != "Stridsbergsbron" {
		t.Errorf("expected lastPassedBridge == Stridsbergsbron, got %q", snap.LastPassedBridge)
	}
}

// TestUpdateVesselAnchoredNeverAcquiresTarget covers spec.md §8 scenario #6:
// a slow, far-off vessel with a stable heading never acquires a target
// bridge.
func TestUpdateVesselAnchoredNeverAcquiresTarget(t *testing.T) {
	r := testRegistry()
	base := time.Now().UTC()
	lat, lon := 58.30, 12.25 // ~800m+ from the nearest bridge

	for i := 0; i < 3; i++ {
		snap := r.UpdateVessel(PositionReport{
			MMSI: "265654321",
			Lat:  lat, Lon: lon,
			SOG: 0.5, COG: 20,
			TsUTC: base.Add(time.Duration(i) * 30 * time.Second),
		})
		if snap.TargetBridge != "" {
			t.Fatalf("expected an anchored vessel to never acquire a target, got %q at tick %d", snap.TargetBridge, i)
		}
	}
}

// TestUpdateVesselInvalidCoordinatesPreserved covers spec.md §4.5 step 1:
// an out-of-range coordinate never overwrites the vessel's last valid fix.
func TestUpdateVesselInvalidCoordinatesPreserved(t *testing.T) {
	r := testRegistry()
	base := time.Now().UTC()

	snap1 := r.UpdateVessel(PositionReport{MMSI: "265111111", Lat: 58.29, Lon: 12.29, SOG: 5, COG: 20, TsUTC: base})
	if snap1.Lat == nil || *snap1.Lat != 58.29 {
		t.Fatalf("expected a valid first fix, got %+v", snap1.Lat)
	}

	snap2 := r.UpdateVessel(PositionReport{MMSI: "265111111", Lat: 999, Lon: 12.29, SOG: 5, COG: 20, TsUTC: base.Add(30 * time.Second)})
	if snap2.Lat == nil || *snap2.Lat != 58.29 {
		t.Errorf("expected the prior valid latitude preserved after an invalid update, got %+v", snap2.Lat)
	}
}

// TestUpdateVesselGPSJumpProtectsTarget covers spec.md §8 scenario #2: a
// single large, inconsistent lateral jump near a held target does not
// change the target bridge.
func TestUpdateVesselGPSJumpProtectsTarget(t *testing.T) {
	r := testRegistry()
	klaff, _ := r.bridges.GetBridgeByName("Klaffbron")
	base := time.Now().UTC()

	// Establish Klaffbron as target, ~400m south, slow and steady.
	r.UpdateVessel(PositionReport{
		MMSI: "265222222",
		Lat:  metersNorth(klaff.Lat, -400), Lon: klaff.Lon,
		SOG: 3, COG: 0, TsUTC: base,
	})

	// A single large, inconsistent lateral jump (due east, inconsistent
	// with reported COG/SOG) within a few seconds.
	jumpSnap := r.UpdateVessel(PositionReport{
		MMSI: "265222222",
		Lat:  metersNorth(klaff.Lat, -400), Lon: klaff.Lon + 0.01,
		SOG: 3, COG: 0, TsUTC: base.Add(3 * time.Second),
	})
	if jumpSnap.TargetBridge != "Klaffbron" {
		t.Errorf("expected target protection to hold Klaffbron through a GPS jump, got %q", jumpSnap.TargetBridge)
	}

	// Return to the original track.
	backSnap := r.UpdateVessel(PositionReport{
		MMSI: "265222222",
		Lat:  metersNorth(klaff.Lat, -390), Lon: klaff.Lon,
		SOG: 3, COG: 0, TsUTC: base.Add(6 * time.Second),
	})
	if backSnap.TargetBridge != "Klaffbron" {
		t.Errorf("expected target to remain Klaffbron after returning to track, got %q", backSnap.TargetBridge)
	}
	if backSnap.Status == StatusPassed {
		t.Error("a GPS jump must never be mistaken for a passage")
	}
}

// TestUpdateVesselBypassesJumpDetectionForControlMMSI covers the
// 265CONTROL test hook of spec.md §4.5 step 2.
func TestUpdateVesselBypassesJumpDetectionForControlMMSI(t *testing.T) {
	r := testRegistry()
	base := time.Now().UTC()
	r.UpdateVessel(PositionReport{MMSI: "265CONTROL001", Lat: 58.29, Lon: 12.29, SOG: 5, COG: 20, TsUTC: base})
	snap := r.UpdateVessel(PositionReport{MMSI: "265CONTROL001", Lat: 58.35, Lon: 12.40, SOG: 5, COG: 20, TsUTC: base.Add(1 * time.Second)})
	if snap.GPSJumpDetected {
		t.Error("expected the 265CONTROL test hook to bypass GPS-jump detection entirely")
	}
}

// TestUpdateVesselEmitsStatusChangeAndTrigger checks the bus side of the
// write path: a vessel entering approaching range publishes vessel:entered,
// status:changed, and a boat_near trigger for its target bridge.
func TestUpdateVesselEmitsStatusChangeAndTrigger(t *testing.T) {
	r := testRegistry()
	ch := r.bus.Register()
	defer r.bus.Unregister(ch)
	klaff, _ := r.bridges.GetBridgeByName("Klaffbron")

	r.UpdateVessel(PositionReport{
		MMSI: "265777777",
		Lat:  metersNorth(klaff.Lat, -400), Lon: klaff.Lon,
		SOG: 4, COG: 10, TsUTC: time.Now().UTC(),
	})

	seen := map[EventKind]Event{}
	deadline := time.After(time.Second)
	for len(seen) < 3 {
		select {
		case ev := <-ch:
			seen[ev.Kind] = ev
		case <-deadline:
			t.Fatalf("timed out waiting for events, saw %v", seen)
		}
	}

	if _, ok := seen[EventVesselEntered]; !ok {
		t.Error("expected a vessel:entered event")
	}
	if ev, ok := seen[EventStatusChanged]; !ok {
		t.Error("expected a status:changed event")
	} else if ev.Status != StatusApproaching || ev.OldStatus != StatusUnknown {
		t.Errorf("expected unknown -> approaching, got %v -> %v", ev.OldStatus, ev.Status)
	}
	if ev, ok := seen[EventBoatNear]; !ok {
		t.Error("expected a boat_near trigger event")
	} else if ev.Bridge != "Klaffbron" {
		t.Errorf("expected the trigger aimed at Klaffbron, got %q", ev.Bridge)
	}
}

func TestUpdateStaticDataSetsName(t *testing.T) {
	r := testRegistry()
	r.UpdateVessel(PositionReport{MMSI: "265333333", Lat: 58.29, Lon: 12.29, SOG: 5, COG: 20, TsUTC: time.Now()})
	r.UpdateStaticData(ShipStaticData{MMSI: "265333333", Name: "M/S Testfartyg"})

	snaps := r.Snapshot()
	found := false
	for _, s := range snaps {
		if s.MMSI == "265333333" {
			found = true
			if s.Name != "M/S Testfartyg" {
				t.Errorf("expected the vessel's name updated, got %q", s.Name)
			}
		}
	}
	if !found {
		t.Fatal("expected to find the vessel in the registry snapshot")
	}
}

func TestUpdateStaticDataDropsUnknownMMSI(t *testing.T) {
	r := testRegistry()
	// Must not panic or create a vessel out of thin air.
	r.UpdateStaticData(ShipStaticData{MMSI: "265999999", Name: "Ghost Ship"})
	if len(r.Snapshot()) != 0 {
		t.Error("expected static data for an unknown MMSI to be dropped")
	}
}

func TestRemoveVesselWithinProtectionZoneReschedules(t *testing.T) {
	r := testRegistry()
	klaff, _ := r.bridges.GetBridgeByName("Klaffbron")
	r.UpdateVessel(PositionReport{
		MMSI: "265444444",
		Lat:  klaff.Lat, Lon: klaff.Lon,
		SOG: 0, COG: 0, TsUTC: time.Now(),
	})

	r.RemoveVessel("265444444", "timeout")

	snaps := r.Snapshot()
	if len(snaps) != 1 {
		t.Error("expected a vessel within the protection zone to survive a timeout removal")
	}
}

func TestRemoveVesselFarFromBridgesIsRemoved(t *testing.T) {
	r := testRegistry()
	r.UpdateVessel(PositionReport{
		MMSI: "265555555",
		Lat:  58.0, Lon: 12.0,
		SOG: 5, COG: 20, TsUTC: time.Now(),
	})

	r.RemoveVessel("265555555", "timeout")

	if len(r.Snapshot()) != 0 {
		t.Error("expected a vessel far from any bridge to be removed on timeout")
	}
}

func TestRemoveVesselUnknownMMSIIsNoop(t *testing.T) {
	r := testRegistry()
	r.RemoveVessel("nonexistent", "timeout") // must not panic
}

func TestSweepIsNoop(t *testing.T) {
	r := testRegistry()
	r.Sweep(time.Now()) // must not panic on an empty registry
}
