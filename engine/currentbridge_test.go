package engine

import "testing"

func TestApplyCurrentBridgeRulesSet(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	v := newVessel("123456789")
	prox := Proximity{Nearest: NearestBridge{Name: "Klaffbron", ID: "klaffbron", Distance: 200}}
	applyCurrentBridgeRules(reg, v, prox)
	if v.CurrentBridge != "Klaffbron" || v.DistanceToCurrent != 200 {
		t.Errorf("expected currentBridge set to Klaffbron/200m, got %q/%f", v.CurrentBridge, v.DistanceToCurrent)
	}
}

func TestApplyCurrentBridgeRulesHysteresisNoFlapAt310m(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	v := newVessel("123456789")
	// First reading sets currentBridge at 290m (inside 300m set threshold).
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Klaffbron", ID: "klaffbron", Distance: 290}})
	if v.CurrentBridge != "Klaffbron" {
		t.Fatalf("expected currentBridge set at 290m")
	}
	// Bounces to 310m - must not clear (clear threshold is 450m).
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Klaffbron", ID: "klaffbron", Distance: 310}})
	if v.CurrentBridge != "Klaffbron" {
		t.Errorf("expected currentBridge to remain set at 310m (inside the 450m clear hysteresis), got %q", v.CurrentBridge)
	}
	// Back to 290m.
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Klaffbron", ID: "klaffbron", Distance: 290}})
	if v.CurrentBridge != "Klaffbron" {
		t.Errorf("expected currentBridge still set bouncing back to 290m, got %q", v.CurrentBridge)
	}
}

func TestApplyCurrentBridgeRulesClearsPast450m(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	v := newVessel("123456789")
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Klaffbron", ID: "klaffbron", Distance: 290}})
	// Still the nearest bridge but now 460m out: refreshed, not yet cleared
	// (set/clear is driven by DistanceToCurrent, refreshed one tick behind).
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Klaffbron", ID: "klaffbron", Distance: 460}})
	if v.CurrentBridge != "Klaffbron" || v.DistanceToCurrent != 460 {
		t.Fatalf("expected a refresh to 460m before clearing, got %q/%f", v.CurrentBridge, v.DistanceToCurrent)
	}
	// Next tick: distanceToCurrent is now stale at 460m (>450m), clears.
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Olidebron", ID: "olidebron", Distance: 900}})
	if v.CurrentBridge != "" {
		t.Errorf("expected currentBridge cleared past 450m, got %q", v.CurrentBridge)
	}
}

func TestApplyCurrentBridgeRulesPassedClearance(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	v := newVessel("123456789")
	v.CurrentBridge = "Klaffbron"
	v.DistanceToCurrent = 60
	v.LastPassedBridge = "Klaffbron"
	// Nearest bridge is now something else/far so rule 2 doesn't re-set it.
	applyCurrentBridgeRules(reg, v, Proximity{Nearest: NearestBridge{Name: "Olidebron", ID: "olidebron", Distance: 900}})
	if v.CurrentBridge != "" {
		t.Errorf("expected passed-clearance to drop currentBridge, got %q", v.CurrentBridge)
	}
}

func TestApplyCurrentBridgeRulesRepair(t *testing.T) {
	reg := NewDefaultBridgeRegistry()
	v := newVessel("123456789")
	v.CurrentBridge = "Klaffbron"
	v.DistanceToCurrent = 0 // stale/missing
	applyCurrentBridgeRules(reg, v, Proximity{
		Nearest:         NearestBridge{Name: "Olidebron", ID: "olidebron", Distance: 900},
		BridgeDistances: map[string]float64{"klaffbron": 120},
	})
	if v.CurrentBridge != "Klaffbron" || v.DistanceToCurrent != 120 {
		t.Errorf("expected repair to recover distance from the bridge map, got %q/%f", v.CurrentBridge, v.DistanceToCurrent)
	}
}
