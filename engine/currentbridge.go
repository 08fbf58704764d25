package engine

// Current Bridge Manager hysteresis thresholds (spec.md §4.4). Deliberately
// distinct from the 50/70m under-bridge trigger in status.go — spec.md §9
// calls out both pairs explicitly and says not to unify them.
const (
	currentBridgeSetDistanceM   = 300.0
	currentBridgeClearDistanceM = 450.0
	passedClearanceDistanceM    = 50.0
)

// applyCurrentBridgeRules mutates v.CurrentBridge / v.DistanceToCurrent in
// place following the ordered rule list in spec.md §4.4.
func applyCurrentBridgeRules(reg *BridgeRegistry, v *Vessel, prox Proximity) {
	// 1. Passed clearance.
	if v.CurrentBridge != "" && v.CurrentBridge == v.LastPassedBridge && v.DistanceToCurrent > passedClearanceDistanceM {
		v.CurrentBridge = ""
		v.DistanceToCurrent = 0
		return
	}

	// 2. Set.
	if prox.Nearest.Name != "" && prox.Nearest.Distance <= currentBridgeSetDistanceM {
		v.CurrentBridge = prox.Nearest.Name
		v.DistanceToCurrent = prox.Nearest.Distance
		return
	}

	// 3. Clear (hysteresis).
	if v.CurrentBridge != "" && v.DistanceToCurrent > currentBridgeClearDistanceM {
		v.CurrentBridge = ""
		v.DistanceToCurrent = 0
		return
	}

	// 4. Refresh.
	if v.CurrentBridge != "" && prox.Nearest.Name == v.CurrentBridge {
		v.DistanceToCurrent = prox.Nearest.Distance
		return
	}

	// 5. Repair: currentBridge named but distance missing or stale.
	if v.CurrentBridge != "" && v.DistanceToCurrent <= 0 {
		if b, ok := reg.GetBridgeByName(v.CurrentBridge); ok {
			if d, ok := prox.BridgeDistances[b.ID]; ok {
				v.DistanceToCurrent = d
				if d > currentBridgeClearDistanceM {
					v.CurrentBridge = ""
					v.DistanceToCurrent = 0
				}
			}
		}
	}
}
