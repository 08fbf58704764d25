package engine

import "math"

// ETA bounds (spec.md §4.9). clampETA raises an estimate below the low
// bound to the low bound and lowers one above the high bound to the high
// bound.
const (
	etaMinMinutes = 0.1
	etaMaxMinutes = 120.0

	// WaitingStatusMaxETAMinutes caps the ETA shown while a vessel is
	// waiting, so the displayed estimate never increases while it sits
	// still at a bridge.
	WaitingStatusMaxETAMinutes = 15.0

	effectiveSpeedFloorKn = 0.5
)

// CalculateETA implements the Progressive ETA Calculator (spec.md §4.9):
// direct ETA to the target bridge if it is also the nearest bridge, else
// the nearest-bridge leg plus the cumulative inter-bridge segments from
// nearestBridge to targetBridge, all divided by an effective speed floor.
// Returns (minutes, ok); ok is false on any validation failure.
func CalculateETA(reg *BridgeRegistry, v *Vessel, prox Proximity) (float64, bool) {
	if v.TargetBridge == "" || v.Lat == nil || v.Lon == nil {
		return waitingClamp(v, 0, false)
	}
	if prox.Nearest.Name == "" {
		return waitingClamp(v, 0, false)
	}

	target, ok := reg.GetBridgeByName(v.TargetBridge)
	if !ok {
		return waitingClamp(v, 0, false)
	}

	effectiveSpeedKn := v.SOG
	if effectiveSpeedKn < effectiveSpeedFloorKn {
		effectiveSpeedKn = effectiveSpeedFloorKn
	}
	speedMPerMin := effectiveSpeedKn * 1852.0 / 60.0

	var distM float64
	if prox.Nearest.Name == v.TargetBridge {
		if d, ok := prox.BridgeDistances[target.ID]; ok {
			distM = d
		} else {
			distM = haversineMeters(*v.Lat, *v.Lon, target.Lat, target.Lon)
		}
	} else {
		distM = prox.Nearest.Distance
		for _, segmentID := range routeSegments(reg, prox.Nearest.ID, target.ID) {
			if d, ok := reg.GetDistanceBetweenBridges(segmentID[0], segmentID[1]); ok {
				distM += d
			}
		}
	}

	minutes := distM / speedMPerMin
	if math.IsInf(minutes, 0) || math.IsNaN(minutes) {
		return waitingClamp(v, 0, false)
	}

	return waitingClamp(v, clampETA(minutes), true)
}

// routeSegments walks the fixed canal order from fromID to toID and
// returns the consecutive bridge-id pairs along the way.
func routeSegments(reg *BridgeRegistry, fromID, toID string) [][2]string {
	from, ok1 := reg.GetBridge(fromID)
	to, ok2 := reg.GetBridge(toID)
	if !ok1 || !ok2 || from.ID == to.ID {
		return nil
	}

	var chain []*Bridge
	if from.Order < to.Order {
		for _, b := range reg.ordered {
			if b.Order >= from.Order && b.Order <= to.Order {
				chain = append(chain, b)
			}
		}
	} else {
		for i := len(reg.ordered) - 1; i >= 0; i-- {
			b := reg.ordered[i]
			if b.Order <= from.Order && b.Order >= to.Order {
				chain = append(chain, b)
			}
		}
	}

	var segments [][2]string
	for i := 0; i+1 < len(chain); i++ {
		segments = append(segments, [2]string{chain[i].ID, chain[i+1].ID})
	}
	return segments
}

func clampETA(minutes float64) float64 {
	if minutes < etaMinMinutes {
		return etaMinMinutes
	}
	if minutes > etaMaxMinutes {
		return etaMaxMinutes
	}
	return minutes
}

// waitingClamp enforces the waiting-state non-increasing invariant: once a
// vessel is waiting, its displayed ETA must never climb back up, and is
// capped at WaitingStatusMaxETAMinutes. Without an estimate it reports no
// ETA (ok false), waiting or not.
func waitingClamp(v *Vessel, minutes float64, haveEstimate bool) (float64, bool) {
	if v.Status != StatusWaiting {
		v.lastWaitingETA = nil
		if !haveEstimate {
			return 0, false
		}
		return minutes, true
	}
	if !haveEstimate {
		return 0, false
	}

	capped := minutes
	if capped > WaitingStatusMaxETAMinutes {
		capped = WaitingStatusMaxETAMinutes
	}
	if v.lastWaitingETA != nil && capped > *v.lastWaitingETA {
		capped = *v.lastWaitingETA
	}
	v.lastWaitingETA = &capped
	return capped, true
}
