package engine

import "time"

// Under-bridge Schmitt trigger thresholds (spec.md §4.8). Deliberately
// distinct from the Current Bridge Manager's 300/450m hysteresis — see the
// open question in spec.md §9.
const (
	underBridgeSetDistanceM   = 50.0
	underBridgeClearDistanceM = 70.0

	waitingDistanceM     = 300.0
	approachingDistanceM = 500.0

	// WaitingSpeedThresholdKn is the SOG below which a vessel's
	// speed-below-threshold timer starts running.
	WaitingSpeedThresholdKn = 0.20
	// WaitingTimerDuration is how long SOG must stay below the threshold
	// before waiting status is entered.
	WaitingTimerDuration = 120 * time.Second

	statusHistoryWindow = 5 * time.Minute
)

// evaluateStatus runs the priority ladder of spec.md §4.8 and returns the
// raw (pre-stabilization) status for this tick. now is the reading's
// timestamp; dist-to-current/target come from the already-updated vessel
// fields.
func evaluateStatus(v *Vessel, prox Proximity, now time.Time) VesselStatus {
	// 1. Recently passed.
	if !v.LastPassedBridgeTime.IsZero() && now.Sub(v.LastPassedBridgeTime) < DisplayWindow {
		return StatusPassed
	}

	// 5. Stallbacka-waiting takes priority over its own under-bridge/
	// approaching handling, but recently-passed above still wins, matching
	// "Stallbackabron never produces under-bridge".
	if stallbacka, ok := prox.BridgeDistances[stallbackaID]; ok {
		if stallbacka <= waitingDistanceM && !v.hasPassed("Stallbackabron") {
			return StatusStallbackaWaiting
		}
	}

	// 2. Under bridge (Schmitt trigger).
	underDist, haveUnderDist := underBridgeDistance(v, prox)
	if haveUnderDist {
		if underDist <= underBridgeSetDistanceM {
			v.underBridgeLatched = true
		} else if underDist >= underBridgeClearDistanceM {
			v.underBridgeLatched = false
		}
		if v.underBridgeLatched && currentBridgeIsNotStallbacka(v) {
			return StatusUnderBridge
		}
	}

	// 3. Waiting at target.
	if v.TargetBridge != "" {
		if d, ok := prox.BridgeDistances[bridgeIDFor(v.TargetBridge)]; ok && d <= waitingDistanceM {
			if v.LastPassedBridge != v.TargetBridge {
				if waitingEligible(v, now) {
					return StatusWaiting
				}
			}
		}
	}

	// 4. Waiting at intermediate (Olidebron, Järnvägsbron only).
	if prox.Nearest.Name == "Olidebron" || prox.Nearest.Name == "Järnvägsbron" {
		if prox.Nearest.Distance <= waitingDistanceM {
			if waitingEligible(v, now) {
				return StatusWaiting
			}
		}
	}

	// 6. Approaching. A vessel inside the 300m waiting radius whose waiting
	// timer has not yet elapsed (or whose waiting is blocked after a pass)
	// reads as approaching rather than dropping back to en-route.
	if v.TargetBridge != "" {
		if d, ok := prox.BridgeDistances[bridgeIDFor(v.TargetBridge)]; ok && d <= approachingDistanceM {
			return StatusApproaching
		}
	}
	if prox.Nearest.Distance > waitingDistanceM && prox.Nearest.Distance <= approachingDistanceM {
		return StatusApproaching
	}

	// 7. En-route.
	return StatusEnRoute
}

// underBridgeDistance picks the distance to evaluate for the under-bridge
// trigger: distance to target bridge if one is assigned and it's the
// nearest concern, else distanceToCurrent for a non-Stallbackabron current
// bridge (spec.md §4.8).
func underBridgeDistance(v *Vessel, prox Proximity) (float64, bool) {
	if v.TargetBridge != "" {
		if d, ok := prox.BridgeDistances[bridgeIDFor(v.TargetBridge)]; ok {
			return d, true
		}
	}
	if v.CurrentBridge != "" && v.CurrentBridge != "Stallbackabron" {
		return v.DistanceToCurrent, true
	}
	return 0, false
}

func currentBridgeIsNotStallbacka(v *Vessel) bool {
	return v.CurrentBridge != "Stallbackabron"
}

// waitingEligible implements the waiting timer: sog must have stayed at or
// below WaitingSpeedThresholdKn for at least WaitingTimerDuration.
func waitingEligible(v *Vessel, now time.Time) bool {
	if v.SOG <= WaitingSpeedThresholdKn {
		if v.SpeedBelowThresholdSince == nil {
			t := now
			v.SpeedBelowThresholdSince = &t
		}
	} else {
		v.SpeedBelowThresholdSince = nil
		return false
	}
	return now.Sub(*v.SpeedBelowThresholdSince) >= WaitingTimerDuration
}

// resetUnderBridgeLatchIfNeeded clears the Schmitt-trigger latch on any of
// the reset conditions in spec.md §4.8.
func resetUnderBridgeLatchIfNeeded(v *Vessel, gpsJump bool, invalidPosition bool) {
	if gpsJump || invalidPosition {
		v.underBridgeLatched = false
		return
	}
	if v.lastTargetBridgeForHysteresis != "" && v.lastTargetBridgeForHysteresis != v.TargetBridge {
		v.underBridgeLatched = false
	}
	if v.lastCurrentBridgeForHysteresis != "" && v.CurrentBridge != "" && v.lastCurrentBridgeForHysteresis != v.CurrentBridge {
		v.underBridgeLatched = false
	}
	v.lastTargetBridgeForHysteresis = v.TargetBridge
	v.lastCurrentBridgeForHysteresis = v.CurrentBridge
}

// Stabilizer holds the bounded status history and applies confidence-
// weighted flicker/GPS-jump damping (spec.md §4.8).
type Stabilizer struct{}

// stabilize decides the vessel's displayed status for this tick given the
// freshly evaluated proposed status, the jump analysis, and coordination
// extension. It mutates v.statusHistory; the caller stores the returned
// status in v.Status/IsWaiting/IsApproaching.
func stabilize(v *Vessel, proposed VesselStatus, analysis JumpAnalysis, ext StabilizationExtension, now time.Time) (VesselStatus, string) {
	confidence := statusConfidence(v, proposed, analysis)

	// GPS jump: retain previous status, optionally extended by coordination.
	hold := 30 * time.Second
	if ext.CoordinationApplied {
		hold += ext.ExtraHold
	}
	if analysis.IsGPSJump {
		if len(v.statusHistory) > 0 {
			last := v.statusHistory[len(v.statusHistory)-1]
			if now.Sub(last.At) < hold {
				return last.Status, "gps_jump_hold"
			}
		}
	}

	// Uncertain position: require two consistent readings before accepting
	// a changed status.
	if analysis.Action == ActionAcceptWithCaution && len(v.statusHistory) > 0 {
		last := v.statusHistory[len(v.statusHistory)-1]
		if last.Status != proposed {
			appendStatusHistory(v, proposed, confidence, now)
			return last.Status, "uncertain_awaiting_confirmation"
		}
	}

	appendStatusHistory(v, proposed, confidence, now)

	// Flicker detection: the middle of the last 3 updates differs from both
	// neighbors -> choose the most common status in the last 5 updates.
	if flickering(v.statusHistory) {
		return mostCommonStatus(v.statusHistory), "flicker_damped"
	}

	return proposed, "stable"
}

func statusConfidence(v *Vessel, proposed VesselStatus, analysis JumpAnalysis) float64 {
	c := 1.0
	if analysis.IsGPSJump {
		c *= 0.3
	}
	if v.positionUncertain {
		c *= 0.7
	}
	if v.SOG < 0.5 {
		c *= 0.8
	}
	if v.CurrentBridge == "" && v.TargetBridge == "" {
		c *= 0.9
	}
	if c < 0.1 {
		c = 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func appendStatusHistory(v *Vessel, status VesselStatus, confidence float64, now time.Time) {
	v.statusHistory = append(v.statusHistory, StatusSample{Status: status, Confidence: confidence, At: now})
	cutoff := now.Add(-statusHistoryWindow)
	kept := v.statusHistory[:0]
	for _, s := range v.statusHistory {
		if s.At.After(cutoff) {
			kept = append(kept, s)
		}
	}
	v.statusHistory = kept
}

// flickering reports oscillation in the last three samples: the middle
// status differs from both neighbors (A-B-A bounce or three distinct
// statuses in a row). A clean monotonic transition (A-A-B, A-B-B) is not
// flicker and must take effect immediately.
func flickering(history []StatusSample) bool {
	if len(history) < 3 {
		return false
	}
	a := history[len(history)-3].Status
	b := history[len(history)-2].Status
	c := history[len(history)-1].Status
	return a != b && b != c
}

func mostCommonStatus(history []StatusSample) VesselStatus {
	window := history
	if len(window) > 5 {
		window = window[len(window)-5:]
	}
	counts := map[VesselStatus]int{}
	order := []VesselStatus{}
	for _, s := range window {
		if counts[s.Status] == 0 {
			order = append(order, s.Status)
		}
		counts[s.Status]++
	}
	best := order[0]
	for _, s := range order {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}

// Bridge ids used by the status evaluator for intermediate-bridge checks.
// These match DefaultBridges(); a custom registry with different ids must
// supply its own bridge name<->id mapping (see BridgeRegistry.GetBridgeByName
// for the authoritative lookup used everywhere else).
const stallbackaID = "stallbackabron"

func bridgeIDFor(name string) string {
	switch name {
	case "Olidebron":
		return "olidebron"
	case "Klaffbron":
		return "klaffbron"
	case "Järnvägsbron":
		return "jarnvagsbron"
	case "Stridsbergsbron":
		return "stridsbergsbron"
	case "Stallbackabron":
		return "stallbackabron"
	default:
		return ""
	}
}
