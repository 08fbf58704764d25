package engine

import "time"

// MinApproachDistanceM is the minimum inter-reading distance change,
// toward or away from the candidate target bridge, required to accept a
// target assignment/retention decision once the vessel is more than 300 m
// out (spec.md §4.5 step 5). The spec names the constant but not its
// value; 5 m (a little above ordinary AIS position jitter) is the value
// chosen here — see DESIGN.md.
const MinApproachDistanceM = 5.0

const (
	minSOGFarKn  = 0.7
	minSOGMidKn  = 0.1
	farDistanceM = 500.0
)

// eligibleForTargetAssignment implements the distance-stratified
// eligibility rules of spec.md §4.5 step 5 (excluding the two-readings
// approach check, handled separately since it needs the prior position).
func eligibleForTargetAssignment(nearestDist, sog, cog float64, haveCOG bool) bool {
	switch {
	case nearestDist > farDistanceM:
		return sog > minSOGFarKn && haveCOG
	case nearestDist >= waitingDistanceM:
		return sog > minSOGMidKn
	default:
		return true
	}
}

// twoReadingsApproachCheck rejects keeping/acquiring a target when the
// vessel is receding from it and still more than 300 m out (anchored or
// departing vessel), per spec.md §4.5 step 5.
func twoReadingsApproachCheck(reg *BridgeRegistry, targetName string, prevLat, prevLon *float64, currLat, currLon float64) bool {
	target, ok := reg.GetBridgeByName(targetName)
	if !ok {
		return false
	}
	currDist := haversineMeters(currLat, currLon, target.Lat, target.Lon)
	if prevLat == nil || prevLon == nil {
		return true
	}
	prevDist := haversineMeters(*prevLat, *prevLon, target.Lat, target.Lon)
	delta := currDist - prevDist

	if currDist <= waitingDistanceM {
		return true
	}
	if delta > 0 {
		return false
	}
	if abs(delta) < MinApproachDistanceM {
		return false
	}
	return true
}

// computeTarget implements spec.md §4.5 step 6: assign an initial target
// bridge from heading and position when the vessel has none.
func computeTarget(reg *BridgeRegistry, lat, cog float64) string {
	klaff, okK := reg.GetBridgeByName("Klaffbron")
	strids, okS := reg.GetBridgeByName("Stridsbergsbron")
	if !okK || !okS {
		return ""
	}

	if isNorthbound(cog) {
		switch {
		case lat > strids.Lat:
			return ""
		case lat < klaff.Lat:
			return "Klaffbron"
		default:
			return "Stridsbergsbron"
		}
	}

	// Southbound (mirror).
	switch {
	case lat < klaff.Lat:
		return ""
	case lat > strids.Lat:
		return "Stridsbergsbron"
	default:
		return "Klaffbron"
	}
}

func isNorthbound(cog float64) bool {
	c := normalizeAngle(cog)
	return c >= 315 || c <= 45
}

// targetTransitionResult carries the outcome of evaluating a potential
// passage of the current target bridge.
type targetTransitionResult struct {
	NewTarget         string
	PassedTargetNow   bool
	BlockedByGraceZone bool
}

// evaluateTargetTransition implements spec.md §4.5 step 7: detect a
// passage of the current target and, if one occurred, advance to the
// next target bridge — unless the vessel is still within 200 m of the
// current target and the internal grace window has not yet elapsed.
func evaluateTargetTransition(reg *BridgeRegistry, latch *PassageLatch, v *Vessel, prevLat, prevLon, currLat, currLon, prevCOG, currCOG float64, now time.Time) targetTransitionResult {
	if v.TargetBridge == "" {
		return targetTransitionResult{}
	}
	bridge, ok := reg.GetBridgeByName(v.TargetBridge)
	if !ok {
		return targetTransitionResult{}
	}

	if latch.TransitGuarded(v.MMSI, v.TargetBridge, now) {
		return targetTransitionResult{}
	}

	currDist := haversineMeters(currLat, currLon, bridge.Lat, bridge.Lon)
	if currDist <= 200 && latch.InGracePeriod(v.MMSI, v.TargetBridge, now) {
		return targetTransitionResult{BlockedByGraceZone: true}
	}

	res := DetectBridgePassage(bridge, prevLat, prevLon, currLat, currLon, prevCOG, currCOG)
	if !res.Passed {
		return targetTransitionResult{}
	}

	return targetTransitionResult{
		NewTarget:       nextTargetAfterPassage(reg, v.TargetBridge, currCOG),
		PassedTargetNow: true,
	}
}

// nextTargetAfterPassage decides the target bridge following a detected
// passage of the current target, honoring direction of travel: a vessel
// passing the northernmost target while still heading north is leaving the
// canal (new target null), not doubling back onto the bridge it just
// cleared (spec.md §8 scenario 1, §4.5 step 7). Mirrors computeTarget's
// northbound/southbound rules rather than blindly swapping between the two
// target bridges.
func nextTargetAfterPassage(reg *BridgeRegistry, passed string, cog float64) string {
	klaff, okK := reg.GetBridgeByName("Klaffbron")
	strids, okS := reg.GetBridgeByName("Stridsbergsbron")
	if !okK || !okS {
		return ""
	}

	if isNorthbound(cog) {
		if passed == klaff.Name {
			return strids.Name
		}
		return "" // passed Stridsbergsbron northbound: leaving the canal
	}

	// Southbound.
	if passed == strids.Name {
		return klaff.Name
	}
	return "" // passed Klaffbron southbound: leaving the canal
}

// targetProtectionShouldActivate implements spec.md §4.5 step 8's four
// activation conditions.
func targetProtectionShouldActivate(v *Vessel, distToTarget float64, gpsEvent bool, movedM float64, deltaCOG, deltaSOG float64, now time.Time) (bool, string) {
	if distToTarget <= ProtectionZoneM {
		return true, "proximity"
	}
	if gpsEvent || movedM > 200 {
		return true, "gps_event"
	}
	if deltaCOG > 45 || abs(deltaSOG) > 2 {
		return true, "maneuver"
	}
	if !v.LastPassedBridgeTime.IsZero() && now.Sub(v.LastPassedBridgeTime) < 60*time.Second {
		return true, "recent_passage"
	}
	return false, ""
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
