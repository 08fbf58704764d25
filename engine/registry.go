package engine

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PositionReport is the decoded AIS position record the ingest layer hands
// to the core (spec.md §6). The core does not own the wire format; it only
// consumes this already-decoded shape.
type PositionReport struct {
	MMSI        string
	Lat         float64
	Lon         float64
	SOG         float64
	COG         float64
	TrueHeading float64
	NavStatus   string
	TsUTC       time.Time
}

// ShipStaticData carries the vessel name/callsign pair, arriving on a
// separate, less frequent AIS message type than position reports.
type ShipStaticData struct {
	MMSI     string
	Name     string
	CallSign string
}

// cleanupTestHookSubstring disables GPS-jump detection for MMSIs used in
// scripted test fixtures (spec.md §4.5 step 2).
const cleanupTestHookSubstring = "265CONTROL"

// zone-dependent cleanup timeouts (spec.md §4.5).
const (
	cleanupNearZoneTimeout = 20 * time.Minute
	cleanupMidZoneTimeout  = 10 * time.Minute
	cleanupFarZoneTimeout  = 2 * time.Minute

	cleanupNearZoneM = 300.0
	cleanupMidZoneM  = 600.0

	staleStationaryThreshold = 15 * time.Minute
	staleMovingThreshold     = 5 * time.Minute
	timeoutReschedule        = 10 * time.Minute
)

// VesselRegistry is the central write path described in spec.md §4.5: the
// MMSI-keyed map of live vessels, the bridge-id reverse index, and the
// scheduling of per-vessel cleanup/protection timers.
type VesselRegistry struct {
	mu         sync.RWMutex
	vessels    map[string]*Vessel
	bridgeSets map[string]map[string]struct{}

	bridges *BridgeRegistry
	latch   *PassageLatch
	bus     *Bus
	log     *slog.Logger
}

// NewVesselRegistry builds an empty registry bound to a bridge catalog and
// event bus.
func NewVesselRegistry(bridges *BridgeRegistry, bus *Bus, log *slog.Logger) *VesselRegistry {
	if log == nil {
		log = slog.Default()
	}
	bridgeSets := make(map[string]map[string]struct{}, len(bridges.ordered))
	for _, b := range bridges.All() {
		bridgeSets[b.ID] = make(map[string]struct{})
	}
	return &VesselRegistry{
		vessels:    make(map[string]*Vessel),
		bridgeSets: bridgeSets,
		bridges:    bridges,
		latch:      NewPassageLatch(),
		bus:        bus,
		log:        log.With("component", "vessel_registry"),
	}
}

// UpdateVessel is the central write path (spec.md §4.5). It applies the AIS
// record's effects to the named vessel's state and returns a read-only
// snapshot of the result.
func (r *VesselRegistry) UpdateVessel(rec PositionReport) VesselSnapshot {
	v := r.getOrCreate(rec.MMSI)
	v.lock()
	defer v.unlock()

	now := rec.TsUTC
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// 1. Coordinate sanitization.
	lat, lon, coordsOK := sanitizeCoordinates(rec.Lat, rec.Lon)

	var prevLat, prevLon *float64
	if v.Lat != nil {
		pl := *v.Lat
		prevLat = &pl
	}
	if v.Lon != nil {
		pl := *v.Lon
		prevLon = &pl
	}
	prevSOG, prevCOG := v.SOG, v.COG
	havePrevPosition := v.hasValidPosition()

	if coordsOK {
		v.Lat = &lat
		v.Lon = &lon
	}
	// Invalid coordinates never overwrite prior valid ones; v.Lat/v.Lon are
	// simply left untouched.

	// 2. GPS-jump detection.
	var analysis JumpAnalysis
	bypassJumpDetection := strings.Contains(rec.MMSI, cleanupTestHookSubstring)
	if coordsOK && !bypassJumpDetection {
		analysis = AnalyzeMovement(
			Position{Lat: lat, Lon: lon}, havePrevPosition,
			positionOrZero(prevLat, prevLon),
			Kinematics{COG: rec.COG, SOG: rec.SOG, TS: now},
			Kinematics{COG: prevCOG, SOG: prevSOG, TS: v.Timestamp},
		)
	} else {
		analysis = JumpAnalysis{Action: ActionAccept, IsLegitimateMovement: true, Confidence: ConfidenceHigh}
	}
	v.positionAnalysis = &analysis
	v.gpsJumpDetected = analysis.IsGPSJump
	v.positionUncertain = analysis.Action == ActionAcceptWithCaution

	movedM := 0.0
	if coordsOK && havePrevPosition {
		movedM = haversineMeters(*prevLat, *prevLon, lat, lon)
		if movedM > MinimumMovement {
			v.LastPositionChange = now
			v.LastPosition = &Position{Lat: lat, Lon: lon}
		}
	} else if coordsOK {
		v.LastPositionChange = now
		v.LastPosition = &Position{Lat: lat, Lon: lon}
	}

	// 3. System coordination.
	decision := CoordinatePositionUpdate(analysis)
	if v.coordination == nil {
		v.coordination = &CoordinationState{}
	}
	v.coordination.Level = decision.StabilizationLevel
	v.coordination.Protection = decision.ShouldActivateProtection
	v.coordination.LastUpdate = now
	if decision.ShouldDebounceText {
		until := now.Add(decision.DebounceFor)
		if until.After(v.coordination.BridgeTextDebounceUntil) {
			v.coordination.BridgeTextDebounceUntil = until
		}
	}

	// 4. Vessel construction (carry-forward).
	v.MMSI = rec.MMSI
	v.SOG = rec.SOG
	v.COG = rec.COG
	v.Timestamp = now
	v.recordSpeed(rec.SOG, now)

	wasNew := v.CurrentBridge == "" && v.TargetBridge == "" && len(v.PassedBridges) == 0 && v.Status == StatusUnknown

	if !coordsOK || !v.hasValidPosition() {
		r.scheduleCleanup(v, cleanupFarZoneTimeout)
		return r.finish(v, wasNew)
	}

	prox := AnalyzeVesselProximity(r.bridges, lat, lon, rec.SOG, rec.COG)

	// 5/6/7/8. Target-bridge assignment, computation, transition, protection.
	r.updateTargetBridge(v, prox, prevLat, prevLon, lat, lon, prevCOG, rec.COG, prevSOG, movedM, now)

	// Current Bridge Manager.
	applyCurrentBridgeRules(r.bridges, v, prox)

	// 9. Intermediate passage.
	r.recordIntermediatePassages(v, prox, prevLat, prevLon, lat, lon, prevCOG, rec.COG, now)

	// Status + stabilization.
	resetUnderBridgeLatchIfNeeded(v, analysis.IsGPSJump, !coordsOK)
	proposed := evaluateStatus(v, prox, now)
	ext := CoordinateStatusStabilization(v.coordination.Level)
	final, stabilizeReason := stabilize(v, proposed, analysis, ext, now)
	prevStatus := v.Status
	v.Status = final
	v.IsWaiting = final == StatusWaiting || final == StatusStallbackaWaiting
	v.IsApproaching = final == StatusApproaching
	v.NearBridge = ""
	if prox.Nearest.Distance <= ApproachRadiusM {
		v.NearBridge = prox.Nearest.Name
	}

	// ETA.
	if eta, ok := CalculateETA(r.bridges, v, prox); ok {
		v.ETAMinutes = &eta
	} else {
		v.ETAMinutes = nil
	}

	// 10. Bridge-set membership.
	r.updateBridgeSetMembership(rec.MMSI, v.CurrentBridge)

	if final != prevStatus {
		r.bus.Publish(Event{
			ID: NewEventID(), Kind: EventStatusChanged, MMSI: v.MMSI,
			Status: final, OldStatus: prevStatus, Reason: stabilizeReason, Timestamp: now,
		})
	}

	// Trigger re-arming (spec.md §6).
	r.evaluateTrigger(v, prevStatus, final)

	// 11. Emit.
	r.scheduleCleanup(v, zoneCleanupTimeout(prox.Nearest.Distance))
	return r.finish(v, wasNew)
}

// finish is called with v's lock already held by the caller (UpdateVessel).
func (r *VesselRegistry) finish(v *Vessel, wasNew bool) VesselSnapshot {
	snap := v.snapshotLocked()
	kind := EventVesselUpdated
	if wasNew {
		kind = EventVesselEntered
	}
	r.bus.Publish(Event{ID: NewEventID(), Kind: kind, MMSI: v.MMSI, Status: snap.Status, Timestamp: v.Timestamp})
	return snap
}

func positionOrZero(lat, lon *float64) Position {
	if lat == nil || lon == nil {
		return Position{}
	}
	return Position{Lat: *lat, Lon: *lon}
}

// sanitizeCoordinates implements spec.md §4.5 step 1 / §7: out-of-range or
// non-finite values are rejected rather than nulled-and-kept, so the
// caller can leave the vessel's prior position untouched. Idempotent:
// sanitizing an already-valid pair returns it unchanged.
func sanitizeCoordinates(lat, lon float64) (float64, float64, bool) {
	if !validLat(lat) || !validLon(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

func (r *VesselRegistry) getOrCreate(mmsi string) *Vessel {
	r.mu.RLock()
	v, ok := r.vessels[mmsi]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vessels[mmsi]; ok {
		return v
	}
	v = newVessel(mmsi)
	r.vessels[mmsi] = v
	return v
}

// UpdateStaticData applies a ShipStaticData record (spec.md §6): it only
// ever touches the vessel's display name, arriving on a separate, less
// frequent AIS message type than position reports. A static record for an
// MMSI never otherwise seen is dropped — a name has nothing to attach to.
func (r *VesselRegistry) UpdateStaticData(rec ShipStaticData) {
	r.mu.RLock()
	v, ok := r.vessels[rec.MMSI]
	r.mu.RUnlock()
	if !ok || rec.Name == "" {
		return
	}
	v.lock()
	v.Name = rec.Name
	v.unlock()
}

func (r *VesselRegistry) updateTargetBridge(v *Vessel, prox Proximity, prevLat, prevLon *float64, lat, lon, prevCOG, cog, prevSOG float64, movedM float64, now time.Time) {
	haveCOG := isFinite(cog) && cog != 0

	if v.TargetBridge != "" {
		// Possible transition (passage of current target).
		transition := evaluateTargetTransition(r.bridges, r.latch, v, valOr(prevLat, lat), valOr(prevLon, lon), lat, lon, prevCOG, cog, now)
		if transition.PassedTargetNow {
			r.latch.RecordPassage(v.MMSI, v.TargetBridge, now, v.SOG)
			v.PassedBridges = append(v.PassedBridges, v.TargetBridge)
			v.LastPassedBridge = v.TargetBridge
			v.LastPassedBridgeTime = now

			if v.protection != nil && v.protection.Active && v.protection.TargetBridge == v.TargetBridge {
				v.protection = nil
			}
			v.TargetBridge = transition.NewTarget
			v.triggerArmed = make(map[string]bool)

			// The vessel cannot physically reach the next target inside the
			// dynamic inter-bridge window; suppress passage detection there
			// until it has had time to actually make the transit.
			if transition.NewTarget != "" {
				if gap, ok := r.bridges.GetDistanceBetweenBridges(bridgeIDFor(v.LastPassedBridge), bridgeIDFor(transition.NewTarget)); ok {
					r.latch.GuardTransit(v.MMSI, transition.NewTarget, now.Add(DynamicWindow(gap, v.SOG)))
				}
			}
		}
	} else if eligibleForTargetAssignment(prox.Nearest.Distance, v.SOG, cog, haveCOG) {
		candidate := computeTarget(r.bridges, lat, cog)
		if candidate != "" {
			if !haveCOG && prox.Nearest.Distance <= ProtectionZoneM {
				r.log.Warn("assigning target to a vessel without a usable course", "mmsi", v.MMSI, "target", candidate)
			}
			v.TargetBridge = candidate
		}
	}

	// Two-readings approach check / anchored-vessel rejection, applied
	// whenever a target is held after the steps above, including a target
	// assigned this tick.
	if v.TargetBridge != "" && prevLat != nil && prevLon != nil {
		if !twoReadingsApproachCheck(r.bridges, v.TargetBridge, prevLat, prevLon, lat, lon) {
			// Anchored/departing vessel still more than 300 m out: release
			// the target unless protection shields it from churn.
			if v.protection == nil || !v.protection.Active {
				v.TargetBridge = ""
			}
		}
	}

	r.applyTargetProtection(v, prox, prevCOG, cog, prevSOG, movedM, now)
}

func valOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func (r *VesselRegistry) applyTargetProtection(v *Vessel, prox Proximity, prevCOG, cog, prevSOG float64, movedM float64, now time.Time) {
	if v.TargetBridge == "" {
		return
	}

	distToTarget := prox.Nearest.Distance
	if d, ok := prox.BridgeDistances[bridgeIDFor(v.TargetBridge)]; ok {
		distToTarget = d
	}

	if distToTarget <= ProtectionZoneM {
		v.wasCloseToTarget = v.TargetBridge
	}

	if v.protection != nil && v.protection.Active {
		if now.Sub(v.protection.StartTime) > protectionMaxLifetime {
			v.protection = nil
		} else if v.protection.TargetBridge != v.TargetBridge {
			// A passage of the protected target overrides protection; any
			// other attempted change is rejected by restoring it.
			v.TargetBridge = v.protection.TargetBridge
		}
		return
	}

	gpsEvent := v.gpsJumpDetected || v.positionUncertain
	should, reason := targetProtectionShouldActivate(v, distToTarget, gpsEvent, movedM, angularDiff(prevCOG, cog), v.SOG-prevSOG, now)
	if should {
		v.protection = &Protection{
			Active:           true,
			Reason:           reason,
			StartTime:        now,
			TargetBridge:     v.TargetBridge,
			Confidence:       protectionConfidence(reason),
			GPSEventDetected: gpsEvent,
			CloseToTarget:    distToTarget <= ProtectionZoneM || v.wasCloseToTarget == v.TargetBridge,
			ManeuverDetected: reason == "maneuver",
			DistanceToTarget: distToTarget,
		}
		r.armProtectionTimer(v, now)
	}
}

// protectionConfidence maps an activation reason to how certain the
// registry is that shielding the target is the right call.
func protectionConfidence(reason string) float64 {
	switch reason {
	case "proximity":
		return 0.9
	case "recent_passage":
		return 0.8
	case "gps_event":
		return 0.7
	case "maneuver":
		return 0.6
	default:
		return 0.5
	}
}

// armProtectionTimer bounds the protection record's lifetime with a real
// timer in addition to the lazy expiry check; a fire for a protection that
// has already been replaced or cleared is a no-op.
func (r *VesselRegistry) armProtectionTimer(v *Vessel, start time.Time) {
	if v.protectionTimer != nil {
		v.protectionTimer.Stop()
	}
	v.protectionTimer = time.AfterFunc(protectionMaxLifetime, func() {
		v.lock()
		if v.protection != nil && v.protection.StartTime.Equal(start) {
			v.protection = nil
		}
		v.unlock()
	})
}

func (r *VesselRegistry) recordIntermediatePassages(v *Vessel, prox Proximity, prevLat, prevLon *float64, lat, lon, prevCOG, cog float64, now time.Time) {
	if prevLat == nil || prevLon == nil {
		return
	}
	targetPassedRecently := !v.LastPassedBridgeTime.IsZero() && now.Sub(v.LastPassedBridgeTime) < 60*time.Second

	for _, b := range r.bridges.All() {
		if b.IsTarget || b.Name == v.TargetBridge {
			continue
		}
		if v.hasPassed(b.Name) && r.latch.InGracePeriod(v.MMSI, b.Name, now) {
			continue
		}
		res := DetectBridgePassage(b, *prevLat, *prevLon, lat, lon, prevCOG, cog)
		if !res.Passed {
			continue
		}
		r.latch.RecordPassage(v.MMSI, b.Name, now, v.SOG)
		v.PassedBridges = append(v.PassedBridges, b.Name)
		if !targetPassedRecently {
			v.LastPassedBridge = b.Name
			v.LastPassedBridgeTime = now
		}
	}
}

func (r *VesselRegistry) updateBridgeSetMembership(mmsi, currentBridge string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, set := range r.bridgeSets {
		b, _ := r.bridges.GetBridge(id)
		if b != nil && b.Name == currentBridge {
			set[mmsi] = struct{}{}
		} else {
			delete(set, mmsi)
		}
	}
}

func (r *VesselRegistry) evaluateTrigger(v *Vessel, prevStatus, newStatus VesselStatus) {
	if v.TargetBridge == "" {
		return
	}
	if newStatus == StatusApproaching && prevStatus != StatusApproaching {
		if !v.triggerArmed[v.TargetBridge] {
			v.triggerArmed[v.TargetBridge] = true
			r.bus.Publish(Event{ID: NewEventID(), Kind: EventBoatNear, MMSI: v.MMSI, Status: newStatus, Bridge: v.TargetBridge, Timestamp: v.Timestamp})
		}
	}
	if newStatus != StatusApproaching {
		delete(v.triggerArmed, v.TargetBridge)
	}
}

func zoneCleanupTimeout(nearestDistanceM float64) time.Duration {
	switch {
	case nearestDistanceM <= cleanupNearZoneM:
		return cleanupNearZoneTimeout
	case nearestDistanceM <= cleanupMidZoneM:
		return cleanupMidZoneTimeout
	default:
		return cleanupFarZoneTimeout
	}
}

func (r *VesselRegistry) scheduleCleanup(v *Vessel, timeout time.Duration) {
	if v.cleanupTimer != nil {
		v.cleanupTimer.Stop()
	}
	mmsi := v.MMSI
	v.cleanupTimer = time.AfterFunc(timeout, func() {
		r.RemoveVessel(mmsi, "timeout")
	})
}

// RemoveVessel implements spec.md §4.5's removeVessel: a "timeout" removal
// near any bridge with a recent position change is deferred by
// rescheduling cleanup instead of deleting the vessel outright.
func (r *VesselRegistry) RemoveVessel(mmsi, reason string) {
	r.mu.RLock()
	v, ok := r.vessels[mmsi]
	r.mu.RUnlock()
	if !ok {
		return
	}

	v.lock()
	if reason == "timeout" {
		withinProtection := v.hasValidPosition() && r.withinAnyBridge(v, ProtectionZoneM)
		stale := time.Since(v.LastPositionChange)
		fresh := (v.SOG < 0.5 && stale < staleStationaryThreshold) || (v.SOG >= 0.5 && stale < staleMovingThreshold)
		if withinProtection && fresh {
			r.scheduleCleanup(v, timeoutReschedule)
			v.unlock()
			return
		}
	}
	if v.cleanupTimer != nil {
		v.cleanupTimer.Stop()
	}
	if v.protectionTimer != nil {
		v.protectionTimer.Stop()
	}
	v.unlock()

	r.latch.Clear(mmsi)

	r.mu.Lock()
	delete(r.vessels, mmsi)
	for _, set := range r.bridgeSets {
		delete(set, mmsi)
	}
	r.mu.Unlock()

	r.bus.Publish(Event{ID: NewEventID(), Kind: EventVesselRemoved, MMSI: mmsi, Reason: reason, Timestamp: time.Now().UTC()})
}

func (r *VesselRegistry) withinAnyBridge(v *Vessel, radiusM float64) bool {
	if v.Lat == nil || v.Lon == nil {
		return false
	}
	for _, b := range r.bridges.All() {
		if haversineMeters(*v.Lat, *v.Lon, b.Lat, b.Lon) <= radiusM {
			return true
		}
	}
	return false
}

// Snapshot returns a read-only copy of every currently tracked vessel, for
// use by the Bridge Text Service, CLI, and TUI (spec.md §5: cross-MMSI
// reads observe a consistent snapshot, never a partially-updated vessel).
func (r *VesselRegistry) Snapshot() []VesselSnapshot {
	r.mu.RLock()
	vessels := make([]*Vessel, 0, len(r.vessels))
	for _, v := range r.vessels {
		vessels = append(vessels, v)
	}
	r.mu.RUnlock()

	out := make([]VesselSnapshot, 0, len(vessels))
	for _, v := range vessels {
		out = append(out, v.snapshot())
	}
	return out
}

// Sweep runs periodic housekeeping: the passage-latch memory sweep. Called
// from the Scheduler (spec.md §4.12).
func (r *VesselRegistry) Sweep(now time.Time) {
	r.latch.sweep(now)
}
