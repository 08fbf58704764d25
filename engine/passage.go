package engine

import (
	"sync"
	"time"
)

// PassageMethod identifies which detector matched (spec.md §4.7).
type PassageMethod string

const (
	PassageNone              PassageMethod = ""
	PassageCloseApproach     PassageMethod = "close_approach"
	PassageLineCrossing      PassageMethod = "line_crossing"
	PassageProgressive       PassageMethod = "progressive_distance"
	PassageDirectionChange   PassageMethod = "direction_change"
	PassageStallbackaSpecial PassageMethod = "stallbacka_special"
	PassageInvalidInput      PassageMethod = "invalid_input"
)

// PassageResult is the Passage Detector's verdict for one bridge (spec.md
// §4.7).
type PassageResult struct {
	Passed     bool
	Method     PassageMethod
	Confidence float64
}

// DetectBridgePassage tries each passage-detection method in priority
// order and returns the first match. prevDist/currDist are the vessel's
// distances to bridge at the previous and current readings.
func DetectBridgePassage(bridge *Bridge, prevLat, prevLon, currLat, currLon, prevCOG, currCOG float64) PassageResult {
	if !isFinite(prevLat) || !isFinite(prevLon) || !isFinite(currLat) || !isFinite(currLon) {
		return PassageResult{Method: PassageInvalidInput}
	}

	prevDist := haversineMeters(prevLat, prevLon, bridge.Lat, bridge.Lon)
	currDist := haversineMeters(currLat, currLon, bridge.Lat, bridge.Lon)

	// 1. Traditional close passage.
	if prevDist <= 50 && currDist > prevDist && currDist > 60 {
		return PassageResult{Passed: true, Method: PassageCloseApproach, Confidence: 0.95}
	}

	// 2. Enhanced line crossing.
	movedFar := haversineMeters(prevLat, prevLon, currLat, currLon) > 100
	crossingRadius := 250.0
	if movedFar {
		crossingRadius = 300.0
	}
	if (prevDist <= crossingRadius || currDist <= crossingRadius) && currDist > prevDist {
		px, py := localMetricFrame(bridge.Lat, bridge.Lon, prevLat, prevLon)
		cx, cy := localMetricFrame(bridge.Lat, bridge.Lon, currLat, currLon)
		ux, uy := canalAxisUnitVector(bridge.AxisBearing)
		pProj := projectOntoAxis(px, py, ux, uy)
		cProj := projectOntoAxis(cx, cy, ux, uy)
		if (pProj < 0) != (cProj < 0) && pProj != 0 {
			return PassageResult{Passed: true, Method: PassageLineCrossing, Confidence: 0.85}
		}
	}

	// 3. Progressive distance.
	if prevDist <= 200 && currDist > prevDist+10 && currDist > 80 {
		return PassageResult{Passed: true, Method: PassageProgressive, Confidence: 0.75}
	}

	// 4. Direction change.
	if prevDist <= 250 && angularDiff(prevCOG, currCOG) > 60 && currDist > prevDist-10 && currDist > 60 {
		return PassageResult{Passed: true, Method: PassageDirectionChange, Confidence: 0.70}
	}

	// 5. Stallbackabron special.
	if bridge.Name == "Stallbackabron" && prevDist <= 120 && currDist > prevDist-5 && currDist > 50 {
		return PassageResult{Passed: true, Method: PassageStallbackaSpecial, Confidence: 0.80}
	}

	return PassageResult{}
}

// PassageLatch enforces the display window (suppress re-entering waiting
// at a just-passed bridge) and the internal grace period (suppress
// re-detecting a passage of the same bridge). Updates for different MMSIs
// run concurrently, so the latch carries its own lock.
type PassageLatch struct {
	mu      sync.Mutex
	entries map[string]latchEntry // key: mmsi|bridge
	guards  map[string]time.Time  // key: mmsi|bridge, transit-guard expiry
}

type latchEntry struct {
	passedAt   time.Time
	graceUntil time.Time
}

// DisplayWindow is the fixed user-visible "precis passerat" duration.
const DisplayWindow = 60 * time.Second

func NewPassageLatch() *PassageLatch {
	return &PassageLatch{
		entries: make(map[string]latchEntry),
		guards:  make(map[string]time.Time),
	}
}

func latchKey(mmsi, bridge string) string { return mmsi + "|" + bridge }

// internalGrace computes the grace window: faster vessels get a longer
// grace period since they clear the bridge sooner.
func internalGrace(sog float64) time.Duration {
	if sog > 5 {
		return 120 * time.Second
	}
	return 60 * time.Second
}

// DynamicWindow is the plausibility window for inter-bridge computations:
// 1.5x the expected transit time of the gap at the vessel's speed, clamped
// to [90s, 300s]. A stationary vessel gets the upper bound.
func DynamicWindow(gapM, sogKn float64) time.Duration {
	speedMS := sogKn * 1852.0 / 3600.0
	if speedMS <= 0 {
		return 300 * time.Second
	}
	w := time.Duration(1.5 * (gapM / speedMS) * float64(time.Second))
	if w < 90*time.Second {
		w = 90 * time.Second
	}
	if w > 300*time.Second {
		w = 300 * time.Second
	}
	return w
}

// RecordPassage latches a detected passage of bridge at time now for mmsi.
func (l *PassageLatch) RecordPassage(mmsi, bridge string, now time.Time, sog float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[latchKey(mmsi, bridge)] = latchEntry{
		passedAt:   now,
		graceUntil: now.Add(internalGrace(sog)),
	}
}

// InGracePeriod reports whether a fresh passage of bridge should be
// suppressed for mmsi at time now (passage exclusivity, spec.md §8).
func (l *PassageLatch) InGracePeriod(mmsi, bridge string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[latchKey(mmsi, bridge)]
	if !ok {
		return false
	}
	return now.Before(e.graceUntil)
}

// InDisplayWindow reports whether mmsi is still within the fixed 60s
// "precis passerat" window for bridge.
func (l *PassageLatch) InDisplayWindow(mmsi, bridge string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[latchKey(mmsi, bridge)]
	if !ok {
		return false
	}
	return now.Sub(e.passedAt) < DisplayWindow
}

// GuardTransit suppresses passage detection of bridge for mmsi until the
// given time: right after a target handoff, the vessel cannot physically
// have reached the next bridge yet, so any "passage" of it inside the
// dynamic window is noise.
func (l *PassageLatch) GuardTransit(mmsi, bridge string, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guards[latchKey(mmsi, bridge)] = until
}

// TransitGuarded reports whether a passage of bridge should be suppressed
// for mmsi because its transit guard is still open.
func (l *PassageLatch) TransitGuarded(mmsi, bridge string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.guards[latchKey(mmsi, bridge)]
	return ok && now.Before(until)
}

// Clear drops all latch state for mmsi (called on vessel removal).
func (l *PassageLatch) Clear(mmsi string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.entries {
		if len(k) > len(mmsi) && k[:len(mmsi)] == mmsi && k[len(mmsi)] == '|' {
			delete(l.entries, k)
		}
	}
	for k := range l.guards {
		if len(k) > len(mmsi) && k[:len(mmsi)] == mmsi && k[len(mmsi)] == '|' {
			delete(l.guards, k)
		}
	}
}

// sweep removes latch entries whose grace period has long expired, to
// bound memory; called periodically from the cleanup scheduler.
func (l *PassageLatch) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if now.Sub(e.graceUntil) > 10*time.Minute {
			delete(l.entries, k)
		}
	}
	for k, until := range l.guards {
		if now.After(until) {
			delete(l.guards, k)
		}
	}
}
