package engine

import "time"

// CoordinationDecision is the System Coordinator's verdict for a single
// position update (spec.md §4.3).
type CoordinationDecision struct {
	ShouldActivateProtection bool
	ShouldDebounceText       bool
	DebounceFor              time.Duration
	StabilizationLevel       CoordinationLevel
}

// CoordinatePositionUpdate derives cross-module protection/debounce policy
// from a Jump Analyzer verdict.
func CoordinatePositionUpdate(analysis JumpAnalysis) CoordinationDecision {
	switch {
	case analysis.IsGPSJump:
		return CoordinationDecision{
			ShouldActivateProtection: true,
			ShouldDebounceText:       true,
			DebounceFor:              10 * time.Second,
			StabilizationLevel:       CoordinationEnhanced,
		}
	case analysis.Action == ActionAcceptWithCaution:
		return CoordinationDecision{
			ShouldActivateProtection: true,
			ShouldDebounceText:       true,
			DebounceFor:              5 * time.Second,
			StabilizationLevel:       CoordinationModerate,
		}
	default:
		return CoordinationDecision{StabilizationLevel: CoordinationNormal}
	}
}

// StabilizationExtension is the result of coordinateStatusStabilization:
// how much longer, if any, a stabilized status should be held.
type StabilizationExtension struct {
	ExtraHold           time.Duration
	CoordinationApplied bool
}

// CoordinateStatusStabilization extends a stabilization window by 30s when
// the coordination level is enhanced or above (spec.md §4.3).
func CoordinateStatusStabilization(level CoordinationLevel) StabilizationExtension {
	if level == CoordinationEnhanced || level == CoordinationSystemWide {
		return StabilizationExtension{ExtraHold: 30 * time.Second, CoordinationApplied: true}
	}
	return StabilizationExtension{}
}

// DebounceStatus is what ShouldDebounceBridgeText reports back to the
// Bridge Text Service.
type DebounceStatus struct {
	ShouldDebounce  bool
	RemainingTime   time.Duration
	ActiveDebounces int
}

// ShouldDebounceBridgeText aggregates the per-vessel coordination state:
// if any vessel's bridge-text debounce window is still open, the composer
// must re-emit the cached string instead of computing a fresh one.
func ShouldDebounceBridgeText(now time.Time, vessels []VesselSnapshot) DebounceStatus {
	var status DebounceStatus
	for _, v := range vessels {
		if v.BridgeTextDebounceUntil.IsZero() || !v.BridgeTextDebounceUntil.After(now) {
			continue
		}
		status.ActiveDebounces++
		status.ShouldDebounce = true
		if remaining := v.BridgeTextDebounceUntil.Sub(now); remaining > status.RemainingTime {
			status.RemainingTime = remaining
		}
	}
	return status
}
