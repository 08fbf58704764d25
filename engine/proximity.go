package engine

// ApproachRadiusM is the distance within which a vessel is considered to be
// approaching a bridge (spec.md §4.6).
const ApproachRadiusM = 500.0

// ProtectionZoneM is the ring around any bridge inside which a vessel is
// immune to timeout removal and its target bridge is shielded from churn
// (spec.md glossary, §4.5).
const ProtectionZoneM = 300.0

// NearestBridge identifies a single bridge and the vessel's distance to it.
type NearestBridge struct {
	Name     string
	ID       string
	Distance float64
}

// Proximity is the Proximity Analyzer's output for one vessel (spec.md
// §4.6).
type Proximity struct {
	BridgeDistances      map[string]float64 // by bridge id
	Nearest              NearestBridge
	UnderBridge          bool
	WithinProtectionZone bool
	IsApproaching        bool
}

// AnalyzeVesselProximity computes per-bridge distances and derived flags
// for a vessel with a valid position. Callers must check hasValidPosition
// first; behavior with a nil position is undefined.
func AnalyzeVesselProximity(reg *BridgeRegistry, lat, lon, sog, cog float64) Proximity {
	p := Proximity{BridgeDistances: make(map[string]float64, len(reg.ordered))}

	bestDist := 0.0
	haveBest := false
	for _, b := range reg.ordered {
		d := haversineMeters(lat, lon, b.Lat, b.Lon)
		p.BridgeDistances[b.ID] = d
		if !haveBest || d < bestDist {
			bestDist = d
			haveBest = true
			p.Nearest = NearestBridge{Name: b.Name, ID: b.ID, Distance: d}
		}
		if d <= ProtectionZoneM {
			p.WithinProtectionZone = true
		}
	}

	if !haveBest {
		return p
	}

	p.UnderBridge = p.Nearest.Distance <= 50

	if p.Nearest.Distance <= ApproachRadiusM {
		if sog < 0.5 {
			p.IsApproaching = true
		} else {
			nearestBridge, ok := reg.GetBridge(p.Nearest.ID)
			if ok {
				bearingToBridge := initialBearing(lat, lon, nearestBridge.Lat, nearestBridge.Lon)
				p.IsApproaching = angularDiff(cog, bearingToBridge) <= 90
			}
		}
	}

	return p
}
