package engine

import "fmt"

// Bridge is an immutable catalog entry for one of the five canal bridges.
// Exactly two bridges in a BridgeRegistry have IsTarget set.
type Bridge struct {
	ID          string
	Name        string
	Lat         float64
	Lon         float64
	AxisBearing float64 // degrees, 0-360, canal-axis bearing at this bridge
	IsTarget    bool
	Order       int // position south->north along the canal, 0-based
}

// BridgeRegistry is the read-only (after construction) catalog of canal
// bridges, their ordering, and precomputed inter-bridge distances.
type BridgeRegistry struct {
	byID      map[string]*Bridge
	byName    map[string]*Bridge
	ordered   []*Bridge // sorted by Order
	distances map[[2]string]float64
}

// DefaultBridges is the canonical five-bridge Trollhättan canal catalog,
// south to north. Literal coordinates are illustrative canal values, taken
// as input constants rather than geodetic truth (spec.md §9 open question).
func DefaultBridges() []Bridge {
	return []Bridge{
		{ID: "olidebron", Name: "Olidebron", Lat: 58.2858, Lon: 12.2864, AxisBearing: 125, IsTarget: false, Order: 0},
		{ID: "klaffbron", Name: "Klaffbron", Lat: 58.2932, Lon: 12.2903, AxisBearing: 125, IsTarget: true, Order: 1},
		{ID: "jarnvagsbron", Name: "Järnvägsbron", Lat: 58.2978, Lon: 12.2930, AxisBearing: 125, IsTarget: false, Order: 2},
		{ID: "stridsbergsbron", Name: "Stridsbergsbron", Lat: 58.3072, Lon: 12.2984, AxisBearing: 125, IsTarget: true, Order: 3},
		{ID: "stallbackabron", Name: "Stallbackabron", Lat: 58.3230, Lon: 12.3090, AxisBearing: 125, IsTarget: false, Order: 4},
	}
}

// NewBridgeRegistry builds a registry from the given bridge list, validating
// the "exactly two targets" invariant and precomputing the pairwise
// distance table.
func NewBridgeRegistry(bridges []Bridge) (*BridgeRegistry, error) {
	r := &BridgeRegistry{
		byID:      make(map[string]*Bridge),
		byName:    make(map[string]*Bridge),
		distances: make(map[[2]string]float64),
	}

	targets := 0
	for i := range bridges {
		b := bridges[i]
		if _, exists := r.byID[b.ID]; exists {
			return nil, fmt.Errorf("duplicate bridge id %q", b.ID)
		}
		ptr := &b
		r.byID[b.ID] = ptr
		r.byName[b.Name] = ptr
		if b.IsTarget {
			targets++
		}
		r.ordered = append(r.ordered, ptr)
	}
	if targets != 2 {
		return nil, fmt.Errorf("bridge registry requires exactly two target bridges, got %d", targets)
	}

	for i := 0; i < len(r.ordered); i++ {
		for j := i + 1; j < len(r.ordered); j++ {
			a, b := r.ordered[i], r.ordered[j]
			d := haversineMeters(a.Lat, a.Lon, b.Lat, b.Lon)
			r.distances[[2]string{a.ID, b.ID}] = d
			r.distances[[2]string{b.ID, a.ID}] = d
		}
	}

	return r, nil
}

// NewDefaultBridgeRegistry builds the registry from DefaultBridges.
func NewDefaultBridgeRegistry() *BridgeRegistry {
	r, err := NewBridgeRegistry(DefaultBridges())
	if err != nil {
		// DefaultBridges is a compile-time constant with exactly two
		// targets; a failure here is a programming error.
		panic(err)
	}
	return r
}

func (r *BridgeRegistry) GetBridge(id string) (*Bridge, bool) {
	b, ok := r.byID[id]
	return b, ok
}

func (r *BridgeRegistry) GetBridgeByName(name string) (*Bridge, bool) {
	b, ok := r.byName[name]
	return b, ok
}

func (r *BridgeRegistry) GetAllBridgeIds() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, b := range r.ordered {
		ids = append(ids, b.ID)
	}
	return ids
}

func (r *BridgeRegistry) All() []*Bridge {
	out := make([]*Bridge, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *BridgeRegistry) IsValidTargetBridge(name string) bool {
	b, ok := r.byName[name]
	return ok && b.IsTarget
}

// TargetBridges returns the two target bridges in canal order.
func (r *BridgeRegistry) TargetBridges() []*Bridge {
	var out []*Bridge
	for _, b := range r.ordered {
		if b.IsTarget {
			out = append(out, b)
		}
	}
	return out
}

// GetBridgesBetween returns the ordered sequence of bridge ids strictly
// between fromName and toName (exclusive), in the direction from->to.
func (r *BridgeRegistry) GetBridgesBetween(fromName, toName string) []string {
	from, ok1 := r.byName[fromName]
	to, ok2 := r.byName[toName]
	if !ok1 || !ok2 {
		return nil
	}

	var ids []string
	if from.Order < to.Order {
		for _, b := range r.ordered {
			if b.Order > from.Order && b.Order < to.Order {
				ids = append(ids, b.ID)
			}
		}
	} else {
		for i := len(r.ordered) - 1; i >= 0; i-- {
			b := r.ordered[i]
			if b.Order < from.Order && b.Order > to.Order {
				ids = append(ids, b.ID)
			}
		}
	}
	return ids
}

// GetDistanceBetweenBridges returns the precomputed great-circle distance
// in meters between two bridges named by id.
func (r *BridgeRegistry) GetDistanceBetweenBridges(id1, id2 string) (float64, bool) {
	if id1 == id2 {
		return 0, true
	}
	d, ok := r.distances[[2]string{id1, id2}]
	return d, ok
}

// NextTargetBridge returns the other target bridge's name, or "" if name is
// not a known target bridge. With exactly two targets this is a swap.
func (r *BridgeRegistry) NextTargetBridge(name string) string {
	targets := r.TargetBridges()
	if len(targets) != 2 {
		return ""
	}
	switch name {
	case targets[0].Name:
		return targets[1].Name
	case targets[1].Name:
		return targets[0].Name
	default:
		return ""
	}
}

// BridgeByOrder returns the bridge whose Order matches, if any.
func (r *BridgeRegistry) BridgeByOrder(order int) (*Bridge, bool) {
	for _, b := range r.ordered {
		if b.Order == order {
			return b, true
		}
	}
	return nil, false
}

// NorthOf reports whether bridge a is north of bridge b along the canal.
func (r *BridgeRegistry) NorthOf(aName, bName string) bool {
	a, ok1 := r.byName[aName]
	b, ok2 := r.byName[bName]
	if !ok1 || !ok2 {
		return false
	}
	return a.Order > b.Order
}
