// Package bridgetext turns a set of tracked vessels into the single
// Swedish status string and alarm flag shown to the automation host.
package bridgetext

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brovakt/canal/engine"
)

// IdleText is emitted whenever no vessel qualifies for a sentence.
const IdleText = "Inga båtar är i närheten av Klaffbron eller Stridsbergsbron"

const suitabilitySOGKn = 0.3

var eligibleStatuses = map[engine.VesselStatus]bool{
	engine.StatusApproaching:       true,
	engine.StatusWaiting:           true,
	engine.StatusUnderBridge:       true,
	engine.StatusStallbackaWaiting: true,
	engine.StatusPassed:            true,
	engine.StatusEnRoute:           true,
}

// statusPriority ranks statuses for picking the "leading" vessel per
// target bridge (spec.md §4.10): passed > under-bridge > stallbacka-waiting
// > waiting > approaching > en-route.
var statusPriority = map[engine.VesselStatus]int{
	engine.StatusPassed:            6,
	engine.StatusUnderBridge:       5,
	engine.StatusStallbackaWaiting: 4,
	engine.StatusWaiting:           3,
	engine.StatusApproaching:       2,
	engine.StatusEnRoute:           1,
}

// Service owns the last-emitted string/alarm cache (spec.md §5: the Bridge
// Text Service owns lastBridgeText; writes are serialized with reads).
type Service struct {
	bridges *engine.BridgeRegistry

	mu        sync.Mutex
	lastText  string
	lastAlarm bool
}

// NewService returns a Service with the idle string as its initial cached
// output.
func NewService(bridges *engine.BridgeRegistry) *Service {
	return &Service{bridges: bridges, lastText: IdleText}
}

// Cached returns the last text/alarm emitted, without recomputing
// anything — useful for callers that want to compare a fresh Compose
// result against what was previously shown (e.g. to count regenerations
// vs. debounced re-emits).
func (s *Service) Cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastText, s.lastAlarm
}

// Compose is the Bridge Text Service's single public entry point: given the
// current vessel snapshots, it returns the bridge_text string and the
// alarm_generic boolean (spec.md §4.10).
func (s *Service) Compose(now time.Time, vessels []engine.VesselSnapshot) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if debounce := engine.ShouldDebounceBridgeText(now, vessels); debounce.ShouldDebounce {
		return s.lastText, s.lastAlarm
	}

	candidates := filterCandidates(vessels)
	alarm := deriveAlarm(candidates)

	var sentences []string
	for _, target := range s.bridges.TargetBridges() {
		group := candidates[target.Name]
		if len(group) == 0 {
			continue
		}
		sentences = append(sentences, composeSentenceForTarget(target.Name, group))
	}

	text := IdleText
	if len(sentences) > 0 {
		text = strings.Join(sentences, " ")
	}

	s.lastText = text
	s.lastAlarm = alarm
	return text, alarm
}

func filterCandidates(vessels []engine.VesselSnapshot) map[string][]engine.VesselSnapshot {
	groups := make(map[string][]engine.VesselSnapshot)
	for _, v := range vessels {
		if v.TargetBridge == "" {
			continue
		}
		if v.MMSI == "" {
			continue
		}
		if v.SOG < suitabilitySOGKn && v.Status != engine.StatusWaiting && v.Status != engine.StatusStallbackaWaiting {
			continue
		}
		if !eligibleStatuses[v.Status] {
			continue
		}
		groups[v.TargetBridge] = append(groups[v.TargetBridge], v)
	}
	return groups
}

func deriveAlarm(groups map[string][]engine.VesselSnapshot) bool {
	for _, group := range groups {
		for _, v := range group {
			switch v.Status {
			case engine.StatusWaiting, engine.StatusUnderBridge, engine.StatusStallbackaWaiting, engine.StatusPassed:
				return true
			}
		}
	}
	return false
}

// composeSentenceForTarget picks the leading vessel for the group and
// renders its sentence template. For the approaching/en-route templates
// (spec.md §4.10) the leading count folds in every vessel sharing that
// status rather than singling one out; a trailing "ytterligare N" clause
// covers any lower-priority vessels left over.
func composeSentenceForTarget(target string, group []engine.VesselSnapshot) string {
	sort.SliceStable(group, func(i, j int) bool {
		return statusPriority[group[i].Status] > statusPriority[group[j].Status]
	})
	leader := group[0]

	if leader.Status == engine.StatusApproaching || leader.Status == engine.StatusEnRoute {
		return renderCountedSentence(target, leader.Status, group)
	}

	others := len(group) - 1
	sentence := renderLeaderSentence(target, leader)
	if others > 0 {
		sentence += ", ytterligare " + countWordLower(others) + " " + boatWord(others) + " på väg"
	}
	return sentence
}

// renderCountedSentence implements the "En båt närmar sig {bridge}" /
// "En båt på väg mot {target}" templates, whose leading clause counts every
// vessel sharing the leader's status rather than a single vessel, per
// spec.md §4.10.
func renderCountedSentence(target string, leadStatus engine.VesselStatus, group []engine.VesselSnapshot) string {
	var leading, rest []engine.VesselSnapshot
	for _, v := range group {
		if v.Status == leadStatus {
			leading = append(leading, v)
		} else {
			rest = append(rest, v)
		}
	}
	n := len(leading)
	etaText, haveETA := formatETA(leading[0].ETAMinutes)

	var sentence string
	switch leadStatus {
	case engine.StatusApproaching:
		bridge := leading[0].NearBridge
		if bridge == "" {
			bridge = target
		}
		sentence = countWord(n) + " " + boatWord(n) + " närmar sig " + bridge
		if bridge != target {
			sentence += " på väg mot " + target
		}
	default: // en-route
		sentence = countWord(n) + " " + boatWord(n) + " på väg mot " + target
	}
	if len(rest) > 0 {
		sentence += ", ytterligare " + countWordLower(len(rest)) + " " + boatWord(len(rest)) + " på väg"
	} else if haveETA {
		sentence += ", beräknad broöppning " + etaText
	}
	return sentence
}

func renderLeaderSentence(target string, v engine.VesselSnapshot) string {
	bridge := v.CurrentBridge
	if bridge == "" {
		bridge = target
	}
	etaText, haveETA := formatETA(v.ETAMinutes)

	switch v.Status {
	case engine.StatusPassed:
		s := "En båt har precis passerat " + bridge + " på väg mot " + target
		if haveETA {
			s += ", beräknad broöppning " + etaText
		}
		return s

	case engine.StatusUnderBridge:
		if bridge == target {
			return "Broöppning pågår vid " + bridge
		}
		s := "Broöppning pågår vid " + bridge + " på väg mot " + target
		if haveETA {
			s += ", beräknad broöppning av " + target + " " + etaText
		}
		return s

	case engine.StatusStallbackaWaiting:
		s := "En båt inväntar broöppning av " + bridge + " på väg mot " + target
		if haveETA {
			s += ", beräknad broöppning " + etaText
		}
		return s

	case engine.StatusWaiting:
		if bridge == target {
			return "En båt inväntar broöppning vid " + target
		}
		s := "En båt inväntar broöppning av " + bridge + " på väg mot " + target
		if haveETA {
			s += ", beräknad broöppning " + etaText
		}
		return s

	default:
		s := "En båt på väg mot " + target
		if haveETA {
			s += ", beräknad broöppning " + etaText
		}
		return s
	}
}

// formatETA applies the spec's rounding/phrasing rules (spec.md §4.10).
func formatETA(minutes *float64) (string, bool) {
	if minutes == nil {
		return "", false
	}
	rounded := int(*minutes + 0.5)
	switch {
	case rounded <= 0:
		return "nu", true
	case rounded == 1:
		return "om 1 minut", true
	default:
		return "om " + itoa(rounded) + " minuter", true
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func boatWord(n int) string {
	if n == 1 {
		return "båt"
	}
	return "båtar"
}
