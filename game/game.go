// Package game implements the token game: given a net and a marking,
// which transitions are enabled and what tokens would each consume.
package game

import (
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// EnabledTransitions returns the set of transitions whose in-marking is
// a sub-multiset of the given multiplicity. A transition with no input
// places is always enabled. Blocked/fatal transitions are not excluded
// here — the scheduler enforces that (spec §4.C, §4.F).
func EnabledTransitions(n *net.Net, multiplicity map[net.PlaceID]int) map[net.TransitionID]bool {
	out := make(map[net.TransitionID]bool)
	for _, t := range n.Transitions() {
		if isEnabled(n, t.ID, multiplicity) {
			out[t.ID] = true
		}
	}
	return out
}

func isEnabled(n *net.Net, t net.TransitionID, multiplicity map[net.PlaceID]int) bool {
	for p, weight := range n.InMarking(t) {
		if multiplicity[p] < weight {
			return false
		}
	}
	return true
}

// ConsumableParameters enumerates the tokens a transition would consume
// from the marking: for each input place, the first `weight` tokens in
// iteration order. This yields exactly one selection per call — a
// deterministic, cheap token-choice rule, not all logically possible
// combinations (spec §4.C Open Question: flagged, not fixed, tests
// depend on this determinism). Returns ok=false if t is not enabled.
func ConsumableParameters(n *net.Net, m token.ColoredMarking, t net.TransitionID) (map[net.PlaceID][]token.Token, bool) {
	if !isEnabled(n, t, m.Multiplicity()) {
		return nil, false
	}
	params := make(map[net.PlaceID][]token.Token)
	for p, weight := range n.InMarking(t) {
		available := m.Tokens(p)
		params[p] = append([]token.Token{}, available[:weight]...)
	}
	return params, true
}

// EnabledParameters composes EnabledTransitions and ConsumableParameters
// for every enabled transition in the net.
func EnabledParameters(n *net.Net, m token.ColoredMarking) map[net.TransitionID]map[net.PlaceID][]token.Token {
	out := make(map[net.TransitionID]map[net.PlaceID][]token.Token)
	for id := range EnabledTransitions(n, m.Multiplicity()) {
		params, ok := ConsumableParameters(n, m, id)
		if ok {
			out[id] = params
		}
	}
	return out
}
