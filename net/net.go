// Package net implements the immutable bipartite topology of a Petri
// net: places, transitions, and the weighted arcs connecting them.
package net

import (
	"context"
	"errors"
	"fmt"

	"github.com/jt05610/petriengine/token"
)

// PlaceID and TransitionID are the stable integer identities of nodes.
// Two nodes are equal iff their ids match.
type PlaceID = token.PlaceID
type TransitionID int

// Decision is the outcome of a transition's exception strategy.
type Decision struct {
	Kind        DecisionKind
	DelayMillis int64
}

type DecisionKind int

const (
	// BlockTransition disables the transition until externally cleared.
	// No clearing mechanism is specified (spec Open Question); this
	// engine treats Blocked as permanent within the instance's lifetime,
	// differing from Fatal only in the label surfaced to callers.
	BlockTransition DecisionKind = iota
	// RetryWithDelay re-attempts the transition after DelayMillis.
	RetryWithDelay
	// Fatal permanently disables the transition for this instance.
	Fatal
)

func (d DecisionKind) String() string {
	switch d {
	case BlockTransition:
		return "block"
	case RetryWithDelay:
		return "retry"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StrategyFunc maps a firing failure and its attempt count (1-based) to
// a decision about what happens next.
type StrategyFunc func(err error, attempt int) Decision

// FireFunc is a transition's user function: given the structured input
// (fields keyed by input arc selector) and an optional command payload,
// it produces structured output (fields keyed by output arc selector)
// and a domain event.
type FireFunc func(ctx context.Context, input map[string][]token.Token, payload interface{}) (output map[string][]token.Token, event interface{}, err error)

// Place is a node that tokens of a single color reside in.
type Place struct {
	ID    PlaceID
	Label string
	Color token.Schema
}

// Transition fires by consuming tokens from its input places and
// producing tokens into its output places.
type Transition struct {
	ID    TransitionID
	Label string
	// Automated transitions are fired by the scheduler without an
	// external request.
	Automated bool
	// Strategy governs what happens after Fire returns an error.
	Strategy StrategyFunc
	// Fire is the transition's user function.
	Fire FireFunc
	// Guard is an optional expr-lang boolean expression evaluated over
	// the structured input of a firing, keyed by input arc selector.
	// Empty means always true. The token game does not evaluate it:
	// enablement is weight-based only, and exec.Fire checks the guard
	// when the firing runs, reporting a rejection as a *exec.Failed
	// firing failure. Supplemental feature (SPEC_FULL §11).
	Guard string
}

// Direction distinguishes a place-to-transition arc from a
// transition-to-place arc.
type Direction int

const (
	// In is a place->transition arc: an input to the transition.
	In Direction = iota
	// Out is a transition->place arc: an output from the transition.
	Out
)

// Arc connects a place and a transition with a positive weight and a
// field selector used to route tokens into/out of the transition's
// structured input/output.
type Arc struct {
	Place      PlaceID
	Transition TransitionID
	Direction  Direction
	Weight     int
	Selector   string
}

var (
	ErrDanglingArc       = errors.New("net: arc references a node not present in the net")
	ErrNonPositiveWeight = errors.New("net: arc weight must be positive")
	ErrDuplicatePlace    = errors.New("net: duplicate place id")
	ErrDuplicateTrans    = errors.New("net: duplicate transition id")
)

// Net is an immutable bipartite graph of places and transitions. Once
// constructed with New it is never mutated; every query is pure.
type Net struct {
	places      map[PlaceID]*Place
	transitions map[TransitionID]*Transition
	arcs        []*Arc
	inputArcs   map[TransitionID][]*Arc // place->transition arcs, by transition
	outputArcs  map[TransitionID][]*Arc // transition->place arcs, by transition
	placeOrder  []PlaceID
	transOrder  []TransitionID
}

// New validates and builds an immutable net. Bipartiteness is guaranteed
// structurally by Arc (every arc has exactly one Place and one
// Transition field); New checks that every referenced node exists and
// every weight is positive.
func New(places []*Place, transitions []*Transition, arcs []*Arc) (*Net, error) {
	n := &Net{
		places:      make(map[PlaceID]*Place, len(places)),
		transitions: make(map[TransitionID]*Transition, len(transitions)),
		inputArcs:   make(map[TransitionID][]*Arc),
		outputArcs:  make(map[TransitionID][]*Arc),
	}
	for _, p := range places {
		if _, dup := n.places[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePlace, p.ID)
		}
		n.places[p.ID] = p
		n.placeOrder = append(n.placeOrder, p.ID)
	}
	for _, t := range transitions {
		if _, dup := n.transitions[t.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTrans, t.ID)
		}
		n.transitions[t.ID] = t
		n.transOrder = append(n.transOrder, t.ID)
	}
	for _, a := range arcs {
		if _, ok := n.places[a.Place]; !ok {
			return nil, fmt.Errorf("%w: place %d", ErrDanglingArc, a.Place)
		}
		if _, ok := n.transitions[a.Transition]; !ok {
			return nil, fmt.Errorf("%w: transition %d", ErrDanglingArc, a.Transition)
		}
		if a.Weight <= 0 {
			return nil, fmt.Errorf("%w: %d->%d", ErrNonPositiveWeight, a.Place, a.Transition)
		}
		n.arcs = append(n.arcs, a)
		switch a.Direction {
		case In:
			n.inputArcs[a.Transition] = append(n.inputArcs[a.Transition], a)
		case Out:
			n.outputArcs[a.Transition] = append(n.outputArcs[a.Transition], a)
		}
	}
	return n, nil
}

// Places returns the net's places in construction order.
func (n *Net) Places() []*Place {
	out := make([]*Place, 0, len(n.placeOrder))
	for _, id := range n.placeOrder {
		out = append(out, n.places[id])
	}
	return out
}

// Transitions returns the net's transitions in construction order.
func (n *Net) Transitions() []*Transition {
	out := make([]*Transition, 0, len(n.transOrder))
	for _, id := range n.transOrder {
		out = append(out, n.transitions[id])
	}
	return out
}

// Place looks up a place by id.
func (n *Net) Place(id PlaceID) (*Place, bool) {
	p, ok := n.places[id]
	return p, ok
}

// Transition looks up a transition by id.
func (n *Net) Transition(id TransitionID) (*Transition, bool) {
	t, ok := n.transitions[id]
	return t, ok
}

// Arcs returns every arc in the net.
func (n *Net) Arcs() []*Arc {
	return n.arcs
}

// InAdjacentPlaces returns the places that are inputs to t.
func (n *Net) InAdjacentPlaces(t TransitionID) []PlaceID {
	arcs := n.inputArcs[t]
	out := make([]PlaceID, len(arcs))
	for i, a := range arcs {
		out[i] = a.Place
	}
	return out
}

// OutAdjacentPlaces returns the places that are outputs from t.
func (n *Net) OutAdjacentPlaces(t TransitionID) []PlaceID {
	arcs := n.outputArcs[t]
	out := make([]PlaceID, len(arcs))
	for i, a := range arcs {
		out[i] = a.Place
	}
	return out
}

// InMarking returns, for each input place of t, the weight of its arc:
// the sub-multiset of tokens t would consume from that place.
func (n *Net) InMarking(t TransitionID) map[PlaceID]int {
	out := make(map[PlaceID]int)
	for _, a := range n.inputArcs[t] {
		out[a.Place] += a.Weight
	}
	return out
}

// OutMarking returns, for each output place of t, the weight of its arc.
func (n *Net) OutMarking(t TransitionID) map[PlaceID]int {
	out := make(map[PlaceID]int)
	for _, a := range n.outputArcs[t] {
		out[a.Place] += a.Weight
	}
	return out
}

// ConnectingArc returns the arc between p and t in the given direction,
// or nil if none exists.
func (n *Net) ConnectingArc(p PlaceID, t TransitionID, dir Direction) *Arc {
	var arcs []*Arc
	switch dir {
	case In:
		arcs = n.inputArcs[t]
	case Out:
		arcs = n.outputArcs[t]
	}
	for _, a := range arcs {
		if a.Place == p {
			return a
		}
	}
	return nil
}

// InputArcs returns the place->transition arcs for t, in construction
// order — the order the token game selects places in.
func (n *Net) InputArcs(t TransitionID) []*Arc {
	return n.inputArcs[t]
}

// OutputArcs returns the transition->place arcs for t, in construction
// order.
func (n *Net) OutputArcs(t TransitionID) []*Arc {
	return n.outputArcs[t]
}
