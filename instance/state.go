// Package instance implements the engine's state machine: it owns the
// current marking, decides which commands are valid, fires selected
// transitions through exec, journals every event, and rebuilds its
// state from a journal on recovery.
package instance

import (
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// FailureRecord is present from a transition's failed firing until its
// next successful firing; Terminal reports whether it is Blocked or
// Fatal rather than awaiting a retry.
type FailureRecord struct {
	Attempt      int
	ErrorMessage string
	Decision     net.Decision
}

// Terminal reports whether the record permanently (for this instance's
// lifetime) disables its transition.
func (f *FailureRecord) Terminal() bool {
	return f.Decision.Kind == net.Fatal || f.Decision.Kind == net.BlockTransition
}

// State is (sequence_no, marking, consumed_jobs, failures) per spec §3.
type State struct {
	SequenceNo   int64
	Marking      token.ColoredMarking
	ConsumedJobs map[string]struct{}
	Failures     map[net.TransitionID]*FailureRecord
}

func emptyState() State {
	return State{
		Marking:      token.Empty(),
		ConsumedJobs: make(map[string]struct{}),
		Failures:     make(map[net.TransitionID]*FailureRecord),
	}
}

// HasConsumedJob reports whether jobID has already been produced during
// this instance's history — used by user code for idempotent
// event-sourced state reconstruction.
func (s State) HasConsumedJob(jobID string) bool {
	_, ok := s.ConsumedJobs[jobID]
	return ok
}

// ConsumedJobIDs returns the consumed-job set as a slice, for surfacing
// in ProcessStateReply.
func (s State) ConsumedJobIDs() []string {
	out := make([]string, 0, len(s.ConsumedJobs))
	for id := range s.ConsumedJobs {
		out = append(out, id)
	}
	return out
}

// MarkingSnapshot returns the marking as a plain map, for surfacing in
// replies and journal payloads.
func (s State) MarkingSnapshot() map[net.PlaceID][]token.Token {
	out := make(map[net.PlaceID][]token.Token)
	for p, n := range s.Marking.Multiplicity() {
		if n > 0 {
			out[p] = s.Marking.Tokens(p)
		}
	}
	return out
}
