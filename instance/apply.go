package instance

import (
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// Apply is the pure fold (state, event) -> state that recovery replays
// and the live mailbox uses to update state after journaling. This
// separation from command handling is mandatory for replay-determinism
// (SPEC_FULL §4 Design Note "Event sourcing").
func Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case Initialized:
		next := emptyState()
		next.Marking = token.FromMap(e.Marking)
		return next
	case TransitionFired:
		consumed, err := s.Marking.Consume(e.Consume)
		if err != nil {
			// The marking this event consumes from was verified as a
			// subset when the firing was selected (spec invariant 4);
			// a journaled event that violates it means the journal
			// was corrupted or events were replayed out of order.
			panic("instance: TransitionFired event consumes tokens not present in the marking: " + err.Error())
		}
		produced := consumed.Produce(e.Produce).(token.ColoredMarking)

		failures := cloneFailures(s.Failures)
		delete(failures, e.TransitionID)

		consumedJobs := cloneJobs(s.ConsumedJobs)
		consumedJobs[e.JobID] = struct{}{}

		return State{
			SequenceNo:   e.SequenceNo,
			Marking:      produced,
			ConsumedJobs: consumedJobs,
			Failures:     failures,
		}
	case TransitionFailed:
		failures := cloneFailures(s.Failures)
		failures[e.TransitionID] = &FailureRecord{
			Attempt:      e.Attempt,
			ErrorMessage: e.ErrorMessage,
			Decision:     e.Decision,
		}
		return State{
			SequenceNo:   e.SequenceNo,
			Marking:      s.Marking,
			ConsumedJobs: s.ConsumedJobs,
			Failures:     failures,
		}
	default:
		panic("instance: unknown event kind applied")
	}
}

func cloneFailures(m map[net.TransitionID]*FailureRecord) map[net.TransitionID]*FailureRecord {
	out := make(map[net.TransitionID]*FailureRecord, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneJobs(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m)+1)
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
