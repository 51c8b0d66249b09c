package instance

import (
	"encoding/json"
	"fmt"

	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// Event kind tags used as journal.Record.Kind.
const (
	KindInitialized      = "Initialized"
	KindTransitionFired  = "TransitionFired"
	KindTransitionFailed = "TransitionFailed"
)

// Event is the sole source of truth for recovery (spec §4.E). Every
// mutation the instance makes is first represented as one of these.
type Event interface {
	Kind() string
}

// Initialized is journaled by the first Initialize command.
type Initialized struct {
	Marking      map[net.PlaceID][]token.Token
	InitialState interface{}
}

func (Initialized) Kind() string { return KindInitialized }

// TransitionFired is journaled when a firing completes successfully.
type TransitionFired struct {
	TransitionID net.TransitionID
	JobID        string
	Consume      map[net.PlaceID][]token.Token
	Produce      map[net.PlaceID][]token.Token
	EventPayload interface{}
	SequenceNo   int64
}

func (TransitionFired) Kind() string { return KindTransitionFired }

// TransitionFailed is journaled when a firing's user function fails.
type TransitionFailed struct {
	TransitionID net.TransitionID
	JobID        string
	Consume      map[net.PlaceID][]token.Token
	ErrorMessage string
	Decision     net.Decision
	Attempt      int
	SequenceNo   int64
}

func (TransitionFailed) Kind() string { return KindTransitionFailed }

// DecodeEvent reconstructs a concrete Event from a journal.Record's
// Kind and raw JSON payload. It is the couchjournal.Decoder an
// instance's journal is opened with, living here rather than in
// couchjournal since only this package knows the event types.
func DecodeEvent(kind string, raw json.RawMessage) (interface{}, error) {
	switch kind {
	case KindInitialized:
		var ev Initialized
		err := json.Unmarshal(raw, &ev)
		return ev, err
	case KindTransitionFired:
		var ev TransitionFired
		err := json.Unmarshal(raw, &ev)
		return ev, err
	case KindTransitionFailed:
		var ev TransitionFailed
		err := json.Unmarshal(raw, &ev)
		return ev, err
	default:
		return nil, fmt.Errorf("instance: unknown journal record kind %q", kind)
	}
}
