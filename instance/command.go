package instance

import (
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

// Command is a message accepted by a running instance (spec §4.E, §6).
type Command interface {
	isCommand()
}

// Initialize is only valid in Uninitialized. It journals Initialized
// and transitions the instance to Running.
type Initialize struct {
	Marking      map[net.PlaceID][]token.Token
	InitialState interface{}
}

// FireTransition is valid in Running. It requests that t fire now, with
// an optional command payload handed to the transition's user function.
type FireTransition struct {
	TransitionID net.TransitionID
	Payload      interface{}
}

// GetState requests the instance's current (sequence_no, marking,
// consumed_jobs).
type GetState struct{}

func (Initialize) isCommand()      {}
func (FireTransition) isCommand()  {}
func (GetState) isCommand()        {}

// Reply is a response to a Command.
type Reply interface {
	isReply()
}

// InitializedReply confirms a successful Initialize.
type InitializedReply struct {
	Marking      map[net.PlaceID][]token.Token
	InitialState interface{}
}

// AlreadyInitializedReply is returned when Initialize is sent to a
// Running instance.
type AlreadyInitializedReply struct{}

// TransitionFiredReply confirms a completed, successful firing.
type TransitionFiredReply struct {
	TransitionID net.TransitionID
	JobID        string
	Consume      map[net.PlaceID][]token.Token
	Produce      map[net.PlaceID][]token.Token
	EventPayload interface{}
	SequenceNo   int64
}

// TransitionFailedReply confirms a completed, failed firing and the
// strategy's decision about what happens next.
type TransitionFailedReply struct {
	TransitionID net.TransitionID
	JobID        string
	ErrorMessage string
	Decision     net.Decision
	Attempt      int
	SequenceNo   int64
}

// TransitionNotEnabledReply is returned synchronously, without
// journaling anything, when a FireTransition precondition fails.
type TransitionNotEnabledReply struct {
	TransitionID net.TransitionID
	Reason       string
}

// ProcessStateReply answers GetState.
type ProcessStateReply struct {
	SequenceNo   int64
	Marking      map[net.PlaceID][]token.Token
	ConsumedJobs []string
}

func (InitializedReply) isReply()         {}
func (AlreadyInitializedReply) isReply()  {}
func (TransitionFiredReply) isReply()     {}
func (TransitionFailedReply) isReply()    {}
func (TransitionNotEnabledReply) isReply() {}
func (ProcessStateReply) isReply()        {}

// Reasons for TransitionNotEnabledReply, stable strings per spec §8 S1/S2.
const (
	ReasonNotEnoughTokens   = "not enough tokens"
	ReasonHasFailedPreviously = "has failed previously"
)
