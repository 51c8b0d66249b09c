// Package journal specifies the abstract contract the instance event
// sources itself onto. The journal backend is an external collaborator
// per spec §1 — this package defines only the interface; concrete
// backends live in its memjournal and couchjournal subpackages.
package journal

import "context"

// Ack confirms that a batch of events was appended atomically and in
// order.
type Ack struct {
	// FirstSequenceNo is the sequence number of the first event in the
	// acknowledged batch.
	FirstSequenceNo int64
	// Count is the number of events appended.
	Count int
}

// Journal is the append-only event log an instance journals onto and
// replays from.
type Journal interface {
	// Append durably and atomically appends events, in order, for
	// instanceID. It must complete before the corresponding event's
	// effect is observable externally (spec §5).
	Append(ctx context.Context, instanceID string, events []Record) (Ack, error)
	// Replay streams every previously appended event for instanceID, in
	// the order they were appended, to the returned channel. The channel
	// is closed when replay is complete or ctx is done.
	Replay(ctx context.Context, instanceID string) (<-chan Record, <-chan error)
}

// SnapshotStore is an optional capability some journals provide to
// bound recovery replay time. The instance never requires it.
type SnapshotStore interface {
	Snapshot(ctx context.Context, instanceID string, sequenceNo int64, state []byte) error
	LoadSnapshot(ctx context.Context, instanceID string) (sequenceNo int64, state []byte, ok bool, err error)
}

// Record is the opaque, kind-tagged envelope a journal stores and
// replays. The engine supplies Kind and Payload; encoding the payload
// for a particular backend is that backend's concern, per spec §6.
type Record struct {
	InstanceID string
	SequenceNo int64
	Kind       string
	Payload    interface{}
}
