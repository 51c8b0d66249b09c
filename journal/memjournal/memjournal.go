// Package memjournal is an in-memory journal.Journal, for tests and for
// demonstrating the engine without a real journal backend.
package memjournal

import (
	"context"
	"sync"

	"github.com/jt05610/petriengine/journal"
)

// Journal keeps every appended record per instance in memory. It is
// safe for concurrent use but durable only for the life of the
// process.
type Journal struct {
	mu      sync.Mutex
	records map[string][]journal.Record
}

var _ journal.Journal = (*Journal)(nil)

// New returns an empty in-memory journal.
func New() *Journal {
	return &Journal{records: make(map[string][]journal.Record)}
}

// Append stores the batch atomically, trusting the caller's
// SequenceNo on each record (the instance package is the only
// caller, and it numbers events itself).
func (j *Journal) Append(_ context.Context, instanceID string, events []journal.Record) (journal.Ack, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var first int64
	if len(events) > 0 {
		first = events[0].SequenceNo
	}
	for i := range events {
		events[i].InstanceID = instanceID
	}
	j.records[instanceID] = append(j.records[instanceID], events...)
	return journal.Ack{FirstSequenceNo: first, Count: len(events)}, nil
}

// Replay streams instanceID's records in append order. Both channels
// are closed once the full history has been sent (or ctx is done).
func (j *Journal) Replay(ctx context.Context, instanceID string) (<-chan journal.Record, <-chan error) {
	out := make(chan journal.Record)
	errCh := make(chan error, 1)

	j.mu.Lock()
	snapshot := append([]journal.Record{}, j.records[instanceID]...)
	j.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)
		for _, rec := range snapshot {
			select {
			case out <- rec:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()
	return out, errCh
}
