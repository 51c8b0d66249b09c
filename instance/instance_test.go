package instance_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jt05610/petriengine/instance"
	"github.com/jt05610/petriengine/journal/memjournal"
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/token"
)

var coinSchema = token.Schema{ID: 1, Name: "coin"}

func mustNet(t *testing.T, places []*net.Place, transitions []*net.Transition, arcs []*net.Arc) *net.Net {
	n, err := net.New(places, transitions, arcs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func runInBackground(t *testing.T, inst *instance.Instance, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- inst.Run(ctx) }()
	t.Cleanup(func() {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Errorf("instance did not stop after context cancellation")
		}
	})
	return done
}

// S1: a manual transition that always fails Fatal on first attempt
// must reject every subsequent FireTransition with
// ReasonHasFailedPreviously, without re-invoking its handler.
func TestFailureThenRejection(t *testing.T) {
	var invocations atomic.Int32
	places := []*net.Place{{ID: 1, Label: "p1", Color: coinSchema}}
	transitions := []*net.Transition{{
		ID: 1, Label: "t1",
		Strategy: func(err error, attempt int) net.Decision { return net.Decision{Kind: net.Fatal} },
		Fire: func(ctx context.Context, input map[string][]token.Token, payload interface{}) (map[string][]token.Token, interface{}, error) {
			invocations.Add(1)
			return nil, nil, errors.New("boom")
		},
	}}
	arcs := []*net.Arc{{Place: 1, Transition: 1, Direction: net.In, Weight: 1, Selector: "c"}}
	n := mustNet(t, places, transitions, arcs)

	j := memjournal.New()
	inst := instance.New("s1", n, j, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	runInBackground(t, inst, ctx)
	t.Cleanup(cancel)

	marking := map[net.PlaceID][]token.Token{1: {token.New(coinSchema, 1)}}
	if _, err := inst.Send(ctx, instance.Initialize{Marking: marking}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	first, err := inst.Send(ctx, instance.FireTransition{TransitionID: 1})
	if err != nil {
		t.Fatalf("FireTransition: %v", err)
	}
	if _, ok := first.(instance.TransitionFailedReply); !ok {
		t.Fatalf("first fire reply = %#v, want TransitionFailedReply", first)
	}

	second, err := inst.Send(ctx, instance.FireTransition{TransitionID: 1})
	if err != nil {
		t.Fatalf("FireTransition: %v", err)
	}
	rejected, ok := second.(instance.TransitionNotEnabledReply)
	if !ok {
		t.Fatalf("second fire reply = %#v, want TransitionNotEnabledReply", second)
	}
	if rejected.Reason != instance.ReasonHasFailedPreviously {
		t.Errorf("reason = %q, want %q", rejected.Reason, instance.ReasonHasFailedPreviously)
	}
	if got := invocations.Load(); got != 1 {
		t.Errorf("invocations = %d, want 1 (no re-invoke after Fatal)", got)
	}
}

// S2: firing a transition whose input place doesn't hold enough
// tokens is rejected synchronously with ReasonNotEnoughTokens and
// never invokes the handler.
func TestInsufficientTokensRejected(t *testing.T) {
	var invocations atomic.Int32
	places := []*net.Place{{ID: 1, Label: "p1", Color: coinSchema}}
	transitions := []*net.Transition{{
		ID: 1, Label: "t1",
		Fire: func(ctx context.Context, input map[string][]token.Token, payload interface{}) (map[string][]token.Token, interface{}, error) {
			invocations.Add(1)
			return nil, nil, nil
		},
	}}
	arcs := []*net.Arc{{Place: 1, Transition: 1, Direction: net.In, Weight: 1, Selector: "c"}}
	n := mustNet(t, places, transitions, arcs)

	j := memjournal.New()
	inst := instance.New("s2", n, j, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	runInBackground(t, inst, ctx)
	t.Cleanup(cancel)

	if _, err := inst.Send(ctx, instance.Initialize{Marking: nil}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	reply, err := inst.Send(ctx, instance.FireTransition{TransitionID: 1})
	if err != nil {
		t.Fatalf("FireTransition: %v", err)
	}
	rejected, ok := reply.(instance.TransitionNotEnabledReply)
	if !ok {
		t.Fatalf("reply = %#v, want TransitionNotEnabledReply", reply)
	}
	if rejected.Reason != instance.ReasonNotEnoughTokens {
		t.Errorf("reason = %q, want %q", rejected.Reason, instance.ReasonNotEnoughTokens)
	}
	if got := invocations.Load(); got != 0 {
		t.Errorf("invocations = %d, want 0", got)
	}
}

// S3: an automatic transition with an exponential-backoff-then-fatal
// strategy should be observed failing three times, with increasing
// delay, before permanently disabling.
func TestExponentialRetryThenFatal(t *testing.T) {
	var attempts atomic.Int32
	places := []*net.Place{{ID: 1, Label: "p1", Color: coinSchema}}
	transitions := []*net.Transition{{
		ID: 1, Label: "t1", Automated: true,
		Strategy: func(err error, attempt int) net.Decision {
			if attempt < 3 {
				return net.Decision{Kind: net.RetryWithDelay, DelayMillis: 10 << attempt}
			}
			return net.Decision{Kind: net.Fatal}
		},
		Fire: func(ctx context.Context, input map[string][]token.Token, payload interface{}) (map[string][]token.Token, interface{}, error) {
			attempts.Add(1)
			return nil, nil, errors.New("down")
		},
	}}
	arcs := []*net.Arc{{Place: 1, Transition: 1, Direction: net.In, Weight: 1, Selector: "c"}}
	n := mustNet(t, places, transitions, arcs)

	j := memjournal.New()
	inst := instance.New("s3", n, j, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	runInBackground(t, inst, ctx)
	t.Cleanup(cancel)

	marking := map[net.PlaceID][]token.Token{1: {token.New(coinSchema, 1)}}
	if _, err := inst.Send(ctx, instance.Initialize{Marking: marking}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if attempts.Load() >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}

	// give the third (Fatal) outcome time to be journaled, then confirm
	// a manual fire is now permanently rejected.
	time.Sleep(20 * time.Millisecond)
	reply, err := inst.Send(ctx, instance.FireTransition{TransitionID: 1})
	if err != nil {
		t.Fatalf("FireTransition: %v", err)
	}
	rejected, ok := reply.(instance.TransitionNotEnabledReply)
	if !ok {
		t.Fatalf("reply = %#v, want TransitionNotEnabledReply", reply)
	}
	if rejected.Reason != instance.ReasonHasFailedPreviously {
		t.Errorf("reason = %q, want %q", rejected.Reason, instance.ReasonHasFailedPreviously)
	}
}

// S4: a fresh instance over the same journal recovers the sequence
// number and marking the first instance reached after one manual
// firing, and treats itself as already initialized.
func TestRecoveryReplaysJournal(t *testing.T) {
	places := []*net.Place{
		{ID: 1, Label: "p1", Color: coinSchema},
		{ID: 2, Label: "p2", Color: coinSchema},
	}
	transitions := []*net.Transition{{
		ID: 1, Label: "t1",
		Fire: func(ctx context.Context, input map[string][]token.Token, payload interface{}) (map[string][]token.Token, interface{}, error) {
			return map[string][]token.Token{"c": input["c"]}, "moved", nil
		},
	}}
	arcs := []*net.Arc{
		{Place: 1, Transition: 1, Direction: net.In, Weight: 1, Selector: "c"},
		{Place: 2, Transition: 1, Direction: net.Out, Weight: 1, Selector: "c"},
	}
	n := mustNet(t, places, transitions, arcs)
	j := memjournal.New()

	first := instance.New("s4", n, j, nil, nil)
	ctx1, cancel1 := context.WithCancel(context.Background())
	runInBackground(t, first, ctx1)

	marking := map[net.PlaceID][]token.Token{1: {token.New(coinSchema, "x")}}
	if _, err := first.Send(ctx1, instance.Initialize{Marking: marking}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	fired, err := first.Send(ctx1, instance.FireTransition{TransitionID: 1})
	if err != nil {
		t.Fatalf("FireTransition: %v", err)
	}
	if _, ok := fired.(instance.TransitionFiredReply); !ok {
		t.Fatalf("fired = %#v, want TransitionFiredReply", fired)
	}
	before, err := first.Send(ctx1, instance.GetState{})
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	cancel1()

	second := instance.New("s4", n, j, nil, nil)
	ctx2, cancel2 := context.WithCancel(context.Background())
	runInBackground(t, second, ctx2)
	t.Cleanup(cancel2)

	after, err := second.Send(ctx2, instance.GetState{})
	if err != nil {
		t.Fatalf("GetState after recovery: %v", err)
	}

	beforeState := before.(instance.ProcessStateReply)
	afterState := after.(instance.ProcessStateReply)
	if beforeState.SequenceNo != afterState.SequenceNo {
		t.Errorf("sequence_no = %d after recovery, want %d", afterState.SequenceNo, beforeState.SequenceNo)
	}
	if len(afterState.Marking[2]) != 1 {
		t.Errorf("p2 marking after recovery = %v, want one token", afterState.Marking[2])
	}
	if len(afterState.Marking[1]) != 0 {
		t.Errorf("p1 marking after recovery = %v, want empty", afterState.Marking[1])
	}

	reinit, err := second.Send(ctx2, instance.Initialize{Marking: marking})
	if err != nil {
		t.Fatalf("Initialize after recovery: %v", err)
	}
	if _, ok := reinit.(instance.AlreadyInitializedReply); !ok {
		t.Fatalf("reinit = %#v, want AlreadyInitializedReply", reinit)
	}
}

// S5: two independent automatic transitions enabled by the same
// Initialize both fire without one blocking the other.
func TestParallelAutomatics(t *testing.T) {
	places := []*net.Place{
		{ID: 1, Label: "a-in", Color: coinSchema},
		{ID: 2, Label: "a-out", Color: coinSchema},
		{ID: 3, Label: "b-in", Color: coinSchema},
		{ID: 4, Label: "b-out", Color: coinSchema},
	}
	transitions := []*net.Transition{
		{
			ID: 1, Label: "a", Automated: true,
			Fire: func(ctx context.Context, input map[string][]token.Token, payload interface{}) (map[string][]token.Token, interface{}, error) {
				return map[string][]token.Token{"c": input["c"]}, nil, nil
			},
		},
		{
			ID: 2, Label: "b", Automated: true,
			Fire: func(ctx context.Context, input map[string][]token.Token, payload interface{}) (map[string][]token.Token, interface{}, error) {
				return map[string][]token.Token{"c": input["c"]}, nil, nil
			},
		},
	}
	arcs := []*net.Arc{
		{Place: 1, Transition: 1, Direction: net.In, Weight: 1, Selector: "c"},
		{Place: 2, Transition: 1, Direction: net.Out, Weight: 1, Selector: "c"},
		{Place: 3, Transition: 2, Direction: net.In, Weight: 1, Selector: "c"},
		{Place: 4, Transition: 2, Direction: net.Out, Weight: 1, Selector: "c"},
	}
	n := mustNet(t, places, transitions, arcs)
	j := memjournal.New()
	inst := instance.New("s5", n, j, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	runInBackground(t, inst, ctx)
	t.Cleanup(cancel)

	marking := map[net.PlaceID][]token.Token{
		1: {token.New(coinSchema, "a")},
		3: {token.New(coinSchema, "b")},
	}
	if _, err := inst.Send(ctx, instance.Initialize{Marking: marking}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var state instance.ProcessStateReply
	for time.Now().Before(deadline) {
		reply, err := inst.Send(ctx, instance.GetState{})
		if err != nil {
			t.Fatalf("GetState: %v", err)
		}
		state = reply.(instance.ProcessStateReply)
		if len(state.Marking[2]) == 1 && len(state.Marking[4]) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(state.Marking[2]) != 1 || len(state.Marking[4]) != 1 {
		t.Fatalf("final marking = %v, want one token each in places 2 and 4", state.Marking)
	}
}
