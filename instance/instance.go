package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jt05610/petriengine/exec"
	"github.com/jt05610/petriengine/game"
	"github.com/jt05610/petriengine/journal"
	"github.com/jt05610/petriengine/net"
	"github.com/jt05610/petriengine/scheduler"
	"github.com/jt05610/petriengine/token"
)

// Instance is the single-threaded cooperative actor of spec §5: all
// commands, firing completions, and retry triggers are serialized
// through Run's mailbox loop. Transition firings themselves run on
// separate goroutines and may execute in parallel; only their
// completion is delivered back into the mailbox.
type Instance struct {
	id      string
	net     *net.Net
	journal journal.Journal
	sched   *scheduler.Scheduler
	logger  *zap.Logger

	cmdCh   chan commandRequest
	fireCh  chan fireOutcome
	retryCh chan net.TransitionID

	initialized bool
	state       State
	inflight     map[net.TransitionID]string
	pendingReply map[net.TransitionID]chan Reply
	retrying     map[net.TransitionID]bool
}

type commandRequest struct {
	cmd   Command
	reply chan Reply
}

type fireOutcome struct {
	transitionID net.TransitionID
	jobID        string
	attempt      int
	consume      map[net.PlaceID][]token.Token
	result       *exec.Result
	err          error
}

// New builds an uninitialized instance over n, journaling onto j. A nil
// logger defaults to a no-op logger; a nil scheduler gets its own.
func New(id string, n *net.Net, j journal.Journal, sched *scheduler.Scheduler, logger *zap.Logger) *Instance {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sched == nil {
		sched = scheduler.New(logger)
	}
	return &Instance{
		id:      id,
		net:     n,
		journal: j,
		sched:   sched,
		logger:  logger,
		cmdCh:   make(chan commandRequest),
		fireCh:  make(chan fireOutcome),
		// One slot per transition: at most one retry timer is ever live
		// per transition (ScheduleRetry/CancelRetry is keyed by
		// TransitionID), so a retry trigger per transition can never pile
		// up behind an unread channel the way a fixed-size buffer could.
		retryCh:      make(chan net.TransitionID, len(n.Transitions())),
		state:        emptyState(),
		inflight:     make(map[net.TransitionID]string),
		pendingReply: make(map[net.TransitionID]chan Reply),
		retrying:     make(map[net.TransitionID]bool),
	}
}

// Send delivers a command to the instance's mailbox and waits for its
// reply. The caller owns any timeout via ctx — the engine itself does
// not time out commands (spec §5).
func (i *Instance) Send(ctx context.Context, cmd Command) (Reply, error) {
	req := commandRequest{cmd: cmd, reply: make(chan Reply, 1)}
	select {
	case i.cmdCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run recovers the instance from its journal, then drives the mailbox
// loop until ctx is cancelled or a journal append fails (a
// JournalFailure per spec §7, which stops the instance — the caller
// restarts by calling Run again on a fresh Instance).
func (i *Instance) Run(ctx context.Context) error {
	if err := i.recover(ctx); err != nil {
		return err
	}
	i.launchAutomatics(ctx)
	for {
		select {
		case <-ctx.Done():
			i.sched.CancelAll()
			return ctx.Err()
		case req := <-i.cmdCh:
			if err := i.handleCommand(ctx, req); err != nil {
				i.sched.CancelAll()
				return err
			}
		case outcome := <-i.fireCh:
			if err := i.handleOutcome(ctx, outcome); err != nil {
				i.sched.CancelAll()
				return err
			}
		case tid := <-i.retryCh:
			delete(i.retrying, tid)
			i.launchFiring(ctx, tid, nil, nil)
		}
	}
}

func (i *Instance) recover(ctx context.Context) error {
	records, errCh := i.journal.Replay(ctx, i.id)
	for rec := range records {
		ev, ok := rec.Payload.(Event)
		if !ok {
			return fmt.Errorf("instance: journal record payload is not an instance.Event: %T", rec.Payload)
		}
		i.state = Apply(i.state, ev)
		if ev.Kind() == KindInitialized {
			i.initialized = true
		}
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("instance: replay failed: %w", err)
	}
	i.logger.Info("recovery complete", zap.String("instance", i.id), zap.Int64("sequence_no", i.state.SequenceNo))
	return nil
}

func (i *Instance) handleCommand(ctx context.Context, req commandRequest) error {
	switch cmd := req.cmd.(type) {
	case Initialize:
		if i.initialized {
			req.reply <- AlreadyInitializedReply{}
			return nil
		}
		ev := Initialized{Marking: cmd.Marking, InitialState: cmd.InitialState}
		if err := i.journalAndApply(ctx, ev, 0); err != nil {
			return err
		}
		i.initialized = true
		req.reply <- InitializedReply{Marking: cmd.Marking, InitialState: cmd.InitialState}
		i.launchAutomatics(ctx)
		return nil

	case FireTransition:
		if !i.initialized {
			req.reply <- TransitionNotEnabledReply{TransitionID: cmd.TransitionID, Reason: "instance not initialized"}
			return nil
		}
		i.launchFiring(ctx, cmd.TransitionID, cmd.Payload, req.reply)
		return nil

	case GetState:
		req.reply <- ProcessStateReply{
			SequenceNo:   i.state.SequenceNo,
			Marking:      i.state.MarkingSnapshot(),
			ConsumedJobs: i.state.ConsumedJobIDs(),
		}
		return nil

	default:
		return fmt.Errorf("instance: unknown command %T", cmd)
	}
}

// launchFiring is the common path for a requested firing, whether it
// comes from an explicit FireTransition command (replyCh non-nil) or
// from the scheduler/a retry trigger (replyCh nil). It enforces the
// one-in-flight-per-transition invariant and the Blocked/Fatal
// precondition before ever invoking exec.Fire.
func (i *Instance) launchFiring(ctx context.Context, tid net.TransitionID, payload interface{}, replyCh chan Reply) {
	t, ok := i.net.Transition(tid)
	if !ok {
		if replyCh != nil {
			replyCh <- TransitionNotEnabledReply{TransitionID: tid, Reason: "unknown transition"}
		}
		return
	}
	if rec, ok := i.state.Failures[tid]; ok && rec.Terminal() {
		if replyCh != nil {
			replyCh <- TransitionNotEnabledReply{TransitionID: tid, Reason: ReasonHasFailedPreviously}
		}
		return
	}
	if _, busy := i.inflight[tid]; busy {
		if replyCh != nil {
			replyCh <- TransitionNotEnabledReply{TransitionID: tid, Reason: "already in flight"}
		}
		return
	}
	params, ok := game.ConsumableParameters(i.net, i.state.Marking, tid)
	if !ok {
		if replyCh != nil {
			replyCh <- TransitionNotEnabledReply{TransitionID: tid, Reason: ReasonNotEnoughTokens}
		}
		return
	}

	jobID := uuid.NewString()
	attempt := 1
	if rec, ok := i.state.Failures[tid]; ok {
		attempt = rec.Attempt + 1
	}
	i.inflight[tid] = jobID
	if replyCh != nil {
		i.pendingReply[tid] = replyCh
	}

	i.logger.Debug("launching firing",
		zap.Int("transition", int(tid)), zap.String("job", jobID), zap.Int("attempt", attempt))

	go func() {
		res, err := exec.Fire(ctx, i.net, t, params, payload, jobID)
		outcome := fireOutcome{transitionID: tid, jobID: jobID, attempt: attempt, consume: params, result: res, err: err}
		select {
		case i.fireCh <- outcome:
		case <-ctx.Done():
		}
	}()
}

func (i *Instance) handleOutcome(ctx context.Context, o fireOutcome) error {
	delete(i.inflight, o.transitionID)
	replyCh := i.pendingReply[o.transitionID]
	delete(i.pendingReply, o.transitionID)

	seq := i.state.SequenceNo + 1

	if o.err != nil {
		t, _ := i.net.Transition(o.transitionID)
		decision := net.Decision{Kind: net.Fatal}
		if t.Strategy != nil {
			decision = t.Strategy(o.err, o.attempt)
		} else {
			i.logger.Error("transition has no strategy, defaulting to fatal", zap.Int("transition", int(o.transitionID)))
		}
		ev := TransitionFailed{
			TransitionID: o.transitionID,
			JobID:        o.jobID,
			Consume:      o.consume,
			ErrorMessage: o.err.Error(),
			Decision:     decision,
			Attempt:      o.attempt,
			SequenceNo:   seq,
		}
		if err := i.journalAndApply(ctx, ev, seq); err != nil {
			return err
		}
		i.logger.Warn("transition failed",
			zap.Int("transition", int(o.transitionID)), zap.String("decision", decision.Kind.String()), zap.Int("attempt", o.attempt))

		switch decision.Kind {
		case net.RetryWithDelay:
			tid := o.transitionID
			i.retrying[tid] = true
			delay := time.Duration(decision.DelayMillis) * time.Millisecond
			i.sched.ScheduleRetry(tid, delay, func() {
				select {
				case i.retryCh <- tid:
				default:
				}
			})
		default:
			i.sched.CancelRetry(o.transitionID)
			delete(i.retrying, o.transitionID)
			i.logger.Error("transition disabled", zap.Int("transition", int(o.transitionID)), zap.String("decision", decision.Kind.String()))
		}

		if replyCh != nil {
			replyCh <- TransitionFailedReply{
				TransitionID: o.transitionID,
				JobID:        o.jobID,
				ErrorMessage: ev.ErrorMessage,
				Decision:     decision,
				Attempt:      o.attempt,
				SequenceNo:   seq,
			}
		}
	} else {
		ev := TransitionFired{
			TransitionID: o.transitionID,
			JobID:        o.jobID,
			Consume:      o.result.Consume,
			Produce:      o.result.Produce,
			EventPayload: o.result.Event,
			SequenceNo:   seq,
		}
		if err := i.journalAndApply(ctx, ev, seq); err != nil {
			return err
		}
		delete(i.retrying, o.transitionID)
		i.sched.CancelRetry(o.transitionID)
		i.logger.Info("transition fired", zap.Int("transition", int(o.transitionID)), zap.String("job", o.jobID))

		if replyCh != nil {
			replyCh <- TransitionFiredReply{
				TransitionID: o.transitionID,
				JobID:        o.jobID,
				Consume:      ev.Consume,
				Produce:      ev.Produce,
				EventPayload: ev.EventPayload,
				SequenceNo:   seq,
			}
		}
	}

	i.launchAutomatics(ctx)
	return nil
}

// launchAutomatics is invoked after every applied event (spec §4.F),
// including initialization and recovery completion.
func (i *Instance) launchAutomatics(ctx context.Context) {
	for _, tid := range i.sched.Evaluate(i.net, i.state.Marking.Multiplicity(), i.schedulerDisabled(), i.inflightSet()) {
		i.launchFiring(ctx, tid, nil, nil)
	}
}

// schedulerDisabled excludes terminal (Blocked/Fatal) transitions, and
// transitions currently backing off behind a retry timer — the latter
// must wait for their own timer, not be re-launched immediately by the
// next state-change evaluation.
func (i *Instance) schedulerDisabled() map[net.TransitionID]bool {
	out := make(map[net.TransitionID]bool)
	for tid, rec := range i.state.Failures {
		if rec.Terminal() {
			out[tid] = true
		}
	}
	for tid := range i.retrying {
		out[tid] = true
	}
	return out
}

func (i *Instance) inflightSet() map[net.TransitionID]bool {
	out := make(map[net.TransitionID]bool, len(i.inflight))
	for tid := range i.inflight {
		out[tid] = true
	}
	return out
}

func (i *Instance) journalAndApply(ctx context.Context, ev Event, seq int64) error {
	rec := journal.Record{InstanceID: i.id, SequenceNo: seq, Kind: ev.Kind(), Payload: ev}
	if _, err := i.journal.Append(ctx, i.id, []journal.Record{rec}); err != nil {
		return fmt.Errorf("instance: journal append failed: %w", err)
	}
	i.state = Apply(i.state, ev)
	i.logger.Info("applied event", zap.String("kind", ev.Kind()), zap.Int64("sequence_no", i.state.SequenceNo))
	return nil
}
