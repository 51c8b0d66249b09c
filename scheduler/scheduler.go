// Package scheduler decides which automatic transitions to launch after
// a state change, and manages the retry timers that re-launch a failed
// transition after its strategy's delay.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jt05610/petriengine/game"
	"github.com/jt05610/petriengine/net"
)

// Scheduler holds the dedicated retry timers for transitions currently
// in RetryWithDelay. It has no notion of instance state beyond what
// Evaluate is given each call — it never reaches back into an instance.
type Scheduler struct {
	logger *zap.Logger

	mu     sync.Mutex
	timers map[net.TransitionID]*time.Timer
}

// New builds a scheduler. A nil logger defaults to a no-op logger.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger,
		timers: make(map[net.TransitionID]*time.Timer),
	}
}

// Evaluate returns the automatic transitions that are enabled at
// multiplicity, not in disabled (Blocked or Fatal), and not already
// in-flight — the set A of spec §4.F, in net transition order.
func (s *Scheduler) Evaluate(n *net.Net, multiplicity map[net.PlaceID]int, disabled, inflight map[net.TransitionID]bool) []net.TransitionID {
	enabled := game.EnabledTransitions(n, multiplicity)
	var launch []net.TransitionID
	for _, t := range n.Transitions() {
		if !t.Automated {
			continue
		}
		if !enabled[t.ID] || disabled[t.ID] || inflight[t.ID] {
			continue
		}
		launch = append(launch, t.ID)
	}
	s.logger.Debug("scheduler evaluated automatic transitions", zap.Int("launching", len(launch)))
	return launch
}

// ScheduleRetry arranges for fn to run once after delay, unless
// CancelRetry or CancelAll runs first. A later call for the same
// transition replaces any pending timer — spec §4.F guarantees at most
// one in-flight (and so at most one pending retry) firing per
// transition.
func (s *Scheduler) ScheduleRetry(t net.TransitionID, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[t]; ok {
		existing.Stop()
	}
	s.logger.Warn("scheduling retry", zap.Int("transition", int(t)), zap.Duration("delay", delay))
	s.timers[t] = time.AfterFunc(delay, fn)
}

// CancelRetry discards a pending retry timer for t, if any. The
// instance calls it after t fires successfully and after a failure
// whose decision is not RetryWithDelay.
func (s *Scheduler) CancelRetry(t net.TransitionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[t]; ok {
		timer.Stop()
		delete(s.timers, t)
	}
}

// CancelAll discards every pending retry timer. Called on instance
// shutdown so a retry that fires after shutdown is dropped (spec §5).
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
