package lifecycle

import (
	"sync"
	"time"
)

// Token identifies one scheduled task. A token is only honoured by Claim while
// it is still the latest task scheduled for its ride.
type Token struct {
	RideID string
	gen    uint64
}

type task struct {
	gen   uint64
	timer Timer
}

// Scheduler runs at most one pending automatic-transition task per ride.
// Scheduling a ride again replaces its pending task.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	gen     uint64
	tasks   map[string]task
	stopped bool
}

func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock, tasks: make(map[string]task)}
}

// Schedule arranges for fn to be called after delay. fn receives the token of
// its task and must Claim it before acting.
func (s *Scheduler) Schedule(rideID string, delay time.Duration, fn func(Token)) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.tasks[rideID]; ok {
		prev.timer.Stop()
		delete(s.tasks, rideID)
	}
	s.gen++
	tok := Token{RideID: rideID, gen: s.gen}
	if s.stopped {
		return tok
	}
	t := s.clock.AfterFunc(delay, func() { fn(tok) })
	s.tasks[rideID] = task{gen: tok.gen, timer: t}
	return tok
}

// Claim consumes the task for tok. It returns false when the task was
// cancelled or replaced after tok was issued.
func (s *Scheduler) Claim(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[tok.RideID]
	if !ok || cur.gen != tok.gen {
		return false
	}
	delete(s.tasks, tok.RideID)
	return true
}

// Cancel invalidates the pending task for a ride, if any.
func (s *Scheduler) Cancel(rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tasks[rideID]; ok {
		cur.timer.Stop()
		delete(s.tasks, rideID)
	}
}

// Pending reports whether a task is waiting for the ride.
func (s *Scheduler) Pending(rideID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[rideID]
	return ok
}

// Stop cancels all pending tasks; later Schedule calls are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, id)
	}
}
