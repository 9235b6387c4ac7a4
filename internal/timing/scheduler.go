package timing

import (
	"sync"
	"time"
)

// Scheduler owns the deferred work of one game.
//
// Every method must be called with lock held. Callbacks acquire lock
// themselves and run only if, at that moment, their registration is still
// pending, the epoch they were scheduled in is current and the scheduler has
// not been stopped. The registration check covers a timer that already fired
// and is waiting on the lock when CancelAll runs; the epoch check covers
// everything scheduled before a restart or reset.
type Scheduler struct {
	clock   Clock
	lock    sync.Locker
	epoch   uint64
	nextID  uint64
	pending map[uint64]Timer
	stopped bool
}

// NewScheduler returns a scheduler at epoch 0.
func NewScheduler(clock Clock, lock sync.Locker) *Scheduler {
	return &Scheduler{clock: clock, lock: lock, pending: make(map[uint64]Timer)}
}

// Epoch returns the current generation.
func (s *Scheduler) Epoch() uint64 { return s.epoch }

// NextEpoch cancels everything pending and starts a new generation.
func (s *Scheduler) NextEpoch() uint64 {
	s.CancelAll()
	s.epoch++
	return s.epoch
}

// After runs fn once, d from now.
func (s *Scheduler) After(d time.Duration, fn func()) {
	if s.stopped {
		return
	}
	id, epoch := s.register()
	s.pending[id] = s.clock.AfterFunc(d, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if !s.live(id, epoch) {
			return
		}
		delete(s.pending, id)
		fn()
	})
}

// Every runs fn every d until cancelled.
func (s *Scheduler) Every(d time.Duration, fn func()) {
	if s.stopped {
		return
	}
	id, epoch := s.register()
	var arm func()
	arm = func() {
		s.pending[id] = s.clock.AfterFunc(d, func() {
			s.lock.Lock()
			defer s.lock.Unlock()
			if !s.live(id, epoch) {
				return
			}
			fn()
			if s.live(id, epoch) {
				arm()
			}
		})
	}
	arm()
}

// CancelAll stops every pending item without changing the epoch.
func (s *Scheduler) CancelAll() {
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// Stop cancels everything and refuses further work.
func (s *Scheduler) Stop() {
	s.CancelAll()
	s.stopped = true
}

// Pending returns the number of scheduled items.
func (s *Scheduler) Pending() int { return len(s.pending) }

func (s *Scheduler) register() (uint64, uint64) {
	s.nextID++
	return s.nextID, s.epoch
}

func (s *Scheduler) live(id, epoch uint64) bool {
	if s.stopped || epoch != s.epoch {
		return false
	}
	_, ok := s.pending[id]
	return ok
}
