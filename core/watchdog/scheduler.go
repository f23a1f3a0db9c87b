// Package watchdog provides a generic keyed deferred-action timer with
// renew/expire semantics. One scheduler instance backs both the per-vehicle
// liveness watchdog and the per-message acknowledgment timeout.
package watchdog

import (
	"time"

	"github.com/kilianp07/groundlink/core/logger"
)

// Poster serializes callbacks onto the coordination run loop. Timer expiries
// never run on the timer goroutine; they are posted so that all state
// mutations stay single-threaded.
type Poster interface {
	Submit(func())
}

type entry struct {
	timer     *time.Timer
	deadline  time.Time
	gen       uint64
	onRenewed func()
	onExpired func()
}

// Scheduler holds at most one pending timer per key. Schedule, Renew and
// Cancel must be called from the run loop; expiry callbacks are posted back
// onto the same loop. Every arm gets a generation from a scheduler-wide
// counter that is never reused, so a stale expiry post can never match a
// later entry, even one created under the same key after a cancel or expiry.
type Scheduler struct {
	post    Poster
	entries map[string]*entry
	seq     uint64
	now     func() time.Time
	log     logger.Logger
}

// New creates a Scheduler posting expiry callbacks through post.
func New(post Poster, log logger.Logger) *Scheduler {
	return &Scheduler{
		post:    post,
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     log,
	}
}

// Schedule arms a one-shot timer for key. Scheduling over an existing key
// replaces the previous entry without invoking its callbacks.
func (s *Scheduler) Schedule(key string, deadline time.Time, onRenewed, onExpired func()) {
	if old, ok := s.entries[key]; ok {
		old.timer.Stop()
	}
	e := &entry{deadline: deadline, onRenewed: onRenewed, onExpired: onExpired}
	s.entries[key] = e
	s.arm(key, e)
}

// Renew cancels the pending timer for key and invokes its onRenewed callback.
// A non-zero newDeadline re-arms the timer; a zero deadline resolves the entry
// and removes it. Renewing an absent key reports false.
func (s *Scheduler) Renew(key string, newDeadline time.Time) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	if e.onRenewed != nil {
		e.onRenewed()
	}
	// The callback may have canceled or rescheduled the key.
	if cur, ok := s.entries[key]; !ok || cur != e {
		return true
	}
	if newDeadline.IsZero() {
		delete(s.entries, key)
		return true
	}
	e.deadline = newDeadline
	s.arm(key, e)
	return true
}

// Cancel removes the entry for key without invoking either callback.
// Canceling an absent key is a no-op.
func (s *Scheduler) Cancel(key string) {
	if e, ok := s.entries[key]; ok {
		e.timer.Stop()
		delete(s.entries, key)
	}
}

// Active reports whether a timer is pending for key.
func (s *Scheduler) Active(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of pending timers.
func (s *Scheduler) Len() int { return len(s.entries) }

func (s *Scheduler) arm(key string, e *entry) {
	s.seq++
	e.gen = s.seq
	gen := e.gen
	d := e.deadline.Sub(s.now())
	if d < 0 {
		d = 0
	}
	e.timer = time.AfterFunc(d, func() {
		s.post.Submit(func() { s.expire(key, gen) })
	})
}

// expire fires the onExpired callback exactly once. The entry is removed
// before the callback runs so a re-schedule from inside it is safe.
func (s *Scheduler) expire(key string, gen uint64) {
	if e, ok := s.entries[key]; ok && e.gen == gen {
		delete(s.entries, key)
		if e.onExpired != nil {
			e.onExpired()
		}
	}
}
