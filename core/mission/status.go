package mission

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Status is the closed set of mission lifecycle states.
type Status string

const (
	StatusSetup    Status = "SETUP"
	StatusReady    Status = "READY"
	StatusNotReady Status = "NOT_READY"
	StatusRunning  Status = "RUNNING"
	StatusComplete Status = "COMPLETE"
)

const (
	eventReady    = "event_ready"
	eventNotReady = "event_not_ready"
	eventStart    = "event_start"
	eventComplete = "event_complete"
)

// Lifecycle enforces the mission status graph
// SETUP -> READY|NOT_READY -> RUNNING -> COMPLETE and fans status transitions
// out to registered listeners. Mission implementations embed it to satisfy the
// status part of the Mission contract.
type Lifecycle struct {
	machine   *fsm.FSM
	listeners []func(Status)
}

// NewLifecycle creates a Lifecycle in SETUP.
func NewLifecycle() *Lifecycle {
	l := &Lifecycle{}
	l.machine = fsm.NewFSM(
		string(StatusSetup),
		fsm.Events{
			{Name: eventReady, Src: []string{string(StatusSetup), string(StatusNotReady)}, Dst: string(StatusReady)},
			{Name: eventNotReady, Src: []string{string(StatusSetup), string(StatusReady)}, Dst: string(StatusNotReady)},
			{Name: eventStart, Src: []string{string(StatusReady)}, Dst: string(StatusRunning)},
			{Name: eventComplete, Src: []string{string(StatusRunning)}, Dst: string(StatusComplete)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				st := Status(e.Dst)
				for _, fn := range l.listeners {
					fn(st)
				}
			},
		},
	)
	return l
}

// Status returns the current lifecycle state.
func (l *Lifecycle) Status() Status {
	return Status(l.machine.Current())
}

// ListenForStatusUpdates registers a transition callback.
func (l *Lifecycle) ListenForStatusUpdates(fn func(Status)) {
	if fn != nil {
		l.listeners = append(l.listeners, fn)
	}
}

// MarkReady moves the mission to READY.
func (l *Lifecycle) MarkReady() error { return l.transition(eventReady) }

// MarkNotReady moves the mission to NOT_READY.
func (l *Lifecycle) MarkNotReady() error { return l.transition(eventNotReady) }

// MarkRunning moves the mission to RUNNING.
func (l *Lifecycle) MarkRunning() error { return l.transition(eventStart) }

// MarkComplete moves the mission to COMPLETE.
func (l *Lifecycle) MarkComplete() error { return l.transition(eventComplete) }

func (l *Lifecycle) transition(event string) error {
	if err := l.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("mission status %s: %w", l.machine.Current(), err)
	}
	return nil
}
