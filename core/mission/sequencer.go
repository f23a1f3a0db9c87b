package mission

import (
	"errors"
	"fmt"

	"github.com/kilianp07/groundlink/core/events"
	"github.com/kilianp07/groundlink/core/logger"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/internal/eventbus"
)

var (
	// ErrRunning rejects schedule mutations while a mission is active.
	ErrRunning = errors.New("sequencer is running")
	// ErrNotReady reports a start attempt on a mission that is not READY.
	ErrNotReady = errors.New("mission not ready")
	// ErrSetupIncomplete rejects a batch containing an unconfigured mission.
	ErrSetupIncomplete = errors.New("mission setup incomplete")
	// ErrNoMission reports a start attempt past the end of the schedule.
	ErrNoMission = errors.New("no mission at current index")
)

// VehicleAvailability toggles a vehicle's availability while it is committed
// to a mission. Implemented by fleet.Registry.
type VehicleAvailability interface {
	SetAvailable(id string, available bool)
}

// Sequencer owns the ordered mission schedule and enforces the
// single-active-mission invariant. The schedule is append-only until a full
// reset; the current index only advances. All methods must be called from the
// run loop.
type Sequencer struct {
	types *TypeRegistry
	avail VehicleAvailability
	bus   eventbus.EventBus
	log   logger.Logger

	schedule       []Mission
	statuses       []Status
	running        bool
	blocked        bool
	current        int
	currentMission Mission
	activeVehicles map[string]struct{}
}

// NewSequencer creates a Sequencer. The type registry and logger are
// mandatory; availability tracking and the bus may be nil.
func NewSequencer(types *TypeRegistry, avail VehicleAvailability, bus eventbus.EventBus, log logger.Logger) (*Sequencer, error) {
	if types == nil || log == nil {
		return nil, fmt.Errorf("mission: nil parameter provided to NewSequencer")
	}
	return &Sequencer{types: types, avail: avail, bus: bus, log: log}, nil
}

// CreateMission constructs an empty mission of the named type. It returns nil
// while a mission is running or when the type is not registered.
func (s *Sequencer) CreateMission(typeName string) Mission {
	if s.running {
		s.log.Warnf("create mission refused: %v", ErrRunning)
		return nil
	}
	m, ok := s.types.New(typeName)
	if !ok {
		s.log.Warnf("create mission refused: unknown type %q", typeName)
		return nil
	}
	return m
}

// AddMissions appends a batch to the schedule. The add is atomic and
// fail-fast: if the sequencer is running, or any entry is nil or not
// setup-complete, the batch and any previously scheduled missions are all
// discarded.
func (s *Sequencer) AddMissions(ms []Mission) error {
	if s.running {
		s.Reset()
		return fmt.Errorf("add missions: %w", ErrRunning)
	}
	for i, m := range ms {
		if m == nil {
			s.Reset()
			return fmt.Errorf("add missions: entry %d is not a mission", i)
		}
		if !m.SetupComplete() {
			s.Reset()
			return fmt.Errorf("add missions: entry %d: %w", i, ErrSetupIncomplete)
		}
	}
	for _, m := range ms {
		idx := len(s.schedule)
		s.schedule = append(s.schedule, m)
		s.statuses = append(s.statuses, m.Status())
		mm := m
		m.ListenForStatusUpdates(func(st Status) { s.onStatus(idx, mm, st) })
	}
	s.log.Infof("scheduled %d missions (%d total)", len(ms), len(s.schedule))
	return nil
}

// AllReady reports whether every scheduled mission is READY.
func (s *Sequencer) AllReady() bool {
	if len(s.statuses) == 0 {
		return false
	}
	for _, st := range s.statuses {
		if st != StatusReady {
			return false
		}
	}
	return true
}

// StartMission starts the mission at the current index with the given
// required data. A mission that is not READY leaves the sequencer in an
// explicit blocked state requiring external intervention.
func (s *Sequencer) StartMission(data Data) error {
	if s.current >= len(s.schedule) {
		s.running = false
		return fmt.Errorf("start mission %d: %w", s.current, ErrNoMission)
	}
	if s.statuses[s.current] != StatusReady {
		s.running = false
		s.blocked = true
		s.log.Errorf("mission %d is %s, sequencer blocked", s.current, s.statuses[s.current])
		return fmt.Errorf("start mission %d: %w", s.current, ErrNotReady)
	}
	m := s.schedule[s.current]
	s.running = true
	s.blocked = false
	s.currentMission = m
	s.activeVehicles = m.ActiveVehicles()
	if s.avail != nil {
		for id := range s.activeVehicles {
			s.avail.SetAvailable(id, false)
		}
	}
	if err := m.Start(data); err != nil {
		s.running = false
		s.blocked = true
		s.currentMission = nil
		return fmt.Errorf("start mission %d: %w", s.current, err)
	}
	s.log.Infof("mission %d started with %d vehicles", s.current, len(s.activeVehicles))
	return nil
}

// EndMission advances the schedule, starting the next mission with the
// completed mission's result payload. Exhausting the schedule performs a full
// reset so a new batch can be added.
func (s *Sequencer) EndMission(next Data) {
	s.releaseVehicles()
	s.currentMission = nil
	s.running = false
	s.current++
	if s.current < len(s.schedule) {
		if err := s.StartMission(next); err != nil {
			s.log.Errorf("hand-off failed: %v", err)
		}
		return
	}
	s.log.Infof("mission schedule complete")
	s.Reset()
}

// Reset clears all sequencer state unconditionally.
func (s *Sequencer) Reset() {
	s.releaseVehicles()
	s.schedule = nil
	s.statuses = nil
	s.running = false
	s.blocked = false
	s.current = 0
	s.currentMission = nil
}

// Forward delivers a mission-relevant message to the active mission. It
// reports false when no mission is running or the sender is outside the
// active vehicle set.
func (s *Sequencer) Forward(msg *model.Message) bool {
	if !s.running || s.currentMission == nil {
		return false
	}
	if _, ok := s.activeVehicles[msg.VehicleID]; !ok {
		return false
	}
	s.currentMission.Update(msg)
	return true
}

// InActiveSet reports whether the vehicle belongs to the running mission.
func (s *Sequencer) InActiveSet(id string) bool {
	_, ok := s.activeVehicles[id]
	return ok
}

// IsRunning reports whether a mission is currently active.
func (s *Sequencer) IsRunning() bool { return s.running }

// Blocked reports whether the sequencer halted on a not-READY mission.
func (s *Sequencer) Blocked() bool { return s.blocked }

// CurrentIndex returns the schedule position of the active or next mission.
func (s *Sequencer) CurrentIndex() int { return s.current }

// Len returns the number of scheduled missions.
func (s *Sequencer) Len() int { return len(s.schedule) }

// Statuses returns a snapshot of the tracked status table.
func (s *Sequencer) Statuses() []Status {
	return append([]Status(nil), s.statuses...)
}

func (s *Sequencer) releaseVehicles() {
	if s.avail != nil {
		for id := range s.activeVehicles {
			s.avail.SetAvailable(id, true)
		}
	}
	s.activeVehicles = nil
}

// onStatus tracks mission transitions and drives the hand-off when the active
// mission completes. Stale callbacks from a discarded schedule are ignored.
func (s *Sequencer) onStatus(idx int, m Mission, st Status) {
	if idx >= len(s.statuses) || s.schedule[idx] != m {
		return
	}
	s.statuses[idx] = st
	if s.bus != nil {
		s.bus.Publish(events.MissionEvent{Index: idx, Status: string(st)})
	}
	if st == StatusComplete && s.running && idx == s.current {
		s.EndMission(m.Result())
	}
}
