// Package mission defines the mission contract and the sequencer that drives
// an ordered schedule of missions, one running at a time.
package mission

import "github.com/kilianp07/groundlink/core/model"

// Data is the opaque result payload handed from a completed mission to the
// next one in the schedule.
type Data map[string]any

// Mission is implemented by each mission type. Variants are registered by
// name in a TypeRegistry and constructed empty, then configured through the
// setup calls until SetupComplete holds.
type Mission interface {
	// SetMissionInfo applies mission-type specific settings.
	SetMissionInfo(settings map[string]any) error
	// SetVehicleMapping assigns vehicles to mission roles.
	SetVehicleMapping(mapping map[string]string) error
	// SetupComplete reports whether the mission can be scheduled.
	SetupComplete() bool
	// ListenForStatusUpdates registers a callback invoked on every status
	// transition.
	ListenForStatusUpdates(fn func(Status))
	// Start begins execution with the previous mission's result payload.
	Start(required Data) error
	// Update feeds a mission-relevant inbound message to the mission.
	Update(msg *model.Message)
	// ActiveVehicles returns the ids this mission accepts events from.
	ActiveVehicles() map[string]struct{}
	// Result yields the payload for the next mission once complete.
	Result() Data
	// Status returns the current lifecycle status.
	Status() Status
}

// Factory constructs an empty mission of one registered type.
type Factory func() Mission

// TypeRegistry holds the mission variants available to the sequencer. It is
// built once at startup and passed explicitly, never accessed as a global.
type TypeRegistry struct {
	factories map[string]Factory
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{factories: make(map[string]Factory)}
}

// Register adds a mission type under name, replacing any previous entry.
func (r *TypeRegistry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New constructs a mission of the named type.
func (r *TypeRegistry) New(name string) (Mission, bool) {
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Types lists the registered type names.
func (r *TypeRegistry) Types() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}
