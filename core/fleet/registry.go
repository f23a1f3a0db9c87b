// Package fleet owns the set of known vehicles and their liveness state.
package fleet

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/groundlink/core/events"
	"github.com/kilianp07/groundlink/core/logger"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/core/watchdog"
	"github.com/kilianp07/groundlink/internal/eventbus"
)

// ErrConflict is returned when a CONNECT claims an id held by an active vehicle.
var ErrConflict = errors.New("vehicle id already active")

// ErrUnknownType is returned when a CONNECT names a vehicle type absent from
// the capability catalog.
var ErrUnknownType = errors.New("unknown vehicle type")

// Registry tracks every vehicle the service has seen. Records are deactivated,
// never deleted, so a reconnect under the same id can replace the stale entry.
// All methods must be called from the run loop.
type Registry struct {
	vehicles map[string]*model.Vehicle
	wd       *watchdog.Scheduler
	catalog  Catalog
	bus      eventbus.EventBus
	log      logger.Logger

	contactTimeout time.Duration
	now            func() time.Time
}

// NewRegistry creates a Registry. The watchdog scheduler and logger are
// mandatory; the catalog and bus may be nil.
func NewRegistry(wd *watchdog.Scheduler, catalog Catalog, bus eventbus.EventBus, log logger.Logger, contactTimeout time.Duration) (*Registry, error) {
	if wd == nil || log == nil {
		return nil, fmt.Errorf("fleet: nil parameter provided to NewRegistry")
	}
	if contactTimeout <= 0 {
		contactTimeout = 30 * time.Second
	}
	return &Registry{
		vehicles:       make(map[string]*model.Vehicle),
		wd:             wd,
		catalog:        catalog,
		bus:            bus,
		log:            log,
		contactTimeout: contactTimeout,
		now:            time.Now,
	}, nil
}

func livenessKey(id string) string { return "liveness/" + id }

// RegisterOrReplace inserts a new vehicle for id. It fails with ErrConflict if
// an active vehicle already holds the id and with ErrUnknownType if the
// declared type is not in the capability catalog. A stale inactive record is
// silently replaced.
func (r *Registry) RegisterOrReplace(id string, jobs int, vehicleType string) (*model.Vehicle, error) {
	if v, ok := r.vehicles[id]; ok && v.IsActive {
		return nil, fmt.Errorf("register %s: %w", id, ErrConflict)
	}
	if !r.catalog.Known(vehicleType) {
		return nil, fmt.Errorf("register %s: %w: %q", id, ErrUnknownType, vehicleType)
	}
	now := r.now()
	v := &model.Vehicle{
		ID:             id,
		SessionID:      uuid.NewString(),
		JobsAvailable:  jobs,
		VehicleType:    vehicleType,
		Status:         model.StatusWaiting,
		IsActive:       true,
		IsAvailable:    true,
		LastContact:    now,
		ContactTimeout: r.contactTimeout,
	}
	r.vehicles[id] = v
	r.wd.Schedule(livenessKey(id), v.ContactDeadline(), nil, func() {
		r.lost(id)
	})
	r.log.Infof("vehicle %s registered (%d jobs)", id, jobs)
	return v, nil
}

// Lookup returns the vehicle for id.
func (r *Registry) Lookup(id string) (*model.Vehicle, bool) {
	v, ok := r.vehicles[id]
	return v, ok
}

// RenewContact records a contact from the vehicle and pushes its liveness
// deadline forward. Contacts from unknown or inactive vehicles are ignored.
func (r *Registry) RenewContact(id string) {
	v, ok := r.vehicles[id]
	if !ok || !v.IsActive {
		return
	}
	v.Touch(r.now())
	r.wd.Renew(livenessKey(id), v.ContactDeadline())
}

// Deactivate marks the vehicle inactive and cancels its liveness timer.
// Deactivating twice, or deactivating an unknown id, is a no-op.
func (r *Registry) Deactivate(id string) {
	v, ok := r.vehicles[id]
	if !ok || !v.IsActive {
		return
	}
	v.IsActive = false
	v.IsAvailable = false
	v.Status = model.StatusUnavailable
	r.wd.Cancel(livenessKey(id))
	r.log.Infof("vehicle %s deactivated", id)
}

// SetAvailable toggles the vehicle's availability for mission assignment.
func (r *Registry) SetAvailable(id string, available bool) {
	if v, ok := r.vehicles[id]; ok && v.IsActive {
		v.IsAvailable = available
	}
}

// List returns a snapshot of all records sorted by id.
func (r *Registry) List() []model.Vehicle {
	res := make([]model.Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		res = append(res, *v)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ActiveCount returns the number of active vehicles.
func (r *Registry) ActiveCount() int {
	n := 0
	for _, v := range r.vehicles {
		if v.IsActive {
			n++
		}
	}
	return n
}

// lost handles a liveness watchdog expiry.
func (r *Registry) lost(id string) {
	v, ok := r.vehicles[id]
	if !ok || !v.IsActive {
		return
	}
	r.log.Warnf("vehicle %s missed its contact deadline", id)
	r.Deactivate(id)
	if r.bus != nil {
		r.bus.Publish(events.VehicleLostEvent{VehicleID: id, Reason: "contact timeout"})
	}
}
