package model

import "time"

// VehicleStatus describes the coordination state of a vehicle. Statuses
// reported by missions pass through unchanged, so the type is open beyond the
// named constants.
type VehicleStatus string

const (
	StatusWaiting     VehicleStatus = "WAITING"
	StatusActive      VehicleStatus = "ACTIVE"
	StatusUnavailable VehicleStatus = "UNAVAILABLE"
)

// Vehicle represents one remote autonomous vehicle known to the service.
// IDs are externally assigned and unique among active vehicles only; a stale
// deactivated record may be replaced by a later reconnect under the same id.
type Vehicle struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	JobsAvailable int           `json:"jobs_available"`
	VehicleType   string        `json:"vehicle_type,omitempty"`
	Status        VehicleStatus `json:"status"`
	IsActive      bool          `json:"is_active"`
	IsAvailable   bool          `json:"is_available"`

	LastContact    time.Time     `json:"last_contact"`
	ContactTimeout time.Duration `json:"contact_timeout"`

	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	Battery float64 `json:"battery,omitempty"`
}

// Touch records a contact from the vehicle.
func (v *Vehicle) Touch(now time.Time) {
	v.LastContact = now
}

// ContactDeadline returns the instant at which the vehicle is considered lost
// unless another message arrives first.
func (v *Vehicle) ContactDeadline() time.Time {
	return v.LastContact.Add(v.ContactTimeout)
}

// ApplyUpdate folds the mutable fields of an UPDATE message into the vehicle.
func (v *Vehicle) ApplyUpdate(m *Message) {
	if m.Status != "" {
		v.Status = VehicleStatus(m.Status)
	}
	if m.Lat != nil {
		v.Lat = *m.Lat
	}
	if m.Lon != nil {
		v.Lon = *m.Lon
	}
	if m.Battery != nil {
		v.Battery = *m.Battery
	}
}
