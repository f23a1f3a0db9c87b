package model

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MessageType identifies the application-level message kind.
type MessageType string

const (
	MessageConnect  MessageType = "CONNECT"
	MessageUpdate   MessageType = "UPDATE"
	MessagePOI      MessageType = "POI"
	MessageComplete MessageType = "COMPLETE"
	MessageAck      MessageType = "ACK"
	MessageBad      MessageType = "BADMESSAGE"
	MessageStop     MessageType = "STOP"
	MessageStart    MessageType = "START"
)

// Known reports whether t is part of the wire protocol.
func (t MessageType) Known() bool {
	switch t {
	case MessageConnect, MessageUpdate, MessagePOI, MessageComplete,
		MessageAck, MessageBad, MessageStop, MessageStart:
		return true
	}
	return false
}

// Message is the application-level envelope exchanged with vehicles. Fields
// that are required only for certain types are pointers so that a missing
// field is distinguishable from a zero value.
type Message struct {
	ID        int64       `json:"id,omitempty"`
	SourceID  string      `json:"sid,omitempty"`
	TargetID  string      `json:"tid,omitempty"`
	Type      MessageType `json:"type,omitempty"`
	Time      int64       `json:"time,omitempty"`
	VehicleID string      `json:"vehicleId,omitempty"`

	// CONNECT
	JobsAvailable *int   `json:"jobsAvailable,omitempty"`
	VehicleType   string `json:"vehicleType,omitempty"`

	// ACK
	AckID   *int64      `json:"ackId,omitempty"`
	AckType MessageType `json:"ackType,omitempty"`

	// POI
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// COMPLETE
	MissionData map[string]any `json:"missionData,omitempty"`

	// UPDATE (vehicle-defined, all optional)
	Status  string   `json:"status,omitempty"`
	Battery *float64 `json:"battery,omitempty"`

	// BADMESSAGE
	Error string `json:"error,omitempty"`
}

// MissingFields returns the names of required fields absent from the message.
// Every message requires id, type and vehicleId; the rest depends on the type.
func (m *Message) MissingFields() []string {
	var missing []string
	if m.ID == 0 {
		missing = append(missing, "id")
	}
	if m.Type == "" {
		missing = append(missing, "type")
	}
	if m.VehicleID == "" {
		missing = append(missing, "vehicleId")
	}
	switch m.Type {
	case MessageConnect:
		if m.JobsAvailable == nil {
			missing = append(missing, "jobsAvailable")
		}
	case MessageAck:
		if m.AckID == nil {
			missing = append(missing, "ackId")
		}
		if m.AckType == "" {
			missing = append(missing, "ackType")
		}
	case MessagePOI:
		if m.Lat == nil {
			missing = append(missing, "lat")
		}
		if m.Lon == nil {
			missing = append(missing, "lon")
		}
	case MessageComplete:
		if m.MissionData == nil {
			missing = append(missing, "missionData")
		}
	}
	return missing
}

// Decode parses a raw JSON payload into a Message.
func Decode(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &m, nil
}

// Encode serializes the message for the transport.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// IDClock derives message identifiers from a monotonically non-decreasing
// clock source. Identifiers are unique within a sender session: if the wall
// clock has not advanced since the last id, the next one is bumped by one.
type IDClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDClock creates an IDClock backed by the system clock.
func NewIDClock() *IDClock {
	return &IDClock{now: time.Now}
}

// NewIDClockAt creates an IDClock with a custom time source, for tests.
func NewIDClockAt(now func() time.Time) *IDClock {
	return &IDClock{now: now}
}

// Next returns a fresh message id.
func (c *IDClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.now().UnixMilli()
	if n <= c.last {
		n = c.last + 1
	}
	c.last = n
	return n
}
