package events

import (
	"time"

	"github.com/kilianp07/groundlink/core/model"
)

// MessageOutcome classifies what the router did with an inbound message.
type MessageOutcome string

const (
	OutcomeAccepted  MessageOutcome = "accepted"
	OutcomeDuplicate MessageOutcome = "duplicate"
	OutcomeRejected  MessageOutcome = "rejected"
)

// MessageEvent is published for each inbound message the router processes.
type MessageEvent struct {
	VehicleID string
	Type      model.MessageType
	Outcome   MessageOutcome
}

// AckEvent is published when an outbound message is acknowledged or its retry
// budget is exhausted.
type AckEvent struct {
	VehicleID    string
	Type         model.MessageType
	MessageID    int64
	Acknowledged bool
	Attempts     int
	Latency      time.Duration
}

// VehicleLostEvent is published when a vehicle is deactivated for missing its
// contact deadline or failing to acknowledge deliveries.
type VehicleLostEvent struct {
	VehicleID string
	Reason    string
}

// MissionEvent is published on each mission status transition.
type MissionEvent struct {
	Index  int
	Status string
}
