// Package events defines the coordination events emitted on the event bus.
//
// Available event types:
//   - MessageEvent: inbound message accepted, duplicated or rejected
//   - AckEvent: outbound message acknowledgment result
//   - VehicleLostEvent: vehicle deactivated by the liveness watchdog or retry budget
//   - MissionEvent: mission status transition in the sequencer
package events
