// Package transport declares the contract between the coordination core and
// the physical message transport. The transport delivers each payload at most
// once with no ordering guarantee across vehicles; reliable delivery is the
// router's job, built on acknowledgments and retries.
package transport

import "errors"

// Transport publishes encoded messages to a vehicle.
type Transport interface {
	// Publish sends the payload to the vehicle's command channel.
	Publish(vehicleID string, payload []byte) error
}

// Func adapts a function to the Transport interface, mainly for tests.
type Func func(vehicleID string, payload []byte) error

func (f Func) Publish(vehicleID string, payload []byte) error {
	return f(vehicleID, payload)
}

// ErrAckTimeout is reported when no acknowledgment arrives before the deadline.
var ErrAckTimeout = errors.New("timeout waiting for ack")
