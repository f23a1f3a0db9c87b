package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/kilianp07/groundlink/core/model"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// AckStrategy defines how a vehicle acknowledges commands.
type AckStrategy interface {
	Ack(ctx context.Context, v *SimulatedVehicle, cmd *model.Message)
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, v *SimulatedVehicle, cmd *model.Message) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishAck(v, cmd)
}

// RandomAck drops acknowledgments with the configured probability and waits
// for the specified delay before sending. Dropped ACKs exercise the ground
// station's retry path.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, v *SimulatedVehicle, cmd *model.Message) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		log.Printf("%s: dropping ack for %d", v.ID, cmd.ID)
		return
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishAck(v, cmd)
}

func publishAck(v *SimulatedVehicle, cmd *model.Message) {
	ackID := cmd.ID
	v.send(&model.Message{
		Type:    model.MessageAck,
		AckID:   &ackID,
		AckType: cmd.Type,
	})
}
