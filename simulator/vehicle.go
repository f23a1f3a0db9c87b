package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/groundlink/core/model"
)

// SimulatedVehicle connects to the broker, registers itself and plays the
// vehicle side of the coordination protocol: it acknowledges commands, sends
// periodic telemetry and, once started, reports points of interest until the
// mission is complete.
type SimulatedVehicle struct {
	ID       string
	Broker   string
	Type     string
	Jobs     int
	Strategy AckStrategy

	UpdateInterval time.Duration
	POICount       int
	POIInterval    time.Duration

	Battery Battery

	client paho.Client
	clock  *model.IDClock
	cmdCh  chan *model.Message

	mu      sync.Mutex
	seen    map[int64]struct{}
	working bool
	stopCh  chan struct{}
}

// NewSimulatedVehicle creates a new vehicle.
func NewSimulatedVehicle(id string, cfg Config, strat AckStrategy) *SimulatedVehicle {
	return &SimulatedVehicle{
		ID:             id,
		Broker:         cfg.Broker,
		Type:           cfg.VehicleType,
		Jobs:           cfg.Jobs,
		Strategy:       strat,
		UpdateInterval: cfg.UpdateInterval,
		POICount:       cfg.POICount,
		POIInterval:    cfg.POIInterval,
		Battery:        Battery{Level: 100, IdleDrainPH: 2, WorkDrainPH: 12},
		clock:          model.NewIDClock(),
		cmdCh:          make(chan *model.Message, 50),
		seen:           make(map[int64]struct{}),
	}
}

// Run connects to the broker and plays the protocol until ctx is done.
func (v *SimulatedVehicle) Run(ctx context.Context) error {
	cli, err := newMQTTClient(v.Broker, "sim-"+v.ID)
	if err != nil {
		return err
	}
	v.client = cli
	for i := 0; i < 3; i++ {
		go v.worker(ctx)
	}
	topic := fmt.Sprintf("groundlink/vehicle/%s/cmd", v.ID)
	if token := cli.Subscribe(topic, 0, v.onCommand); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}

	jobs := v.Jobs
	v.send(&model.Message{
		Type:          model.MessageConnect,
		JobsAvailable: &jobs,
		VehicleType:   v.Type,
	})

	ticker := time.NewTicker(v.UpdateInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			level := v.Battery.Drain(now.Sub(last), v.isWorking())
			last = now
			v.send(&model.Message{
				Type:    model.MessageUpdate,
				Status:  v.status(),
				Battery: &level,
			})
		case <-ctx.Done():
			close(v.cmdCh)
			cli.Disconnect(250)
			return nil
		}
	}
}

func (v *SimulatedVehicle) onCommand(_ paho.Client, msg paho.Message) {
	m, err := model.Decode(msg.Payload())
	if err != nil {
		log.Printf("%s: decode command: %v", v.ID, err)
		return
	}
	select {
	case v.cmdCh <- m:
	default:
		log.Printf("%s: command queue full, dropping %d", v.ID, m.ID)
	}
}

func (v *SimulatedVehicle) worker(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-v.cmdCh:
			if !ok {
				return
			}
			v.handle(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

// handle acknowledges every delivery but acts on each command id only once,
// so ground-station resends are harmless.
func (v *SimulatedVehicle) handle(ctx context.Context, cmd *model.Message) {
	v.Strategy.Ack(ctx, v, cmd)

	v.mu.Lock()
	if _, dup := v.seen[cmd.ID]; dup {
		v.mu.Unlock()
		return
	}
	v.seen[cmd.ID] = struct{}{}
	v.mu.Unlock()

	switch cmd.Type {
	case model.MessageStart:
		v.startMission(ctx)
	case model.MessageStop:
		v.stopMission()
	case model.MessageBad:
		log.Printf("%s: ground station rejected a message: %s", v.ID, cmd.Error)
	}
}

func (v *SimulatedVehicle) startMission(ctx context.Context) {
	v.mu.Lock()
	if v.working {
		v.mu.Unlock()
		return
	}
	v.working = true
	v.stopCh = make(chan struct{})
	stop := v.stopCh
	v.mu.Unlock()

	go func() {
		for i := 0; i < v.POICount; i++ {
			select {
			case <-time.After(v.POIInterval):
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
			lat := 48.0 + rand.Float64()
			lon := 2.0 + rand.Float64()
			v.send(&model.Message{Type: model.MessagePOI, Lat: &lat, Lon: &lon})
		}
		v.send(&model.Message{
			Type:        model.MessageComplete,
			MissionData: map[string]any{"pois_reported": v.POICount},
		})
		v.stopMission()
	}()
}

func (v *SimulatedVehicle) stopMission() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.working {
		return
	}
	v.working = false
	close(v.stopCh)
}

func (v *SimulatedVehicle) isWorking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.working
}

func (v *SimulatedVehicle) status() string {
	if v.isWorking() {
		return "SURVEYING"
	}
	return "IDLE"
}

// send stamps and publishes a message on the vehicle's telemetry topic.
func (v *SimulatedVehicle) send(msg *model.Message) {
	msg.ID = v.clock.Next()
	msg.VehicleID = v.ID
	msg.SourceID = v.ID
	msg.Time = time.Now().UnixMilli()
	payload, err := msg.Encode()
	if err != nil {
		log.Printf("%s: encode %s: %v", v.ID, msg.Type, err)
		return
	}
	topic := fmt.Sprintf("groundlink/vehicle/%s/telemetry", v.ID)
	token := v.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("%s: publish timeout for %s", v.ID, msg.Type)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("%s: publish %s: %v", v.ID, msg.Type, err)
	}
}
