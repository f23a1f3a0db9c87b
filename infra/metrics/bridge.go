package metrics

import (
	"context"

	"github.com/kilianp07/groundlink/core/events"
	"github.com/kilianp07/groundlink/core/fleet"
	"github.com/kilianp07/groundlink/core/logger"
	coremetrics "github.com/kilianp07/groundlink/core/metrics"
	"github.com/kilianp07/groundlink/internal/eventbus"
)

// Bridge drains coordination events from the bus into a metrics sink and the
// fleet KPI tracker. It runs on its own goroutine, outside the run loop.
type Bridge struct {
	bus  eventbus.EventBus
	sink coremetrics.Sink
	kpi  *fleet.KPITracker
	log  logger.Logger
}

// NewBridge creates a Bridge. The sink and tracker may be nil.
func NewBridge(bus eventbus.EventBus, sink coremetrics.Sink, kpi *fleet.KPITracker, log logger.Logger) *Bridge {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Bridge{bus: bus, sink: sink, kpi: kpi, log: log}
}

// Run consumes events until the context is canceled or the bus closes.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.bus.Subscribe()
	defer b.bus.Unsubscribe(sub)
	for {
		select {
		case e, ok := <-sub:
			if !ok {
				return
			}
			b.record(e)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) record(e eventbus.Event) {
	var err error
	switch ev := e.(type) {
	case events.MessageEvent:
		err = b.sink.RecordMessage(coremetrics.MessageRecord{
			VehicleID: ev.VehicleID,
			Type:      string(ev.Type),
			Outcome:   string(ev.Outcome),
		})
	case events.AckEvent:
		if ev.Acknowledged && b.kpi != nil {
			b.kpi.Observe(ev.Latency)
		}
		err = b.sink.RecordAck(coremetrics.AckRecord{
			VehicleID:    ev.VehicleID,
			Type:         string(ev.Type),
			Acknowledged: ev.Acknowledged,
			Attempts:     ev.Attempts,
			Latency:      ev.Latency,
		})
	case events.MissionEvent:
		err = b.sink.RecordMissionStatus(coremetrics.MissionRecord{
			Index:  ev.Index,
			Status: ev.Status,
		})
	}
	if err != nil {
		b.log.Errorf("metrics error: %v", err)
	}
}
