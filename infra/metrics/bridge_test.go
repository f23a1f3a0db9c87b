package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/groundlink/core/events"
	"github.com/kilianp07/groundlink/core/fleet"
	coremetrics "github.com/kilianp07/groundlink/core/metrics"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/infra/logger"
	"github.com/kilianp07/groundlink/internal/eventbus"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []coremetrics.MessageRecord
	acks     []coremetrics.AckRecord
	missions []coremetrics.MissionRecord
}

func (s *recordingSink) RecordMessage(r coremetrics.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, r)
	return nil
}

func (s *recordingSink) RecordAck(r coremetrics.AckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks = append(s.acks, r)
	return nil
}

func (s *recordingSink) RecordMissionStatus(r coremetrics.MissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions = append(s.missions, r)
	return nil
}

func (s *recordingSink) RecordFleetSize(int) error { return nil }

func (s *recordingSink) counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages), len(s.acks), len(s.missions)
}

func TestBridgeRoutesEvents(t *testing.T) {
	bus := eventbus.New()
	sink := &recordingSink{}
	kpi := fleet.NewKPITracker(16)
	b := NewBridge(bus, sink, kpi, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	// Give the bridge time to subscribe before publishing.
	time.Sleep(10 * time.Millisecond)

	bus.Publish(events.MessageEvent{VehicleID: "V1", Type: model.MessageConnect, Outcome: events.OutcomeAccepted})
	bus.Publish(events.AckEvent{VehicleID: "V1", Type: model.MessageStart, Acknowledged: true, Latency: 100 * time.Millisecond})
	bus.Publish(events.AckEvent{VehicleID: "V1", Type: model.MessageStart, Acknowledged: false, Attempts: 4})
	bus.Publish(events.MissionEvent{Index: 0, Status: "RUNNING"})

	require.Eventually(t, func() bool {
		m, a, mi := sink.counts()
		return m == 1 && a == 2 && mi == 1
	}, time.Second, 10*time.Millisecond)

	// Only acknowledged acks feed the latency window.
	require.Equal(t, 1, kpi.Compute(nil).AckCount)

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop on bus close")
	}
}

func TestBridgeNilSinkDefaultsToNop(t *testing.T) {
	bus := eventbus.New()
	b := NewBridge(bus, nil, nil, logger.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	bus.Publish(events.MissionEvent{Index: 0, Status: "READY"})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop on cancel")
	}
}
