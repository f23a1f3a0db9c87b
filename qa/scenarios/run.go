package scenarios

import (
	"testing"
	"time"

	"github.com/kilianp07/groundlink/core/fleet"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/core/router"
	"github.com/kilianp07/groundlink/core/watchdog"
	"github.com/kilianp07/groundlink/infra/logger"
)

type inlinePoster struct{}

func (inlinePoster) Submit(fn func()) { fn() }

// replyCounter tallies ground-station replies by type.
type replyCounter struct {
	counts map[model.MessageType]int
}

func (c *replyCounter) Publish(_ string, payload []byte) error {
	m, err := model.Decode(payload)
	if err != nil {
		return err
	}
	c.counts[m.Type]++
	return nil
}

// RunScenario plays the scripted exchange and asserts the expected outcome.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()

	wd := watchdog.New(inlinePoster{}, logger.NopLogger{})
	reg, err := fleet.NewRegistry(wd, sc.Catalog.ToCatalog(), nil, logger.NopLogger{}, time.Hour)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	replies := &replyCounter{counts: make(map[model.MessageType]int)}
	r, err := router.New(router.Config{}, reg, wd, nil, replies, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	nextID := make(map[string]int64)
	inject := func(m model.Message) {
		payload, err := m.Encode()
		if err != nil {
			t.Fatalf("encode scripted %s: %v", m.Type, err)
		}
		r.Receive(payload)
	}

	for _, v := range sc.Vehicles {
		nextID[v.ID]++
		jobs := v.Jobs
		inject(model.Message{
			ID:            nextID[v.ID],
			Type:          model.MessageConnect,
			VehicleID:     v.ID,
			JobsAvailable: &jobs,
			VehicleType:   v.Type,
		})
	}
	for _, d := range sc.Messages {
		nextID[d.Vehicle]++
		inject(d.ToModel(nextID[d.Vehicle]))
	}

	if got := reg.ActiveCount(); got != sc.Expected.Active {
		t.Errorf("%s: active vehicles: expected %d got %d", sc.Name, sc.Expected.Active, got)
	}
	if got := replies.counts[model.MessageAck]; got != sc.Expected.Acks {
		t.Errorf("%s: acks: expected %d got %d", sc.Name, sc.Expected.Acks, got)
	}
	if got := replies.counts[model.MessageBad]; got != sc.Expected.BadMessages {
		t.Errorf("%s: bad messages: expected %d got %d", sc.Name, sc.Expected.BadMessages, got)
	}
	if got := replies.counts[model.MessageStop]; got != sc.Expected.Stops {
		t.Errorf("%s: stops: expected %d got %d", sc.Name, sc.Expected.Stops, got)
	}
}
