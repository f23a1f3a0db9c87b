// Package router validates, deduplicates and acknowledges inbound messages,
// and tracks outbound messages until they are acknowledged or their retry
// budget runs out.
package router

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/groundlink/core/events"
	"github.com/kilianp07/groundlink/core/fleet"
	"github.com/kilianp07/groundlink/core/logger"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/core/transport"
	"github.com/kilianp07/groundlink/core/watchdog"
	"github.com/kilianp07/groundlink/internal/eventbus"
)

// ErrUnknownTarget is returned when sending to an id with no active vehicle.
var ErrUnknownTarget = errors.New("no active vehicle for target")

// MissionSink receives mission-relevant inbound messages. Implemented by
// mission.Sequencer.
type MissionSink interface {
	Forward(msg *model.Message) bool
}

type outboundEntry struct {
	msg      *model.Message
	payload  []byte
	attempts int
	sentAt   time.Time
}

// Config tunes the router's delivery guarantees.
type Config struct {
	// StationID is used as the source id on outbound messages.
	StationID string `json:"station_id"`
	// AckTimeoutMS bounds how long an outbound message waits for its ACK.
	AckTimeoutMS int `json:"ack_timeout_ms"`
	// MaxRetries is the number of resends before the target is declared
	// unresponsive and deactivated.
	MaxRetries int `json:"max_retries"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.StationID == "" {
		c.StationID = "ground-control"
	}
	if c.AckTimeoutMS <= 0 {
		c.AckTimeoutMS = 2000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}

// Router is the single entry and exit point for vehicle messages. All methods
// must be called from the run loop.
type Router struct {
	reg   *fleet.Registry
	wd    *watchdog.Scheduler
	seq   MissionSink
	tr    transport.Transport
	clock *model.IDClock
	bus   eventbus.EventBus
	log   logger.Logger

	stationID  string
	ackTimeout time.Duration
	maxRetries int
	now        func() time.Time

	received map[string]struct{}
	outbox   map[string]*outboundEntry
}

// New creates a Router. Registry, watchdog, transport and logger are
// mandatory; the mission sink and bus may be nil.
func New(cfg Config, reg *fleet.Registry, wd *watchdog.Scheduler, seq MissionSink, tr transport.Transport, bus eventbus.EventBus, log logger.Logger) (*Router, error) {
	if reg == nil || wd == nil || tr == nil || log == nil {
		return nil, fmt.Errorf("router: nil parameter provided to New")
	}
	cfg.SetDefaults()
	return &Router{
		reg:        reg,
		wd:         wd,
		seq:        seq,
		tr:         tr,
		clock:      model.NewIDClock(),
		bus:        bus,
		log:        log,
		stationID:  cfg.StationID,
		ackTimeout: time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		maxRetries: cfg.MaxRetries,
		now:        time.Now,
		received:   make(map[string]struct{}),
		outbox:     make(map[string]*outboundEntry),
	}, nil
}

func recvKey(vehicleID string, id int64) string {
	return fmt.Sprintf("%s/%d", vehicleID, id)
}

func ackKey(target string, typ model.MessageType, id int64) string {
	return fmt.Sprintf("ack/%s/%s/%d", target, typ, id)
}

// Send dispatches a tracked message to an active vehicle. The message gets a
// fresh id, enters the outbox and is retried on ack timeout until the retry
// budget is exhausted, at which point the target is deactivated.
func (r *Router) Send(targetID string, msg *model.Message) error {
	v, ok := r.reg.Lookup(targetID)
	if !ok || !v.IsActive {
		return fmt.Errorf("send %s to %s: %w", msg.Type, targetID, ErrUnknownTarget)
	}
	r.stamp(targetID, msg)
	payload, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Type, targetID, err)
	}
	key := ackKey(targetID, msg.Type, msg.ID)
	r.outbox[key] = &outboundEntry{msg: msg, payload: payload, attempts: 1, sentAt: r.now()}
	if err := r.tr.Publish(targetID, payload); err != nil {
		delete(r.outbox, key)
		return fmt.Errorf("send %s to %s: %w", msg.Type, targetID, err)
	}
	r.armAckTimeout(key, targetID)
	r.log.Debugf("sent %s %d to %s", msg.Type, msg.ID, targetID)
	return nil
}

// Receive processes one raw inbound payload.
func (r *Router) Receive(raw []byte) {
	m, err := model.Decode(raw)
	if err != nil {
		r.log.Warnf("dropping undecodable message: %v", err)
		r.publishMessageEvent("", "", events.OutcomeRejected)
		return
	}
	if missing := m.MissingFields(); len(missing) > 0 {
		r.rejectInvalid(m, "missing fields: "+strings.Join(missing, ", "))
		return
	}
	if !m.Type.Known() {
		r.rejectInvalid(m, fmt.Sprintf("unknown message type %q", m.Type))
		return
	}

	rk := recvKey(m.VehicleID, m.ID)
	if _, dup := r.received[rk]; dup {
		r.log.Debugf("duplicate message %d from %s dropped", m.ID, m.VehicleID)
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeDuplicate)
		return
	}
	r.received[rk] = struct{}{}

	// ACKs are never acknowledged back, everything else is.
	if m.Type != model.MessageAck {
		r.reply(m.VehicleID, &model.Message{
			Type:    model.MessageAck,
			AckID:   &m.ID,
			AckType: m.Type,
		})
	}
	r.reg.RenewContact(m.VehicleID)
	r.route(m)
}

// route dispatches a validated, deduplicated message by type.
func (r *Router) route(m *model.Message) {
	if m.Type == model.MessageConnect {
		r.handleConnect(m)
		return
	}
	v, ok := r.reg.Lookup(m.VehicleID)
	if !ok {
		r.log.Warnf("dropping %s from unknown vehicle %s", m.Type, m.VehicleID)
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
		return
	}
	if !v.IsActive {
		r.log.Warnf("%s from deactivated vehicle %s, sending STOP", m.Type, m.VehicleID)
		r.reply(m.VehicleID, &model.Message{Type: model.MessageStop})
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
		return
	}

	switch m.Type {
	case model.MessageUpdate:
		v.ApplyUpdate(m)
	case model.MessagePOI, model.MessageComplete:
		if r.seq == nil || !r.seq.Forward(m) {
			r.log.Warnf("dropping %s from %s: not in the active mission set", m.Type, m.VehicleID)
			r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
			return
		}
	case model.MessageAck:
		r.handleAck(m)
	}
	r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeAccepted)
}

func (r *Router) handleConnect(m *model.Message) {
	_, err := r.reg.RegisterOrReplace(m.VehicleID, *m.JobsAvailable, m.VehicleType)
	switch {
	case errors.Is(err, fleet.ErrConflict):
		// Fleet state is untouched; the duplicate CONNECT is logged, not fatal.
		r.log.Warnf("connect ignored: %v", err)
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
	case errors.Is(err, fleet.ErrUnknownType):
		r.log.Warnf("connect refused: %v", err)
		r.reply(m.VehicleID, &model.Message{Type: model.MessageBad, Error: err.Error()})
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
	case err != nil:
		r.log.Errorf("connect failed: %v", err)
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
	default:
		r.resetSession(m)
		r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeAccepted)
	}
}

// resetSession drops dedup state left over from the vehicle's earlier
// sessions. Message ids are only unique within a sender session, so after a
// reconnect the previous session's ids are valid again. The CONNECT that
// opened the new session stays recorded.
func (r *Router) resetSession(m *model.Message) {
	prefix := m.VehicleID + "/"
	for k := range r.received {
		if strings.HasPrefix(k, prefix) {
			delete(r.received, k)
		}
	}
	r.received[recvKey(m.VehicleID, m.ID)] = struct{}{}
}

func (r *Router) handleAck(m *model.Message) {
	key := ackKey(m.VehicleID, m.AckType, *m.AckID)
	if !r.wd.Renew(key, time.Time{}) {
		r.log.Debugf("ack from %s for unknown message %d", m.VehicleID, *m.AckID)
	}
}

// rejectInvalid applies the validation failure policy: a BADMESSAGE reply when
// the sender is identifiable, a logged drop otherwise.
func (r *Router) rejectInvalid(m *model.Message, reason string) {
	if m.VehicleID != "" {
		r.reply(m.VehicleID, &model.Message{Type: model.MessageBad, Error: reason})
	} else {
		r.log.Warnf("dropping unattributable invalid message: %s", reason)
	}
	r.publishMessageEvent(m.VehicleID, m.Type, events.OutcomeRejected)
}

// reply sends an untracked control message (ACK, BADMESSAGE, STOP). Replies
// are fire-and-forget: they carry an id but never enter the outbox.
func (r *Router) reply(targetID string, msg *model.Message) {
	r.stamp(targetID, msg)
	payload, err := msg.Encode()
	if err != nil {
		r.log.Errorf("encode %s reply: %v", msg.Type, err)
		return
	}
	if err := r.tr.Publish(targetID, payload); err != nil {
		r.log.Errorf("publish %s reply to %s: %v", msg.Type, targetID, err)
	}
}

func (r *Router) stamp(targetID string, msg *model.Message) {
	msg.ID = r.clock.Next()
	msg.SourceID = r.stationID
	msg.TargetID = targetID
	msg.Time = r.now().UnixMilli()
}

func (r *Router) armAckTimeout(key, targetID string) {
	r.wd.Schedule(key, r.now().Add(r.ackTimeout),
		func() { r.resolve(key) },
		func() { r.ackExpired(key, targetID) },
	)
}

// resolve removes an acknowledged message from the outbox.
func (r *Router) resolve(key string) {
	e, ok := r.outbox[key]
	if !ok {
		return
	}
	delete(r.outbox, key)
	if r.bus != nil {
		r.bus.Publish(events.AckEvent{
			VehicleID:    e.msg.TargetID,
			Type:         e.msg.Type,
			MessageID:    e.msg.ID,
			Acknowledged: true,
			Attempts:     e.attempts,
			Latency:      r.now().Sub(e.sentAt),
		})
	}
	r.log.Debugf("message %d to %s acknowledged", e.msg.ID, e.msg.TargetID)
}

// ackExpired retries an unacknowledged message or, once the budget is spent,
// declares the target unresponsive and deactivates it.
func (r *Router) ackExpired(key, targetID string) {
	e, ok := r.outbox[key]
	if !ok {
		return
	}
	if e.attempts > r.maxRetries {
		delete(r.outbox, key)
		r.log.Errorf("vehicle %s: %v after %d attempts, deactivating", targetID, transport.ErrAckTimeout, e.attempts)
		r.reg.Deactivate(targetID)
		if r.bus != nil {
			r.bus.Publish(events.AckEvent{
				VehicleID: targetID,
				Type:      e.msg.Type,
				MessageID: e.msg.ID,
				Attempts:  e.attempts,
			})
			r.bus.Publish(events.VehicleLostEvent{VehicleID: targetID, Reason: transport.ErrAckTimeout.Error()})
		}
		return
	}
	e.attempts++
	r.log.Warnf("resending %s %d to %s (attempt %d)", e.msg.Type, e.msg.ID, targetID, e.attempts)
	if err := r.tr.Publish(targetID, e.payload); err != nil {
		r.log.Errorf("resend failed: %v", err)
	}
	r.armAckTimeout(key, targetID)
}

func (r *Router) publishMessageEvent(vehicleID string, typ model.MessageType, outcome events.MessageOutcome) {
	if r.bus != nil {
		r.bus.Publish(events.MessageEvent{VehicleID: vehicleID, Type: typ, Outcome: outcome})
	}
}

// OutboxLen returns the number of messages awaiting acknowledgment.
func (r *Router) OutboxLen() int { return len(r.outbox) }

// Outstanding reports whether the message is still awaiting its ACK.
func (r *Router) Outstanding(targetID string, typ model.MessageType, id int64) bool {
	_, ok := r.outbox[ackKey(targetID, typ, id)]
	return ok
}
