package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/groundlink/core/metrics"
)

// PromSink records coordination events in Prometheus metrics.
type PromSink struct {
	messages   *prometheus.CounterVec
	acks       *prometheus.CounterVec
	ackLatency *prometheus.HistogramVec
	missions   *prometheus.CounterVec
	fleetSize  prometheus.Gauge
}

// NewPromSink registers coordination metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the collectors
// are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groundlink_messages_total",
			Help: "Inbound messages by type and outcome",
		}, []string{"type", "outcome"}),
		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groundlink_acks_total",
			Help: "Tracked outbound message outcomes",
		}, []string{"type", "acknowledged"}),
		ackLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "groundlink_ack_latency_seconds",
			Help:    "Time between command send and acknowledgment",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		missions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groundlink_mission_transitions_total",
			Help: "Mission status transitions",
		}, []string{"status"}),
		fleetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "groundlink_fleet_active_vehicles",
			Help: "Number of active vehicles in the registry",
		}),
	}
	collectors := []prometheus.Collector{s.messages, s.acks, s.ackLatency, s.missions, s.fleetSize}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.messages = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				s.acks = are.ExistingCollector.(*prometheus.CounterVec)
			case 2:
				s.ackLatency = are.ExistingCollector.(*prometheus.HistogramVec)
			case 3:
				s.missions = are.ExistingCollector.(*prometheus.CounterVec)
			case 4:
				s.fleetSize = are.ExistingCollector.(prometheus.Gauge)
			}
		}
	}
	return s, nil
}

func (s *PromSink) RecordMessage(r coremetrics.MessageRecord) error {
	s.messages.WithLabelValues(r.Type, r.Outcome).Inc()
	return nil
}

func (s *PromSink) RecordAck(r coremetrics.AckRecord) error {
	s.acks.WithLabelValues(r.Type, strconv.FormatBool(r.Acknowledged)).Inc()
	if r.Acknowledged {
		s.ackLatency.WithLabelValues(r.Type).Observe(r.Latency.Seconds())
	}
	return nil
}

func (s *PromSink) RecordMissionStatus(r coremetrics.MissionRecord) error {
	s.missions.WithLabelValues(r.Status).Inc()
	return nil
}

func (s *PromSink) RecordFleetSize(active int) error {
	s.fleetSize.Set(float64(active))
	return nil
}
