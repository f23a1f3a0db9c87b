// Package metrics declares the observability sink consumed by the service.
package metrics

import "time"

// MessageRecord describes one processed inbound message.
type MessageRecord struct {
	VehicleID string
	Type      string
	Outcome   string
}

// AckRecord describes the fate of one tracked outbound message.
type AckRecord struct {
	VehicleID    string
	Type         string
	Acknowledged bool
	Attempts     int
	Latency      time.Duration
}

// MissionRecord describes a mission status transition.
type MissionRecord struct {
	Index  int
	Status string
}

// Sink records coordination events for observability purposes.
type Sink interface {
	RecordMessage(MessageRecord) error
	RecordAck(AckRecord) error
	RecordMissionStatus(MissionRecord) error
	RecordFleetSize(active int) error
}

// Config selects and parameterizes the metric exporters.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordMessage(MessageRecord) error       { return nil }
func (NopSink) RecordAck(AckRecord) error               { return nil }
func (NopSink) RecordMissionStatus(MissionRecord) error { return nil }
func (NopSink) RecordFleetSize(int) error               { return nil }
